// Package scim implementa el cliente SCIM2 contra el identity provider.
// Cada llamada lleva el bearer M2M del token.Provider y un timeout acotado.
package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/identity-gateway/internal/metrics"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

const (
	contentTypeSCIM = "application/scim+json"

	userSchema    = "urn:ietf:params:scim:schemas:core:2.0:User"
	patchOpSchema = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	wso2Schema    = "urn:scim:wso2:schema"
)

var (
	// ErrNotFound: el recurso no existe upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict: el recurso ya existe (p.ej. email duplicado).
	ErrConflict = errors.New("resource already exists")
)

// UpstreamError envuelve cualquier otra respuesta de error del provider.
// El body nunca se expone al caller fuera de modo desarrollo.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream scim2 error: http %d", e.StatusCode)
}

// Config del cliente SCIM2.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client emite llamadas autenticadas a los endpoints /Users y /Groups.
type Client struct {
	baseURL string
	tokens  *token.Provider
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg Config, tokens *token.Provider, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// ListOptions controla paginado y filtros de los listados SCIM2.
type ListOptions struct {
	Filter     string
	StartIndex int
	Count      int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.StartIndex <= 0 {
		o.StartIndex = 1
	}
	if o.Count <= 0 {
		o.Count = 50
	}
	v.Set("startIndex", strconv.Itoa(o.StartIndex))
	v.Set("count", strconv.Itoa(o.Count))
	if o.Filter != "" {
		v.Set("filter", o.Filter)
	}
	return v
}

// NewUser son los datos de entrada para crear un usuario upstream.
type NewUser struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// createUserPayload es el body SCIM2 de alta de usuario. El flag askPassword
// hace que el provider mande un mail de seteo de contraseña en vez de
// aceptar una contraseña del cliente.
type createUserPayload struct {
	Schemas      []string      `json:"schemas"`
	UserName     string        `json:"userName"`
	Name         Name          `json:"name"`
	Emails       []Email       `json:"emails"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers,omitempty"`
	WSO2         wso2Extension `json:"urn:scim:wso2:schema"`
}

type wso2Extension struct {
	AskPassword bool `json:"askPassword"`
}

type patchPayload struct {
	Schemas    []string         `json:"schemas"`
	Operations []patchOperation `json:"Operations"`
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path,omitempty"`
	Value any    `json:"value,omitempty"`
}

// ListUsers lista usuarios con filtros opcionales.
func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (*UserList, error) {
	var out UserList
	if err := c.do(ctx, http.MethodGet, "/Users", nil, opts.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser trae un usuario por id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/Users/"+url.PathEscape(userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser da de alta un usuario. El userName se sintetiza con el prefijo
// de namespace + email.
func (c *Client) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	payload := createUserPayload{
		Schemas:  []string{userSchema},
		UserName: userNamePrefix + in.Email,
		Name:     Name{GivenName: in.FirstName, FamilyName: in.LastName},
		Emails:   []Email{{Value: in.Email, Primary: true}},
		WSO2:     wso2Extension{AskPassword: true},
	}
	if in.Phone != "" {
		payload.PhoneNumbers = []PhoneNumber{{Value: in.Phone, Type: "mobile"}}
	}

	var out User
	if err := c.do(ctx, http.MethodPost, "/Users", payload, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser elimina un usuario por id.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/Users/"+url.PathEscape(userID), nil, nil, nil)
}

// ListGroups lista grupos.
func (c *Client) ListGroups(ctx context.Context, opts ListOptions) (*GroupList, error) {
	var out GroupList
	if err := c.do(ctx, http.MethodGet, "/Groups", nil, opts.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGroup trae un grupo (con miembros) por id.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodGet, "/Groups/"+url.PathEscape(groupID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddUserToGroup agrega el usuario al grupo vía PatchOp. El display de la
// membresía es requerido por el provider; se usa el email del usuario.
func (c *Client) AddUserToGroup(ctx context.Context, groupID, userID, display string) error {
	member := MemberRef{Value: userID, Display: display}
	payload := patchPayload{
		Schemas: []string{patchOpSchema},
		Operations: []patchOperation{{
			Op:    "add",
			Value: map[string]any{"members": []MemberRef{member}},
		}},
	}
	return c.do(ctx, http.MethodPatch, "/Groups/"+url.PathEscape(groupID), payload, nil, nil)
}

// RemoveUserFromGroup saca al usuario del grupo vía PatchOp remove con filtro.
func (c *Client) RemoveUserFromGroup(ctx context.Context, groupID, userID string) error {
	payload := patchPayload{
		Schemas: []string{patchOpSchema},
		Operations: []patchOperation{{
			Op:   "remove",
			Path: fmt.Sprintf("members[value eq %q]", userID),
		}},
	}
	return c.do(ctx, http.MethodPatch, "/Groups/"+url.PathEscape(groupID), payload, nil, nil)
}

// metricEndpoint colapsa ids del path en el label de métricas para no
// explotar la cardinalidad: /Users/u-123 -> /Users/{id}.
func metricEndpoint(path string) string {
	if i := strings.Index(path[1:], "/"); i >= 0 {
		return path[:i+1] + "/{id}"
	}
	return path
}

// do arma y ejecuta la llamada autenticada, y mapea los códigos de error
// upstream a errores de dominio.
func (c *Client) do(ctx context.Context, method, path string, body any, params url.Values, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", contentTypeSCIM)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeSCIM)
	}

	endpoint := metricEndpoint(path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstreamCall(method, endpoint, 0, time.Since(start))
		c.log.Error("llamada SCIM2 falló", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &UpstreamError{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamCall(method, endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode/100 == 2:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusUnauthorized:
		// El provider rechazó nuestro token M2M: descartar cache.
		c.tokens.Invalidate()
		c.log.Error("provider rechazó el token M2M", zap.String("path", path))
		return token.ErrAuthenticationFailed
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.Error("error SCIM2 upstream",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", b))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(b)}
	}
}
