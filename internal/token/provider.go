// Package token implementa el núcleo de tokens del gateway: adquisición y
// cache del token M2M de servicio, resolución de claves de firma publicadas
// (JWKS) y verificación de bearer tokens de callers.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrAuthenticationFailed indica que no se pudo obtener el token M2M.
// Bloquea todo acceso upstream: el caller lo ve como service unavailable.
var ErrAuthenticationFailed = errors.New("failed to authenticate with identity provider")

// refreshMargin fuerza el refresh 5 minutos antes de la expiración real.
const refreshMargin = 300 * time.Second

// ProviderConfig configura el intercambio client-credentials.
type ProviderConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// HTTPClient opcional; por defecto uno con timeout de 15s.
	HTTPClient *http.Client
}

// Provider obtiene y cachea el access token M2M usado contra la API SCIM2.
// Thread-safe: lecturas bajo RWMutex, refresh bajo singleflight para que
// N callers concurrentes con cache vencida generen un solo intercambio.
type Provider struct {
	cfg  ProviderConfig
	http *http.Client
	log  *zap.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	sf singleflight.Group
}

func NewProvider(cfg ProviderConfig, log *zap.Logger) *Provider {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{cfg: cfg, http: hc, log: log}
}

// Token retorna el token cacheado si sigue vigente; si no, hace el
// intercambio client-credentials. Los callers que llegan en medio de un
// refresh esperan el resultado único en vez de disparar más requests.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	v, err, _ := p.sf.Do("m2m", func() (any, error) {
		// Double-check: otro caller pudo refrescar mientras esperábamos.
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		return p.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate descarta el token cacheado. Se llama cuando el upstream lo
// rechaza (401) para forzar un intercambio en la próxima llamada.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *Provider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token != "" && time.Now().Before(p.expiresAt) {
		return p.token, true
	}
	return "", false
}

func (p *Provider) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", strings.Join(p.cfg.Scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	resp, err := p.http.Do(req)
	if err != nil {
		p.Invalidate()
		p.log.Error("intercambio client-credentials falló", zap.Error(err))
		return "", ErrAuthenticationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		p.Invalidate()
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		p.log.Error("token endpoint rechazó el intercambio",
			zap.Int("status", resp.StatusCode),
			zap.String("error", body.Error),
			zap.String("error_description", body.ErrorDescription))
		return "", ErrAuthenticationFailed
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		p.Invalidate()
		return "", ErrAuthenticationFailed
	}

	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - refreshMargin)
	p.mu.Unlock()

	p.log.Info("token M2M adquirido", zap.Int64("expires_in", tr.ExpiresIn))
	return tr.AccessToken, nil
}
