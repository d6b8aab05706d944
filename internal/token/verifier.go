package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrInvalidToken es el único error que ve el caller cuando su token falla
// la verificación. El motivo concreto (firma, exp, iss, alg) va solo a logs.
var ErrInvalidToken = errors.New("invalid or expired token")

// expectedAlg es el único algoritmo de firma aceptado. Nunca "none" ni HMAC:
// aceptar el alg declarado por el token abre confusión de algoritmos.
const expectedAlg = "RS256"

// leeway tolera pequeños desfasajes de reloj al validar exp/nbf.
const leeway = 30 * time.Second

// CallerIdentity es la identidad derivada de un token verificado.
// Solo la produce Verifier.Verify: nunca se construye de input sin verificar.
type CallerIdentity struct {
	Subject     string
	Email       string
	DisplayName string
	Groups      []string
}

// Verifier valida bearer tokens de callers: firma RS256 contra el JWKS del
// provider, issuer exacto y expiración.
type Verifier struct {
	keys   *KeyResolver
	issuer string
	log    *zap.Logger
}

func NewVerifier(keys *KeyResolver, issuer string, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{keys: keys, issuer: issuer, log: log}
}

// Verify valida el token crudo y extrae la identidad del caller.
// Cualquier fallo retorna ErrInvalidToken sin filtrar cuál chequeo falló.
func (v *Verifier) Verify(ctx context.Context, raw string) (*CallerIdentity, error) {
	kid, alg, err := parseHeader(raw)
	if err != nil {
		v.log.Debug("token malformado", zap.Error(err))
		return nil, ErrInvalidToken
	}
	if alg != expectedAlg {
		v.log.Warn("token con algoritmo no aceptado", zap.String("alg", alg))
		return nil, ErrInvalidToken
	}

	key, err := v.keys.Resolve(ctx, kid)
	if err != nil {
		v.log.Debug("no se pudo resolver la clave de firma", zap.String("kid", kid), zap.Error(err))
		return nil, ErrInvalidToken
	}

	tok, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{expectedAlg}),
		jwtv5.WithIssuer(v.issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(leeway),
	)
	if err != nil || !tok.Valid {
		v.log.Debug("verificación de token falló", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return identityFromClaims(claims), nil
}

// parseHeader decodifica el header JOSE sin validar nada más.
// El alg se chequea ANTES de resolver claves para cortar temprano.
func parseHeader(raw string) (kid, alg string, err error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return "", "", errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", err
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return "", "", err
	}
	return header.Kid, header.Alg, nil
}

func identityFromClaims(claims jwtv5.MapClaims) *CallerIdentity {
	id := &CallerIdentity{Groups: []string{}}

	id.Subject, _ = claims["sub"].(string)

	// email cae a username (Asgardeo expone uno u otro según configuración)
	if e, _ := claims["email"].(string); e != "" {
		id.Email = e
	} else if u, _ := claims["username"].(string); u != "" {
		id.Email = u
	}

	if n, _ := claims["name"].(string); n != "" {
		id.DisplayName = n
	} else if g, _ := claims["given_name"].(string); g != "" {
		id.DisplayName = g
	}

	// groups ausente => set vacío, nunca nil
	if gs, ok := claims["groups"].([]any); ok {
		for _, g := range gs {
			if s, ok := g.(string); ok {
				id.Groups = append(id.Groups, s)
			}
		}
	}
	return id
}
