package token

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrKeyNotFound: el JWKS publicado no contiene el kid pedido.
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrKeyResolution: no se pudo obtener el key set remoto.
	ErrKeyResolution = errors.New("failed to resolve signing key")
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// KeyResolver resuelve claves públicas RSA por kid contra el JWKS publicado
// del identity provider. Las claves resueltas se retienen por la vida del
// proceso (el key set remoto es append-mostly); un miss dispara a lo sumo un
// refetch por kid desconocido por ventana, para acotar la carga si alguien
// prueba kids basura.
type KeyResolver struct {
	jwksURL string
	http    *http.Client
	log     *zap.Logger

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey

	// misses registra kids desconocidos ya consultados; TTL = ventana de throttle.
	misses *gocache.Cache
	sf     singleflight.Group
}

func NewKeyResolver(jwksURL string, refetchMinInterval time.Duration, hc *http.Client, log *zap.Logger) *KeyResolver {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if refetchMinInterval <= 0 {
		refetchMinInterval = 30 * time.Second
	}
	return &KeyResolver{
		jwksURL: jwksURL,
		http:    hc,
		log:     log,
		keys:    make(map[string]*rsa.PublicKey),
		misses:  gocache.New(refetchMinInterval, time.Minute),
	}
}

// Resolve retorna la clave pública para kid. En cache miss refetchea el key
// set completo (una sola vez aunque haya callers concurrentes) y repuebla.
func (r *KeyResolver) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k, ok := r.lookup(kid); ok {
		return k, nil
	}

	// kid desconocido consultado hace poco: no volvemos a pegarle al endpoint.
	if _, throttled := r.misses.Get(kid); throttled {
		return nil, ErrKeyNotFound
	}

	_, err, _ := r.sf.Do("jwks", func() (any, error) {
		// Otro caller pudo traer el set mientras esperábamos.
		if _, ok := r.lookup(kid); ok {
			return nil, nil
		}
		return nil, r.refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyResolution, err)
	}

	if k, ok := r.lookup(kid); ok {
		return k, nil
	}

	r.misses.SetDefault(kid, struct{}{})
	r.log.Warn("kid no presente en el JWKS publicado", zap.String("kid", kid))
	return nil, ErrKeyNotFound
}

func (r *KeyResolver) lookup(kid string) (*rsa.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[kid]
	return k, ok
}

// refresh trae el JWKS remoto y agrega las claves RSA al cache.
// Las entradas existentes nunca se mutan ni se eliminan.
func (r *KeyResolver) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("jwks http %d", resp.StatusCode)
	}

	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}

	added := 0
	r.mu.Lock()
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if _, exists := r.keys[k.Kid]; exists {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			r.log.Warn("jwk inválida en key set", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		r.keys[k.Kid] = pub
		added++
	}
	r.mu.Unlock()

	r.log.Debug("jwks refrescado", zap.Int("keys_nuevas", added))
	return nil
}

// parseRSAKey arma una rsa.PublicKey desde los campos n/e base64url.
func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = (e << 8) | int(b)
	}
	if e == 0 {
		e = 65537
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
