package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTokenEndpoint(t *testing.T, calls *int64, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)

		require.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "esperaba basic auth")
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		require.Contains(t, r.PostForm.Get("scope"), "internal_user_mgt_view")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		})
	}))
}

func newProvider(srvURL string) *Provider {
	return NewProvider(ProviderConfig{
		TokenURL:     srvURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"internal_user_mgt_view", "internal_group_mgt_view"},
	}, nil)
}

func TestProviderCachesToken(t *testing.T) {
	var calls int64
	srv := newTokenEndpoint(t, &calls, 3600)
	defer srv.Close()

	p := newProvider(srv.URL)

	for i := 0; i < 5; i++ {
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "tok-abc", tok)
	}
	require.EqualValues(t, 1, atomic.LoadInt64(&calls), "el token vigente no debe reintercambiarse")
}

func TestProviderSingleFlight(t *testing.T) {
	var calls int64
	srv := newTokenEndpoint(t, &calls, 3600)
	defer srv.Close()

	p := newProvider(srv.URL)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			tok, err := p.Token(context.Background())
			require.NoError(t, err)
			require.Equal(t, "tok-abc", tok)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt64(&calls),
		"N callers concurrentes con cache vacía deben producir un solo intercambio")
}

func TestProviderRefreshMargin(t *testing.T) {
	var calls int64
	// expires_in de 200s queda por debajo del margen de 300s: la expiración
	// efectiva es pasada y cada llamada refresca.
	srv := newTokenEndpoint(t, &calls, 200)
	defer srv.Close()

	p := newProvider(srv.URL)

	_, err := p.Token(context.Background())
	require.NoError(t, err)
	_, err = p.Token(context.Background())
	require.NoError(t, err)

	require.EqualValues(t, 2, atomic.LoadInt64(&calls),
		"un token dentro del margen de refresh se considera vencido")
}

func TestProviderExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	p := newProvider(srv.URL)

	_, err := p.Token(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestProviderInvalidateForcesExchange(t *testing.T) {
	var calls int64
	srv := newTokenEndpoint(t, &calls, 3600)
	defer srv.Close()

	p := newProvider(srv.URL)

	_, err := p.Token(context.Background())
	require.NoError(t, err)

	p.Invalidate()

	_, err = p.Token(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestProviderExpiryIsAtomicSwap(t *testing.T) {
	var calls int64
	srv := newTokenEndpoint(t, &calls, 3600)
	defer srv.Close()

	p := newProvider(srv.URL)

	// Lectores y un invalidador compitiendo: nunca debe observarse un token
	// vacío con error nil.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := p.Token(context.Background())
			if err == nil && tok == "" {
				t.Error("token vacío sin error")
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			p.Invalidate()
		}()
	}
	wg.Wait()
}
