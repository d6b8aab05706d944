package token

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://api.asgardeo.io/t/acme/oauth2/token"

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwtv5.MapClaims) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func baseClaims() jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss":    testIssuer,
		"sub":    "user-123",
		"email":  "ana@example.com",
		"name":   "Ana Pérez",
		"groups": []string{"admin", "supplier"},
		"exp":    time.Now().Add(time.Hour).Unix(),
		"iat":    time.Now().Unix(),
	}
}

func newVerifierFixture(t *testing.T) (*Verifier, *rsa.PrivateKey, func()) {
	t.Helper()
	key := genKey(t)
	srv := newJWKSServer(jwkFor("kid-1", &key.PublicKey))
	r := NewKeyResolver(srv.URL, time.Minute, nil, nil)
	return NewVerifier(r, testIssuer, nil), key, srv.Close
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	raw := signRS256(t, key, "kid-1", baseClaims())

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "user-123", id.Subject)
	require.Equal(t, "ana@example.com", id.Email)
	require.Equal(t, "Ana Pérez", id.DisplayName)
	require.Equal(t, []string{"admin", "supplier"}, id.Groups)
}

func TestVerifierRejectsAlgNone(t *testing.T) {
	v, _, done := newVerifierFixture(t)
	defer done()

	// alg=none armado a mano: header+payload válidos, firma vacía.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","kid":"kid-1"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"` + testIssuer + `","sub":"user-123"}`))
	raw := header + "." + payload + "."

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsHMAC(t *testing.T) {
	v, _, done := newVerifierFixture(t)
	defer done()

	// HS256 firmado con un secreto cualquiera y el kid de una clave RSA real:
	// el ataque clásico de confusión de algoritmos.
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, baseClaims())
	tok.Header["kid"] = "kid-1"
	raw, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsWrongIssuer(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	claims := baseClaims()
	claims["iss"] = "https://evil.example.com"
	raw := signRS256(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsExpired(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	raw := signRS256(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsMissingExp(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	claims := baseClaims()
	delete(claims, "exp")
	raw := signRS256(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsUnknownKid(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	raw := signRS256(t, key, "kid-otro", baseClaims())

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsWrongKeySignature(t *testing.T) {
	v, _, done := newVerifierFixture(t)
	defer done()

	// Firmado con otra clave pero declarando el kid publicado.
	other := genKey(t)
	raw := signRS256(t, other, "kid-1", baseClaims())

	_, err := v.Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	v, _, done := newVerifierFixture(t)
	defer done()

	for _, raw := range []string{"", "abc", "a.b", "not.a.jwt"} {
		_, err := v.Verify(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestIdentityClaimFallbacks(t *testing.T) {
	v, key, done := newVerifierFixture(t)
	defer done()

	claims := baseClaims()
	delete(claims, "email")
	delete(claims, "name")
	delete(claims, "groups")
	claims["username"] = "DEFAULT/ana@example.com"
	claims["given_name"] = "Ana"
	raw := signRS256(t, key, "kid-1", claims)

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "DEFAULT/ana@example.com", id.Email)
	require.Equal(t, "Ana", id.DisplayName)
	require.NotNil(t, id.Groups)
	require.Empty(t, id.Groups, "sin claim groups la identidad lleva set vacío")
}
