package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func rsaPublicKeyToJWK(key *rsa.PrivateKey, kid string) JWKSKey {
	return JWKSKey{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
	}
}

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

func jwksServer(keys func() []JWKSKey, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JWKSResponse{Keys: keys()})
	}))
}

func TestJWKSCache_FetchAndCache(t *testing.T) {
	key := generateKey(t)
	var hits int32
	server := jwksServer(func() []JWKSKey { return []JWKSKey{rsaPublicKeyToJWK(key, "k1")} }, &hits)
	defer server.Close()

	cache := NewJWKSCache(server.URL, time.Minute)
	got, err := cache.GetKey("k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.N.Cmp(key.PublicKey.N) != 0 || got.E != key.PublicKey.E {
		t.Error("fetched key does not match")
	}
	if _, err := cache.GetKey("k1"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one fetch, got %d", hits)
	}
}

func TestJWKSCache_KeyRotation(t *testing.T) {
	k1, k2 := generateKey(t), generateKey(t)
	var rotated atomic.Bool
	server := jwksServer(func() []JWKSKey {
		if rotated.Load() {
			return []JWKSKey{rsaPublicKeyToJWK(k2, "k2")}
		}
		return []JWKSKey{rsaPublicKeyToJWK(k1, "k1")}
	}, nil)
	defer server.Close()

	cache := NewJWKSCache(server.URL, time.Hour)
	if _, err := cache.GetKey("k1"); err != nil {
		t.Fatal(err)
	}
	rotated.Store(true)
	got, err := cache.GetKey("k2")
	if err != nil {
		t.Fatalf("expected unknown kid to trigger a refetch: %v", err)
	}
	if got.N.Cmp(k2.PublicKey.N) != 0 {
		t.Error("expected rotated key")
	}
}

func TestJWKSCache_Errors(t *testing.T) {
	server := jwksServer(func() []JWKSKey { return []JWKSKey{{Kty: "EC", Kid: "ec"}} }, nil)
	defer server.Close()
	if _, err := NewJWKSCache(server.URL, time.Minute).GetKey("ec"); err == nil {
		t.Error("expected non-RSA keys to be ignored")
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if _, err := NewJWKSCache(failing.URL, time.Minute).GetKey("any"); err == nil {
		t.Error("expected error from failing endpoint")
	}
}

func TestParseRSAPublicKey_Invalid(t *testing.T) {
	if _, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: "!!!", E: "AQAB"}); err == nil {
		t.Error("expected error for invalid modulus")
	}
	if _, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: "AQAB", E: "!!!"}); err == nil {
		t.Error("expected error for invalid exponent")
	}
}

func TestJwksKeyFunc_NoKidHeader(t *testing.T) {
	keyFunc := jwksKeyFunc("http://127.0.0.1:1")
	_, err := keyFunc(&jwt.Token{Header: map[string]interface{}{}})
	if err == nil || err.Error() != "token has no kid header" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDiscoverJWKSURL(t *testing.T) {
	var jwksURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"issuer": "x", "jwks_uri": jwksURL})
	}))
	defer server.Close()

	jwksURL = server.URL + "/keys"
	got, err := DiscoverJWKSURL(server.URL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != jwksURL {
		t.Errorf("expected %s, got %s", jwksURL, got)
	}

	jwksURL = ""
	if _, err := DiscoverJWKSURL(server.URL); err == nil {
		t.Error("expected error for missing jwks_uri")
	}
}

func TestJWTMiddleware_RS256ViaJWKS(t *testing.T) {
	key := generateKey(t)
	server := jwksServer(func() []JWKSKey { return []JWKSKey{rsaPublicKeyToJWK(key, "rs")} }, nil)
	defer server.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "eng-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Roles:            []string{RoleEngineer},
	})
	token.Header["kid"] = "rs"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	var user string
	var roles []string
	if _, err := serve(t, JWTMiddleware(JWTConfig{JWKSURL: server.URL}), "/api/v1/projects", "Bearer "+signed, identityHandler(&user, &roles)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "eng-1" || len(roles) != 1 || roles[0] != RoleEngineer {
		t.Errorf("unexpected identity %q %v", user, roles)
	}
}
