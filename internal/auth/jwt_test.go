package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestNewToken_ContainsClaims(t *testing.T) {
	secret := "test-secret"
	issuer := "drivescribe-test"

	tokenStr, err := NewToken(secret, issuer, "n8n-workflow", 2*time.Minute)
	if err != nil {
		t.Fatalf("NewToken error: %v", err)
	}

	claims, err := ParseToken(secret, issuer, tokenStr)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.Issuer != issuer {
		t.Fatalf("expected issuer %q, got %q", issuer, claims.Issuer)
	}
	if claims.Subject != "n8n-workflow" {
		t.Fatalf("expected subject n8n-workflow, got %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("expected iat/exp to be set")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		t.Fatalf("expected exp after iat")
	}
}

func TestNewToken_ZeroTTLHasNoExpiry(t *testing.T) {
	tokenStr, err := NewToken("s", "iss", "sub", 0)
	if err != nil {
		t.Fatalf("NewToken error: %v", err)
	}
	claims, err := ParseToken("s", "iss", tokenStr)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Fatalf("expected no exp claim, got %v", claims.ExpiresAt)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	good, _ := NewToken("secret", "iss", "sub", time.Minute)

	past := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "iss",
		Audience:  []string{Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	pastStr, _ := past.SignedString([]byte("secret"))

	tests := map[string]struct {
		secret, issuer, token string
	}{
		"wrong secret": {"other", "iss", good},
		"wrong issuer": {"secret", "other", good},
		"expired":      {"secret", "iss", pastStr},
		"garbage":      {"secret", "iss", "not.a.jwt"},
	}
	for name, tt := range tests {
		_, err := ParseToken(tt.secret, tt.issuer, tt.token)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.Is(err, common.ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestJWTMiddleware(t *testing.T) {
	token, _ := NewToken("secret", "iss", "caller", time.Minute)

	var seen string
	h := JWTMiddleware("secret", "iss")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cl, ok := FromContext(r.Context()); ok {
			seen = cl.Subject
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/process-video", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("header %q: expected %d, got %d", tt.header, tt.want, rec.Code)
		}
	}
	if seen != "caller" {
		t.Fatalf("expected claims in context, got subject %q", seen)
	}
}
