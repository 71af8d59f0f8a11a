package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSealOpenRoundTrip(t *testing.T) {
	j := NewJWTAuth("test-secret")

	sealed, err := j.seal("canvas-api-token-1234")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if strings.Contains(sealed, "canvas-api-token-1234") {
		t.Error("sealed value must not contain the plaintext token")
	}

	opened, err := j.open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened != "canvas-api-token-1234" {
		t.Errorf("round trip mismatch: %q", opened)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := NewJWTAuth("secret-a").seal("token")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTAuth("secret-b").open(sealed); err == nil {
		t.Error("Expected error opening with a different key")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	j := NewJWTAuth("test-secret")

	token, err := j.GenerateAccessToken(42, "Ada Lovelace", "https://canvas.example/api/v1", "canvas-token")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	var got Identity
	var ok bool
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetIdentity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !ok {
		t.Fatal("identity missing from context")
	}
	if got.UserID != 42 || got.Name != "Ada Lovelace" || got.Token != "canvas-token" {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.CanvasURL != "https://canvas.example/api/v1" {
		t.Errorf("unexpected canvas url: %q", got.CanvasURL)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	j := NewJWTAuth("test-secret")
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	j := NewJWTAuth("test-secret")

	sealed, err := j.seal("canvas-token")
	if err != nil {
		t.Fatal(err)
	}
	claims := jwt.MapClaims{
		"user_id":      float64(42),
		"canvas_url":   "https://canvas.example/api/v1",
		"canvas_token": sealed,
		"exp":          time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TOKEN_EXPIRED") {
		t.Errorf("Expected TOKEN_EXPIRED code, got %s", rec.Body.String())
	}
}

func TestMiddlewareRejectsTokenFromOtherSecret(t *testing.T) {
	other := NewJWTAuth("other-secret")
	token, err := other.GenerateAccessToken(1, "x", "https://canvas.example/api/v1", "t")
	if err != nil {
		t.Fatal(err)
	}

	j := NewJWTAuth("test-secret")
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
