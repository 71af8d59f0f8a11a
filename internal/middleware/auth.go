package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/nacl/secretbox"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated session attached to each request: who the
// user is and the Canvas credentials needed to fetch on their behalf.
type Identity struct {
	UserID    int64
	Name      string
	CanvasURL string
	Token     string
}

// JWTAuth issues and validates session tokens. The user's Canvas API token
// rides inside the JWT sealed with a secretbox key derived from the signing
// secret, so the server stays stateless without ever emitting the Canvas
// token in the clear.
type JWTAuth struct {
	secret []byte
	boxKey [32]byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
		boxKey: sha256.Sum256([]byte(secret)),
	}
}

// GenerateAccessToken creates a JWT with 24 hour expiry carrying the
// sealed Canvas credentials.
func (j *JWTAuth) GenerateAccessToken(userID int64, name, canvasURL, canvasToken string) (string, error) {
	sealed, err := j.seal(canvasToken)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"user_id":      userID,
		"name":         name,
		"canvas_url":   canvasURL,
		"canvas_token": sealed,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Middleware validates the JWT, unseals the Canvas token and attaches the
// Identity to the request context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return j.secret, nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token claims", r)
			return
		}

		identity, err := j.identityFromClaims(claims)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid session claims", r)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (j *JWTAuth) identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return Identity{}, fmt.Errorf("missing user_id claim")
	}
	name, _ := claims["name"].(string)
	canvasURL, ok := claims["canvas_url"].(string)
	if !ok || canvasURL == "" {
		return Identity{}, fmt.Errorf("missing canvas_url claim")
	}
	sealed, ok := claims["canvas_token"].(string)
	if !ok || sealed == "" {
		return Identity{}, fmt.Errorf("missing canvas_token claim")
	}

	canvasToken, err := j.open(sealed)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		UserID:    int64(userID),
		Name:      name,
		CanvasURL: canvasURL,
		Token:     canvasToken,
	}, nil
}

// GetIdentity extracts the authenticated session from a request context.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// seal encrypts a secret with a random nonce, returning base64 of
// nonce||ciphertext.
func (j *JWTAuth) seal(secret string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(secret), &nonce, &j.boxKey)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (j *JWTAuth) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("malformed sealed token: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("sealed token too short")
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	opened, ok := secretbox.Open(nil, raw[24:], &nonce, &j.boxKey)
	if !ok {
		return "", fmt.Errorf("failed to open sealed token")
	}
	return string(opened), nil
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
