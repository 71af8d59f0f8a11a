package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured frontend origin, or any origin when none is
// configured (local development).
func CORS(frontendURL string) func(http.Handler) http.Handler {
	allowed := []string{frontendURL}
	if frontendURL == "" {
		allowed = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: frontendURL != "",
		MaxAge:           300,
	})
}
