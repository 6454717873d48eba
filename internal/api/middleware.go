// Package api implements the glossary REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

// ClientIDHeader identifies a client across search requests so that its
// searches are debounced together.
const ClientIDHeader = "X-Client-ID"

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS returns the cross-origin middleware. An empty origin list allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", ClientIDHeader},
		ExposedHeaders: []string{ClientIDHeader},
		MaxAge:         300,
	})
	return c.Handler
}

// clientID returns the caller's client id, assigning a fresh one (and
// echoing it back) when the header is missing.
func clientID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(ClientIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(ClientIDHeader, id)
	return id
}
