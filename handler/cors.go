package handler

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS answers browser preflight requests and tags responses for the given
// origins. "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", IdempotencyHeader, requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader, ReplayedHeader}),
	)
}
