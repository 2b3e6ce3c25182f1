package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/mahuwo/mahuwo-backend/pkg/env"
)

const envCORSOrigins = "MAHUWO_CORS_ALLOWED_ORIGINS"

var defaultCORSOrigins = []string{
	"http://localhost:3000",
}

// CORS returns middleware that applies the API's allowed origin policy.
// MAHUWO_CORS_ALLOWED_ORIGINS (comma separated) replaces the local default.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(env.Get(envCORSOrigins, "")),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func allowedOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return defaultCORSOrigins
	}
	return out
}
