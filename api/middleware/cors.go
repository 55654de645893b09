package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",            // local dev
	"https://app.bitetrack.io",         // dashboard
	"https://bitetrack-staging.fly.dev", // staging dashboard
}

// CORS limits browser callers to the known dashboard origins.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-BT-Token", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-BT-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
