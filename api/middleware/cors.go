package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS returns middleware that applies the storefront's allowed origin policy.
func CORS(cfg config.AppConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CartTokenHeader, "Idempotency-Key", "X-Requested-With", RequestIDHeader},
		ExposedHeaders:   []string{CartTokenHeader, RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
