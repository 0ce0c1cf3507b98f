package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"cardlab-backend/internal/handlers"
	"cardlab-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	limiter *middleware.RateLimiter,
	aiHandler *handlers.AIHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── AI Routes ────
		r.Route("/ai", func(r chi.Router) {
			r.Get("/health", aiHandler.Health) // Public

			// Generation is expensive; anonymous callers are limited per
			// address, authenticated callers per user.
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Optional)
				r.Use(limiter.Middleware)
				r.Post("/generate", aiHandler.Generate)
			})
		})
	})

	return r
}
