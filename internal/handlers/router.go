package handlers

import (
	"net/http"
	"strings"

	"chat-relay/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router assembles the HTTP API. The settings routes require a bearer token;
// everything else is public.
func (m Main) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Post("/api/auth/signup", m.HandleSignup)
	r.Post("/api/auth/login", m.HandleLogin)

	r.Post("/api/chat", m.HandleChat)
	r.Get("/api/models", m.HandleModels)
	r.Get("/api/chats/export", m.HandleExport)

	r.Route("/api/settings", func(r chi.Router) {
		r.Use(m.jwtAuth)
		r.Get("/", m.HandleGetSettings)
		r.Put("/", m.HandleSaveSettings)
	})

	return r
}

// jwtAuth verifies the Authorization bearer token and injects the user id into
// the request context.
func (m Main) jwtAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			respondError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		userID, err := auth.ParseToken(parts[1], m.jwtSecret)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}
