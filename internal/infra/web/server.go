package web

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"courseforge/internal/usecase"
)

// Server is the operator-facing admin API, guarded by a static bearer key.
type Server struct {
	statsUC usecase.StatsUseCase
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{statsUC: statsUC, apiKey: apiKey, log: logger}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/stats", s.authMiddleware(statsHandler(s.statsUC)))
	mux.Handle("/api/v1/jobs", s.authMiddleware(jobsListHandler(s.statsUC)))
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
