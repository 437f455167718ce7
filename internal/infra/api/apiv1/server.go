// File: internal/infra/api/apiv1/server.go
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/infra/logging"
	"courseforge/internal/usecase"
)

// Server exposes the client-facing API: generation requests, job status
// polling and the notification feed.
type Server struct {
	genUC   usecase.GenerationUseCase
	notifUC usecase.NotificationUseCase
	auth    *Auth
	log     *zerolog.Logger
}

func NewServer(genUC usecase.GenerationUseCase, notifUC usecase.NotificationUseCase, auth *Auth, logger *zerolog.Logger) *Server {
	return &Server{genUC: genUC, notifUC: notifUC, auth: auth, log: logger}
}

// RegisterAPIV1 mounts the API on the router. Paths are absolute, so mount
// at root.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", s.handleRequestGeneration)
			r.Get("/", s.handleListJobs)
			r.Get("/{jobID}", s.handleJobStatus)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Post("/read-all", s.handleMarkAllRead)
			r.Post("/{notificationID}/read", s.handleMarkRead)
		})
	})
}

type generationRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	SourceURL  string `json:"source_url,omitempty"`
}

func (s *Server) handleRequestGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithUserID(r.Context(), UserIDFrom(r.Context()))

	var req generationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.genUC.RequestGeneration(ctx, UserIDFrom(ctx), req.SourceType, req.SourceID, req.SourceURL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid source", http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrRateLimited):
			http.Error(w, "Too many generation requests", http.StatusTooManyRequests)
		default:
			logging.With(ctx, s.log).Error().Err(err).Msg("generation request failed")
			http.Error(w, "Failed to request generation", http.StatusInternalServerError)
		}
		return
	}

	code := http.StatusOK
	if res.Outcome == usecase.RequestOutcomeCreated {
		code = http.StatusCreated
	}
	writeJSON(w, code, res)
}

type jobView struct {
	ID             string    `json:"id"`
	SourceID       string    `json:"source_id"`
	SourceType     string    `json:"source_type"`
	Status         string    `json:"status"`
	ResultCourseID string    `json:"result_course_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toJobView(j *model.GenerationJob) jobView {
	return jobView{
		ID:             j.ID,
		SourceID:       j.SourceID,
		SourceType:     string(j.SourceType),
		Status:         string(j.Status),
		ResultCourseID: j.ResultCourseID,
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.genUC.ListUserJobs(r.Context(), UserIDFrom(r.Context()), limit)
	if err != nil {
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	items := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toJobView(j))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []jobView `json:"items"`
	}{Items: items})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap, err := s.genUC.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get job status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type notificationView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.notifUC.ListForUser(r.Context(), UserIDFrom(r.Context()), limit)
	if err != nil {
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	out := make([]notificationView, 0, len(items))
	for _, n := range items {
		out = append(out, notificationView{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Items []notificationView `json:"items"`
	}{Items: out})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifUC.UnreadCount(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, "Failed to count notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count int `json:"count"`
	}{Count: count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")
	err := s.notifUC.MarkAsRead(r.Context(), UserIDFrom(r.Context()), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Notification not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid notification id", http.StatusUnprocessableEntity)
		default:
			http.Error(w, "Failed to mark as read", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.notifUC.MarkAllAsRead(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, "Failed to mark all as read", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Updated int `json:"updated"`
	}{Updated: updated})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
