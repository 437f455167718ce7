package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"courseforge/internal/domain/model"
	"courseforge/internal/usecase"
)

// statsHandler serves coordinator-wide totals.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		byStatus, courses, notifications, err := statsUC.Totals(ctx)
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		jobs := map[string]int{}
		for status, n := range byStatus {
			jobs[string(status)] = n
		}

		response := struct {
			Jobs          map[string]int `json:"jobs_by_status"`
			Courses       int            `json:"total_courses"`
			Notifications int            `json:"total_notifications"`
		}{
			Jobs:          jobs,
			Courses:       courses,
			Notifications: notifications,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// jobsListHandler pages jobs in one status.
// It accepts 'status', 'offset' and 'limit' query parameters.
func jobsListHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := model.JobStatus(r.URL.Query().Get("status"))
		switch status {
		case model.JobStatusPending, model.JobStatusProcessing, model.JobStatusCompleted, model.JobStatusFailed:
		case "":
			status = model.JobStatusPending
		default:
			http.Error(w, "Unknown status", http.StatusBadRequest)
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		jobs, err := statsUC.ListJobs(ctx, status, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
			return
		}

		type jobRow struct {
			ID             string    `json:"id"`
			SourceID       string    `json:"source_id"`
			SourceType     string    `json:"source_type"`
			Status         string    `json:"status"`
			CreatedBy      string    `json:"created_by"`
			RetryCount     int       `json:"retry_count"`
			ResultCourseID string    `json:"result_course_id,omitempty"`
			Error          string    `json:"error,omitempty"`
			CreatedAt      time.Time `json:"created_at"`
			UpdatedAt      time.Time `json:"updated_at"`
		}
		items := make([]jobRow, 0, len(jobs))
		for _, j := range jobs {
			items = append(items, jobRow{
				ID:             j.ID,
				SourceID:       j.SourceID,
				SourceType:     string(j.SourceType),
				Status:         string(j.Status),
				CreatedBy:      j.CreatedBy,
				RetryCount:     j.RetryCount,
				ResultCourseID: j.ResultCourseID,
				Error:          j.Error,
				CreatedAt:      j.CreatedAt,
				UpdatedAt:      j.UpdatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Items []jobRow `json:"items"`
		}{Items: items})
	}
}
