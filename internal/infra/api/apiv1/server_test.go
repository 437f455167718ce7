package apiv1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/usecase"
)

//
// ---------------- stub use cases ----------------
//

type stubGenUC struct {
	requestRes *usecase.RequestGenerationResult
	requestErr error
	lastUserID string

	status    *model.JobStatusSnapshot
	statusErr error

	jobs []*model.GenerationJob
}

func (s *stubGenUC) RequestGeneration(ctx context.Context, userID, sourceType, sourceID, sourceURL string) (*usecase.RequestGenerationResult, error) {
	s.lastUserID = userID
	return s.requestRes, s.requestErr
}

func (s *stubGenUC) GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusSnapshot, error) {
	return s.status, s.statusErr
}

func (s *stubGenUC) ListUserJobs(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error) {
	return s.jobs, nil
}

func (s *stubGenUC) ClaimPending(ctx context.Context, limit int) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (s *stubGenUC) CompleteJob(ctx context.Context, job *model.GenerationJob, outline *model.CourseOutline) (*model.Course, error) {
	return nil, nil
}

func (s *stubGenUC) FailJob(ctx context.Context, job *model.GenerationJob, cause error) error {
	return nil
}

type stubNotifUC struct {
	items       []*model.Notification
	unread      int
	markReadErr error
	markedAll   int
}

func (s *stubNotifUC) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return s.items, nil
}

func (s *stubNotifUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

func (s *stubNotifUC) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.markReadErr
}

func (s *stubNotifUC) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.markedAll, nil
}

func newTestRouter(genUC usecase.GenerationUseCase, notifUC usecase.NotificationUseCase, secret string) http.Handler {
	log := zerolog.Nop()
	r := chi.NewRouter()
	RegisterAPIV1(r, NewServer(genUC, notifUC, NewAuth(secret), &log))
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

//
// ---------------- tests ----------------
//

func TestHealth(t *testing.T) {
	h := newTestRouter(&stubGenUC{}, &stubNotifUC{}, "")
	rec := doRequest(t, h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	h := newTestRouter(&stubGenUC{}, &stubNotifUC{}, "")
	rec := doRequest(t, h, http.MethodGet, "/api/v1/generations/", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without identity, got %d", rec.Code)
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	gen := &stubGenUC{jobs: nil}
	h := newTestRouter(gen, &stubNotifUC{}, secret)

	mint := func(t *testing.T, sub string, key string) string {
		t.Helper()
		tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := tkn.SignedString([]byte(key))
		if err != nil {
			t.Fatal(err)
		}
		return signed
	}

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/", nil)
		req.Header.Set("Authorization", "Bearer "+mint(t, "user-1", secret))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/", nil)
		req.Header.Set("Authorization", "Bearer "+mint(t, "user-1", "other-secret"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("header fallback disabled with secret set", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/v1/generations/", "user-1", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})
}

func TestRequestGeneration(t *testing.T) {
	body := `{"source_type":"topic","source_id":"go-basics"}`

	t.Run("created returns 201", func(t *testing.T) {
		gen := &stubGenUC{requestRes: &usecase.RequestGenerationResult{
			Outcome: usecase.RequestOutcomeCreated,
			Message: "Course generation started.",
			JobID:   "job-1",
		}}
		h := newTestRouter(gen, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/generations/", "user-1", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gen.lastUserID != "user-1" {
			t.Fatalf("handler must pass the authenticated user, got %q", gen.lastUserID)
		}
		var res map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatal(err)
		}
		if res["status"] != "created" || res["job_id"] != "job-1" {
			t.Fatalf("unexpected body: %v", res)
		}
	})

	t.Run("queued and exists return 200", func(t *testing.T) {
		for _, outcome := range []string{usecase.RequestOutcomeQueued, usecase.RequestOutcomeExists} {
			gen := &stubGenUC{requestRes: &usecase.RequestGenerationResult{Outcome: outcome}}
			h := newTestRouter(gen, &stubNotifUC{}, "")
			rec := doRequest(t, h, http.MethodPost, "/api/v1/generations/", "user-1", body)
			if rec.Code != http.StatusOK {
				t.Fatalf("outcome %s: want 200, got %d", outcome, rec.Code)
			}
		}
	})

	t.Run("invalid source returns 422", func(t *testing.T) {
		gen := &stubGenUC{requestErr: domain.ErrInvalidArgument}
		h := newTestRouter(gen, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/generations/", "user-1", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
	})

	t.Run("rate limited returns 429", func(t *testing.T) {
		gen := &stubGenUC{requestErr: domain.ErrRateLimited}
		h := newTestRouter(gen, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/generations/", "user-1", body)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("want 429, got %d", rec.Code)
		}
	})

	t.Run("bad json returns 400", func(t *testing.T) {
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/generations/", "user-1", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestJobStatus(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		gen := &stubGenUC{status: &model.JobStatusSnapshot{
			Status:         model.JobStatusCompleted,
			ResultCourseID: "course-1",
		}}
		h := newTestRouter(gen, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodGet, "/api/v1/generations/job-1", "user-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "completed") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("missing", func(t *testing.T) {
		gen := &stubGenUC{statusErr: domain.ErrNotFound}
		h := newTestRouter(gen, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodGet, "/api/v1/generations/missing", "user-1", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})
}

func TestListJobs(t *testing.T) {
	job := model.NewGenerationJob("go-basics", "", model.SourceTypeTopic, "user-1")
	gen := &stubGenUC{jobs: []*model.GenerationJob{job}}
	h := newTestRouter(gen, &stubNotifUC{}, "")

	rec := doRequest(t, h, http.MethodGet, "/api/v1/generations/?limit=5", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var res struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0]["source_id"] != "go-basics" {
		t.Fatalf("unexpected items: %v", res.Items)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		n := model.NewCourseReadyNotification("user-1", "course-1")
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{items: []*model.Notification{n}}, "")
		rec := doRequest(t, h, http.MethodGet, "/api/v1/notifications/", "user-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "/courses/course-1") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("unread count", func(t *testing.T) {
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{unread: 3}, "")
		rec := doRequest(t, h, http.MethodGet, "/api/v1/notifications/unread-count", "user-1", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":3`) {
			t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("mark read", func(t *testing.T) {
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/notifications/n-1/read", "user-1", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("want 204, got %d", rec.Code)
		}
	})

	t.Run("mark read missing", func(t *testing.T) {
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{markReadErr: domain.ErrNotFound}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/notifications/n-x/read", "user-1", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})

	t.Run("mark all read", func(t *testing.T) {
		h := newTestRouter(&stubGenUC{}, &stubNotifUC{markedAll: 2}, "")
		rec := doRequest(t, h, http.MethodPost, "/api/v1/notifications/read-all", "user-1", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"updated":2`) {
			t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
		}
	})
}
