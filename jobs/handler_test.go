package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/shared"
)

type memoryEnqueuer struct {
	payloads []LowStockScanPayload
	err      error
}

func (m *memoryEnqueuer) EnqueueLowStockScan(_ context.Context, payload LowStockScanPayload) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.payloads = append(m.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newTestRouter(enqueuer ScanEnqueuer) http.Handler {
	handler := NewHandler(nil, enqueuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route("/jobs", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, writer bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if writer {
		req.Header.Set(shared.ActorIDHeader, "42")
		req.Header.Set(shared.ActorRoleHeader, "admin")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTriggerLowStockScanEnqueuesTask(t *testing.T) {
	enqueuer := &memoryEnqueuer{}
	router := newTestRouter(enqueuer)

	rr := doRequest(t, router, http.MethodPost, "/jobs/lowstock-scan?limit=25", true)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "task-1", body["task_id"])
	require.Equal(t, QueueDefault, body["queue"])

	require.Len(t, enqueuer.payloads, 1)
	require.Equal(t, 25, enqueuer.payloads[0].Limit)
}

func TestTriggerLowStockScanRequiresWriter(t *testing.T) {
	enqueuer := &memoryEnqueuer{}
	router := newTestRouter(enqueuer)

	rr := doRequest(t, router, http.MethodPost, "/jobs/lowstock-scan", false)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, enqueuer.payloads)
}

func TestTriggerLowStockScanRejectsBadLimit(t *testing.T) {
	enqueuer := &memoryEnqueuer{}
	router := newTestRouter(enqueuer)

	rr := doRequest(t, router, http.MethodPost, "/jobs/lowstock-scan?limit=abc", true)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, enqueuer.payloads)
}

func TestTriggerLowStockScanReportsQueueFailure(t *testing.T) {
	router := newTestRouter(&memoryEnqueuer{err: errors.New("redis down")})

	rr := doRequest(t, router, http.MethodPost, "/jobs/lowstock-scan?limit=5", true)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthWithoutInspectorReportsEmptyQueue(t *testing.T) {
	router := newTestRouter(nil)

	rr := doRequest(t, router, http.MethodGet, "/jobs/health", false)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body["queue"])
	require.EqualValues(t, 0, body["pending"])
}
