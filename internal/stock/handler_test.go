package stock

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(repo *memoryRepo) http.Handler {
	svc, _, _ := newStockService(repo)
	handler := NewHandler(discardLogger(), svc)
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route("/stock", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, writer bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if writer {
		req.Header.Set(shared.ActorIDHeader, "42")
		req.Header.Set(shared.ActorRoleHeader, "admin")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAddStock(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":5,"unit_type":"base_unit"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	var result MovementResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, 60.0, result.Snapshot.StockPcs)
	require.True(t, strings.HasPrefix(result.Movement.ReferenceNumber, "STOCK-"))
}

func TestHandlerRejectsAnonymousWrites(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":5,"unit_type":"pieces"}`, false)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerRejectsViewerWrites(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	req := httptest.NewRequest(http.MethodPost, "/stock/1/add", strings.NewReader(`{"quantity":5,"unit_type":"pieces"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.ActorIDHeader, "7")
	req.Header.Set(shared.ActorRoleHeader, "viewer")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandlerValidationErrors(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":-1,"unit_type":"pieces"}`, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":5,"unit_type":"carton"}`, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/stock/1/add", `not json`, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/stock/abc/add", `{"quantity":5,"unit_type":"pieces"}`, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerInsufficientStock(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":84,"unit_type":"pieces"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/stock/1/reduce", `{"quantity":90,"unit_type":"pieces"}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, 90.0, payload["requested"])
	require.Equal(t, 84.0, payload["available"])
	require.Equal(t, "pieces", payload["unit_type"])
}

func TestHandlerUnknownProduct(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/99/add", `{"quantity":5,"unit_type":"pieces"}`, true)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/stock/99/status", "", false)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerStatusAndLow(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodGet, "/stock/1/status", "", false)
	require.Equal(t, http.StatusOK, rr.Code)

	var info StatusInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Equal(t, StatusLowStock, info.Status)

	rr = doRequest(t, router, http.MethodGet, "/stock/low", "", false)
	require.Equal(t, http.StatusOK, rr.Code)

	var listing map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Equal(t, 1.0, listing["count"])
}

func TestHandlerMovementsDateFilter(t *testing.T) {
	router := newTestRouter(newMemoryRepo(testProduct()))

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":5,"unit_type":"base_unit","notes":"restock"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/stock/1/movements?from=2026-03-01&to=2026-03-31", "", false)
	require.Equal(t, http.StatusOK, rr.Code)

	var listing map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Equal(t, 1.0, listing["count"])

	rr = doRequest(t, router, http.MethodGet, "/stock/1/movements?from=bogus", "", false)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerReconcile(t *testing.T) {
	repo := newMemoryRepo(testProduct())
	router := newTestRouter(repo)

	rr := doRequest(t, router, http.MethodPost, "/stock/1/add", `{"quantity":5,"unit_type":"base_unit"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	repo.products[1].Snapshot.StockPcs = 999

	rr = doRequest(t, router, http.MethodPost, "/stock/1/reconcile", "", true)
	require.Equal(t, http.StatusOK, rr.Code)

	var report ReconcileReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.False(t, report.Consistent)
	require.True(t, report.Repaired)
	require.Equal(t, 60.0, repo.products[1].Snapshot.StockPcs)
}
