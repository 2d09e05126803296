package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// Handler wires HTTP endpoints for the stock module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/low", h.handleLowStock)
	r.Get("/{productID}/status", h.handleStatus)
	r.Get("/{productID}/movements", h.handleMovements)
	r.Group(func(r chi.Router) {
		r.Use(shared.RequireWriter)
		r.Post("/{productID}/add", h.handleAdd)
		r.Post("/{productID}/reduce", h.handleReduce)
		r.Post("/{productID}/reconcile", h.handleReconcile)
	})
}

type movementRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	UnitType string  `json:"unit_type" validate:"required,oneof=pieces base_unit"`
	Notes    string  `json:"notes" validate:"max=500"`
	RefID    string  `json:"ref_id" validate:"omitempty,uuid"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, DirectionInbound)
}

func (h *Handler) handleReduce(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, DirectionOutbound)
}

func (h *Handler) handleMovement(w http.ResponseWriter, r *http.Request, direction Direction) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0]
			httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "constraint "+field.Tag()+" violated", field.Field())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := MovementInput{
		ProductID:      productID,
		Quantity:       req.Quantity,
		UnitType:       UnitType(req.UnitType),
		Notes:          req.Notes,
		RefID:          req.RefID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}

	var result MovementResult
	var err error
	if direction == DirectionInbound {
		result, err = h.service.AddStock(r.Context(), input)
	} else {
		result, err = h.service.ReduceStock(r.Context(), input)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	filter := HistoryFilter{ProductID: productID}
	q := r.URL.Query()
	if fromStr := q.Get("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "invalid from date", "from")
			return
		}
		filter.From = from
	}
	if toStr := q.Get("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "invalid to date", "to")
			return
		}
		// end of day
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	movements, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements, "count": len(movements)})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	info, err := h.service.Status(r.Context(), productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	infos, err := h.service.LowStock(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": infos, "count": len(infos)})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	repair := r.URL.Query().Get("repair") != "false"
	report, err := h.service.Reconcile(r.Context(), productID, repair)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !report.Consistent {
		h.logger.Warn("stock snapshot diverged from ledger",
			slog.Int64("product_id", report.ProductID),
			slog.Float64("stored_pcs", report.Stored.StockPcs),
			slog.Float64("replayed_pcs", report.Replayed.StockPcs),
			slog.Bool("repaired", report.Repaired))
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "invalid product id", "productID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *InsufficientStockError
	var reconciliation *SnapshotReconciliationError
	switch {
	case errors.As(err, &insufficient):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":         "Insufficient Stock",
			"status":        http.StatusUnprocessableEntity,
			"detail":        insufficient.Error(),
			"requested":     insufficient.Requested,
			"available":     insufficient.Available,
			"available_pcs": insufficient.AvailablePcs,
			"unit_type":     insufficient.UnitType,
			"product_id":    insufficient.ProductID,
		})
	case errors.As(err, &reconciliation):
		h.logger.Error("stock snapshot reconciliation required",
			slog.Int64("product_id", reconciliation.ProductID),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Snapshot Reconciliation Required", "stock snapshot update failed; a replay has been scheduled")
	case errors.Is(err, ErrInvalidQuantity):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "quantity")
	case errors.Is(err, ErrInvalidMovementData):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "unit_type")
	case errors.Is(err, ErrInvalidConversionFactor):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "pcs_per_base_unit")
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error("stock request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
