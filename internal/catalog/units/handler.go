package units

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	"github.com/kasirpos/kasirpos/internal/platform/httpx"
	internalShared "github.com/kasirpos/kasirpos/internal/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes mounts the registry under /products/{productID}/units.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(internalShared.RequireWriter)
		r.Post("/", h.Create)
		r.Put("/{unitID}", h.Update)
		r.Delete("/{unitID}", h.Deactivate)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	views, err := h.service.List(r.Context(), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": views})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), productID, form)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.unitID(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), unitID, form)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.unitID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), unitID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (UnitForm, bool) {
	var form UnitForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return UnitForm{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0]
			httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "constraint "+field.Tag()+" violated", field.Field())
			return UnitForm{}, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return UnitForm{}, false
	}
	return form, true
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "invalid product id", "productID")
		return 0, false
	}
	return id, true
}

func (h *Handler) unitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "unitID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id", "unitID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnitNotFound), errors.Is(err, shared.ErrInvalidID):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product unit not found")
	case errors.Is(err, ErrCannotRemoveBaseUnit):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrRequiredField):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, stock.ErrInvalidConversionFactor):
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), "conversion_factor")
	default:
		h.logger.Error("product unit request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
