package customer

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/httpx"
)

// Handler wires HTTP endpoints for customer balances.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a customer handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/rate-cuts", h.handleRateCuts)
		r.Put("/{id}/rate-cuts", h.handleSetRateCut)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.List(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get customer", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleRateCuts(w http.ResponseWriter, r *http.Request) {
	cuts, err := h.service.RateCuts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("rate cuts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, cuts)
}

type rateCutRequest struct {
	Metal        string    `json:"metal" validate:"required,oneof=gold999 gold995 silver"`
	LockedBefore time.Time `json:"locked_before" validate:"required"`
}

func (h *Handler) handleSetRateCut(w http.ResponseWriter, r *http.Request) {
	var req rateCutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cut := RateCut{
		CustomerID:   chi.URLParam(r, "id"),
		Metal:        bullion.Metal(req.Metal),
		LockedBefore: req.LockedBefore,
	}
	if err := h.service.RecordRateCut(r.Context(), cut); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, cut)
}
