package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sarafa-ledger/sarafa-ledger/internal/bullion"
	"github.com/sarafa-ledger/sarafa-ledger/internal/observability"
	"github.com/sarafa-ledger/sarafa-ledger/internal/payments"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/httpx"
)

// PaymentsPort reads the cash-flow history attached to a transaction.
type PaymentsPort interface {
	ListByTransaction(ctx context.Context, transactionID string) ([]payments.Entry, error)
}

// Handler wires HTTP endpoints for the transaction ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	payments PaymentsPort
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs a ledger handler.
func NewHandler(logger *slog.Logger, service *Service, pays PaymentsPort, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		payments: pays,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/recent", h.handleRecent)
		r.Get("/deleted", h.handleDeleted)
		r.Post("/cleanup", h.handleCleanup)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Post("/restore", h.handleRestore)
			r.Delete("/purge", h.handlePurge)
			r.Get("/payments", h.handlePayments)
		})
	})
}

type entryRequest struct {
	Kind       string          `json:"kind" validate:"required,oneof=sell purchase money"`
	ItemType   string          `json:"item_type" validate:"omitempty,oneof=gold999 gold995 rani silver rupu"`
	Weight     decimal.Decimal `json:"weight"`
	Price      decimal.Decimal `json:"price"`
	Touch      decimal.Decimal `json:"touch"`
	Cut        decimal.Decimal `json:"cut"`
	MetalOnly  bool            `json:"metal_only"`
	StockLotID string          `json:"stock_lot_id"`
	MoneyType  string          `json:"money_type" validate:"omitempty,oneof=give receive"`
	Amount     decimal.Decimal `json:"amount"`
}

type createRequest struct {
	CustomerID     string          `json:"customer_id" validate:"required"`
	Entries        []entryRequest  `json:"entries" validate:"required,min=1,dive"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	DiscountExtra  decimal.Decimal `json:"discount_extra_amount"`
	Date           *time.Time      `json:"date"`
	Note           string          `json:"note"`
}

type updateRequest struct {
	Entries        []entryRequest  `json:"entries" validate:"required,min=1,dive"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	DiscountExtra  decimal.Decimal `json:"discount_extra_amount"`
	Date           *time.Time      `json:"date"`
	Note           string          `json:"note"`
}

func toEntryInputs(reqs []entryRequest) []EntryInput {
	inputs := make([]EntryInput, 0, len(reqs))
	for _, r := range reqs {
		inputs = append(inputs, EntryInput{
			Kind:       Kind(r.Kind),
			Item:       bullion.Item(r.ItemType),
			Weight:     r.Weight,
			Price:      r.Price,
			Touch:      r.Touch,
			Cut:        r.Cut,
			MetalOnly:  r.MetalOnly,
			StockLotID: r.StockLotID,
			Direction:  MoneyDirection(r.MoneyType),
			Amount:     r.Amount,
		})
	}
	return inputs
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInventoryConflict):
		httpx.Problem(w, http.StatusConflict, "Stock Conflict", err.Error())
	case errors.Is(err, ErrEditLocked):
		httpx.Problem(w, http.StatusLocked, "Edit Locked", err.Error())
	default:
		h.logger.Error("ledger handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateInput{
		CustomerID:     req.CustomerID,
		Entries:        toEntryInputs(req.Entries),
		ReceivedAmount: req.ReceivedAmount,
		DiscountExtra:  req.DiscountExtra,
		Note:           req.Note,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	t, err := h.service.Create(r.Context(), in)
	h.metrics.LedgerOp("create", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := UpdateInput{
		Entries:        toEntryInputs(req.Entries),
		ReceivedAmount: req.ReceivedAmount,
		DiscountExtra:  req.DiscountExtra,
		Date:           req.Date,
		Note:           req.Note,
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	h.metrics.LedgerOp("update", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

// handleList serves both by-customer and by-date-range history queries.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if customerID := q.Get("customer_id"); customerID != "" {
		httpx.JSON(w, http.StatusOK, h.service.ByCustomer(r.Context(), customerID))
		return
	}
	fromStr, toStr := q.Get("from"), q.Get("to")
	if fromStr == "" || toStr == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "customer_id or from/to required")
		return
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
		return
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ByDateRange(r.Context(), from, to.Add(24*time.Hour-time.Nanosecond)))
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	exclude := r.URL.Query().Get("exclude_customer")
	httpx.JSON(w, http.StatusOK, h.service.Recent(r.Context(), limit, exclude))
}

func (h *Handler) handleDeleted(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Deleted(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	h.metrics.LedgerOp("delete", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	err := h.service.Restore(r.Context(), chi.URLParam(r, "id"))
	h.metrics.LedgerOp("restore", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	err := h.service.Purge(r.Context(), chi.URLParam(r, "id"))
	h.metrics.LedgerOp("purge", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetByID(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	entries, err := h.payments.ListByTransaction(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	count, err := h.service.CleanupExpired(r.Context(), days)
	h.metrics.LedgerOp("cleanup", err)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"purged": count})
}
