package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes the purchase order JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.openDraft)
		r.Get("/{id}", h.getDraft)
		r.Delete("/{id}", h.discardDraft)
		r.Patch("/{id}/header", h.updateHeader)
		r.Post("/{id}/items", h.addItems)
		r.Patch("/{id}/items/{lineID}", h.updateLine)
		r.Delete("/{id}/items/{lineID}", h.removeLine)
		r.Post("/{id}/submit", h.submit)
	})
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{number}", h.showOrder)
}

type openDraftRequest struct {
	ExistingPONumber string `json:"existing_po_number" validate:"omitempty,max=64"`
}

type headerRequest struct {
	SupplierID           *string `json:"supplier_id" validate:"omitempty,max=64"`
	BranchID             *string `json:"branch_id" validate:"omitempty,max=64"`
	OrderDate            *string `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	ExpectedDeliveryDate *string `json:"expected_delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Notes                *string `json:"notes" validate:"omitempty,max=2000"`
}

type addItemsRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
}

// quantity is stored as a Postgres INTEGER.
type lineRequest struct {
	Quantity  *int    `json:"quantity" validate:"omitempty,max=2147483647"`
	UnitPrice *int64  `json:"unit_price" validate:"omitempty,max=1000000000000000"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

type submitRequest struct {
	AsDraft bool `json:"as_draft"`
}

func (h *Handler) openDraft(w http.ResponseWriter, r *http.Request) {
	var req openDraftRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	view, err := h.service.OpenDraft(r.Context(), OpenDraftInput{ExistingPONumber: req.ExistingPONumber})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) discardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DiscardDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	var req headerRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := HeaderInput{SupplierID: req.SupplierID, BranchID: req.BranchID, Notes: req.Notes}
	if req.OrderDate != nil {
		at, err := parseDate(*req.OrderDate)
		if err != nil {
			h.writeFieldError(w, "order_date", err)
			return
		}
		if at.IsZero() {
			h.writeFieldError(w, "order_date", errors.New("order date is required"))
			return
		}
		input.OrderDate = &at
	}
	if req.ExpectedDeliveryDate != nil {
		at, err := parseDate(*req.ExpectedDeliveryDate)
		if err != nil {
			h.writeFieldError(w, "expected_delivery_date", err)
			return
		}
		input.ExpectedDeliveryDate = &at
	}
	view, err := h.service.UpdateHeader(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) addItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.AddProducts(r.Context(), chi.URLParam(r, "id"), req.ProductIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := LineInput{Quantity: req.Quantity, Notes: req.Notes}
	if req.UnitPrice != nil {
		price := Money(*req.UnitPrice)
		input.UnitPrice = &price
	}
	view, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	result, err := h.service.SubmitDraft(r.Context(), chi.URLParam(r, "id"), req.AsDraft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	filters := ListFilters{
		Status:     query.Get("status"),
		SupplierID: query.Get("supplier_id"),
		BranchID:   query.Get("branch_id"),
		Search:     query.Get("search"),
		SortBy:     query.Get("sort"),
		SortDir:    query.Get("dir"),
	}
	items, total, err := h.service.ListPOs(r.Context(), limit, offset, filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []POListItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     items,
		"total":      total,
		"pagination": shared.PaginationFromOffset(limit, offset, total),
	})
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetPO(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return false
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Code:   "INVALID_REQUEST",
			Fields: fields,
		})
		return false
	}
	return true
}

func (h *Handler) writeFieldError(w http.ResponseWriter, field string, err error) {
	httpx.WriteProblem(w, httpx.ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusUnprocessableEntity,
		Detail: err.Error(),
		Code:   "INVALID_REQUEST",
		Fields: map[string]string{field: err.Error()},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: verr.Message,
			Code:   string(verr.Code),
		})
	case errors.Is(err, ErrUnknownSupplier):
		h.unprocessable(w, "UNKNOWN_SUPPLIER", err)
	case errors.Is(err, ErrUnknownBranch):
		h.unprocessable(w, "UNKNOWN_BRANCH", err)
	case errors.Is(err, ErrDeliveryBeforeOrder):
		h.unprocessable(w, "DELIVERY_BEFORE_ORDER", err)
	case errors.Is(err, ErrAmountOverflow):
		h.unprocessable(w, "AMOUNT_OUT_OF_RANGE", err)
	case errors.Is(err, ErrDraftNotFound), errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDraftConflict), errors.Is(err, ErrInvalidState), errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("procurement request", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) unprocessable(w http.ResponseWriter, code string, err error) {
	httpx.WriteProblem(w, httpx.ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusUnprocessableEntity,
		Detail: err.Error(),
		Code:   code,
	})
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}
