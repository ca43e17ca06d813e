package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/service"
)

// RentalHandler exposes the three core operations of the engine plus reads
type RentalHandler struct {
	rentals service.RentalService
}

func NewRentalHandler(rentals service.RentalService) *RentalHandler {
	return &RentalHandler{rentals: rentals}
}

func (h *RentalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/rentals", h.CreateRental).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals", h.ListRentals).Methods(http.MethodGet)
	r.HandleFunc("/api/rentals/{id}", h.GetRental).Methods(http.MethodGet)
	r.HandleFunc("/api/rentals/{id}/returns", h.ApplyReturns).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals/{id}/return-all", h.ReturnAll).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals/{id}/payments", h.AddPayment).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals/{id}/cancel", h.CancelRental).Methods(http.MethodPost)
}

type createRentalRequest struct {
	CustomerName       string              `json:"customer_name"`
	CustomerPhone      string              `json:"customer_phone"`
	ExpectedReturnDate string              `json:"expected_return_date"` // YYYY-MM-DD
	PaidAmountCents    int64               `json:"paid_amount_cents"`
	Items              []rentalItemRequest `json:"items"`
}

type rentalItemRequest struct {
	MaterialID       int32  `json:"material_id"`
	VariantID        *int32 `json:"variant_id,omitempty"`
	PricePerDayCents int64  `json:"price_per_day_cents"`
	Qty              int32  `json:"qty"`
}

func (h *RentalHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	input := service.CreateRentalInput{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PaidAmountCents: req.PaidAmountCents,
	}
	if req.ExpectedReturnDate != "" {
		date, err := time.Parse("2006-01-02", req.ExpectedReturnDate)
		if err != nil {
			writeError(w, domain.NewValidationError("invalid expected_return_date: %q", req.ExpectedReturnDate))
			return
		}
		input.ExpectedReturnDate = &date
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.RentalItemInput{
			MaterialID:       item.MaterialID,
			VariantID:        item.VariantID,
			PricePerDayCents: item.PricePerDayCents,
			Qty:              item.Qty,
		})
	}

	rental, err := h.rentals.CreateRental(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	rentals, count, err := h.rentals.ListRentals(r.Context(), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentals": rentals, "total": count})
}

func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, err := h.rentals.GetRental(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

type returnRequest struct {
	Items []returnItemRequest `json:"items"`
}

type returnItemRequest struct {
	MaterialID int32  `json:"material_id"`
	VariantID  *int32 `json:"variant_id,omitempty"`
	Qty        int32  `json:"qty"`
}

func (h *RentalHandler) ApplyReturns(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}
	returns := make([]service.ReturnItem, 0, len(req.Items))
	for _, item := range req.Items {
		returns = append(returns, service.ReturnItem{MaterialID: item.MaterialID, VariantID: item.VariantID, Qty: item.Qty})
	}
	rental, err := h.rentals.ApplyReturns(r.Context(), id, returns)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) ReturnAll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, err := h.rentals.ReturnAll(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

type paymentRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *RentalHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}
	rental, err := h.rentals.AddPayment(r.Context(), id, req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *RentalHandler) CancelRental(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rental, err := h.rentals.CancelRental(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func pagination(r *http.Request) (int32, int32) {
	page := int32(1)
	pageSize := int32(20)
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n > 0 {
			page = int32(n)
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n > 0 {
			pageSize = int32(n)
		}
	}
	return page, pageSize
}
