package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/service"
)

// MaterialHandler exposes the catalog and the manual stock-adjust endpoint
type MaterialHandler struct {
	inventory service.InventoryService
}

func NewMaterialHandler(inventory service.InventoryService) *MaterialHandler {
	return &MaterialHandler{inventory: inventory}
}

func (h *MaterialHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/materials", h.CreateMaterial).Methods(http.MethodPost)
	r.HandleFunc("/api/materials", h.ListMaterials).Methods(http.MethodGet)
	r.HandleFunc("/api/materials/{id}", h.GetMaterial).Methods(http.MethodGet)
	r.HandleFunc("/api/materials/{id}/adjust", h.AdjustStock).Methods(http.MethodPost)
	r.HandleFunc("/api/materials/{id}/variants/{variantId}/price", h.UpdateVariantPrice).Methods(http.MethodPut)
}

type createMaterialRequest struct {
	Name             string                 `json:"name"`
	Category         string                 `json:"category"`
	Description      string                 `json:"description"`
	PricePerDayCents int64                  `json:"price_per_day_cents"`
	TotalQuantity    int32                  `json:"total_quantity"`
	Variants         []createVariantRequest `json:"variants"`
}

type createVariantRequest struct {
	Label            string `json:"label"`
	PricePerDayCents int64  `json:"price_per_day_cents"`
	TotalQuantity    int32  `json:"total_quantity"`
}

func (h *MaterialHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	material := &domain.Material{
		Name:             req.Name,
		Category:         req.Category,
		Description:      req.Description,
		PricePerDayCents: req.PricePerDayCents,
		TotalQuantity:    req.TotalQuantity,
	}
	for _, v := range req.Variants {
		material.Variants = append(material.Variants, domain.Variant{
			Label:            v.Label,
			PricePerDayCents: v.PricePerDayCents,
			TotalQuantity:    v.TotalQuantity,
		})
	}

	if err := h.inventory.CreateMaterial(r.Context(), material); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, material)
}

func (h *MaterialHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.inventory.ListMaterials(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *MaterialHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	material, err := h.inventory.GetMaterial(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

type adjustStockRequest struct {
	VariantID *int32 `json:"variant_id,omitempty"`
	Delta     int32  `json:"delta"`
}

func (h *MaterialHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}
	material, err := h.inventory.AdjustStock(r.Context(), id, req.VariantID, req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

type updatePriceRequest struct {
	PricePerDayCents int64 `json:"price_per_day_cents"`
}

func (h *MaterialHandler) UpdateVariantPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	variantID, err := pathID(r, "variantId")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("invalid request body: %v", err))
		return
	}
	if err := h.inventory.UpdateVariantPrice(r.Context(), id, variantID, req.PricePerDayCents); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid %s: %q", name, raw)
	}
	return int32(id), nil
}
