package domain

import (
	"time"

	"github.com/google/uuid"
)

type MovementReason string

const (
	MovementReasonReserve MovementReason = "RESERVE"
	MovementReasonRelease MovementReason = "RELEASE"
	MovementReasonAdjust  MovementReason = "ADJUST"
)

// StockMovement is an audit record of one signed adjustment to a stock
// counter. Movements are written after the adjustment succeeds; they are a
// trail, not the source of truth.
type StockMovement struct {
	ID         string         `json:"id"`
	MaterialID int32          `json:"material_id"`
	VariantID  *int32         `json:"variant_id,omitempty"`
	Delta      int32          `json:"delta"`
	Reason     MovementReason `json:"reason"`
	RentalID   *int32         `json:"rental_id,omitempty"`
	CreatedOn  time.Time      `json:"created_on"`
}

func NewStockMovement(materialID int32, variantID *int32, delta int32, reason MovementReason, rentalID *int32) *StockMovement {
	return &StockMovement{
		ID:         uuid.NewString(),
		MaterialID: materialID,
		VariantID:  variantID,
		Delta:      delta,
		Reason:     reason,
		RentalID:   rentalID,
		CreatedOn:  time.Now().UTC(),
	}
}
