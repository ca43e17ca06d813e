package domain

import "time"

type Material struct {
	ID                int32     `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Description       string    `json:"description"`
	TotalQuantity     int32     `json:"total_quantity"`
	AvailableQuantity int32     `json:"available_quantity"`
	// Price for materials stocked without variants. Ignored when Variants
	// is non-empty; each variant then carries its own price.
	PricePerDayCents int64     `json:"price_per_day_cents"`
	Variants         []Variant `json:"variants,omitempty"`
	CreatedOn        time.Time `json:"created_on"`
	UpdatedOn        time.Time `json:"updated_on"`
}

type Variant struct {
	ID                int32  `json:"id"`
	MaterialID        int32  `json:"material_id"`
	Label             string `json:"label"`
	PricePerDayCents  int64  `json:"price_per_day_cents"`
	TotalQuantity     int32  `json:"total_quantity"`
	AvailableQuantity int32  `json:"available_quantity"`
}

// Variant returns the variant with the given id, or nil.
func (m *Material) Variant(variantID int32) *Variant {
	for i := range m.Variants {
		if m.Variants[i].ID == variantID {
			return &m.Variants[i]
		}
	}
	return nil
}

// RecomputeAggregates derives the material's quantity fields from its
// variants. A material with variants never carries independent counts.
func (m *Material) RecomputeAggregates() {
	if len(m.Variants) == 0 {
		return
	}
	var total, available int32
	for i := range m.Variants {
		total += m.Variants[i].TotalQuantity
		available += m.Variants[i].AvailableQuantity
	}
	m.TotalQuantity = total
	m.AvailableQuantity = available
}
