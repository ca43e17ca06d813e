package domain

import "time"

type RentalStatus string

const (
	RentalStatusActive          RentalStatus = "ACTIVE"
	RentalStatusPartialReturned RentalStatus = "PARTIAL_RETURNED"
	RentalStatusReturned        RentalStatus = "RETURNED"
	RentalStatusCancelled       RentalStatus = "CANCELLED"
)

type Rental struct {
	ID                 int32        `json:"id"`
	CustomerName       string       `json:"customer_name"`
	CustomerPhone      string       `json:"customer_phone"`
	RentedAt           time.Time    `json:"rented_at"`
	ExpectedReturnDate *time.Time   `json:"expected_return_date,omitempty"`
	Status             RentalStatus `json:"status"`
	TotalAmountCents   int64        `json:"total_amount_cents"`
	PaidAmountCents    int64        `json:"paid_amount_cents"`
	DueAmountCents     int64        `json:"due_amount_cents"`
	Items              []LineItem   `json:"items"`
	CreatedOn          time.Time    `json:"created_on"`
	UpdatedOn          time.Time    `json:"updated_on"`
}

type LineItem struct {
	ID         int32  `json:"id"`
	RentalID   int32  `json:"rental_id"`
	MaterialID int32  `json:"material_id"`
	VariantID  *int32 `json:"variant_id,omitempty"`
	// Snapshot fields — captured from the catalog at rental creation time.
	// All amounts are computed from these snapshots, not live prices.
	Label            string `json:"label"`
	PricePerDayCents int64  `json:"price_per_day_cents"`
	SubtotalCents    int64  `json:"subtotal_cents"`
	QtyRented        int32  `json:"qty_rented"`
	QtyReturned      int32  `json:"qty_returned"`
}

// Remaining is the quantity still out with the customer.
func (li *LineItem) Remaining() int32 {
	return li.QtyRented - li.QtyReturned
}

// Matches reports whether the line refers to the given material/variant pair.
func (li *LineItem) Matches(materialID int32, variantID *int32) bool {
	if li.MaterialID != materialID {
		return false
	}
	if li.VariantID == nil || variantID == nil {
		return li.VariantID == nil && variantID == nil
	}
	return *li.VariantID == *variantID
}

// DeriveStatus recomputes the lifecycle state from the line items alone.
// It is recomputed from scratch after every return, never patched
// incrementally. Cancellation is not derived; it is set explicitly and a
// cancelled rental is never fed back through this function.
func DeriveStatus(items []LineItem) RentalStatus {
	allReturned := len(items) > 0
	anyReturned := false
	for i := range items {
		if items[i].QtyReturned > 0 {
			anyReturned = true
		}
		if items[i].QtyReturned < items[i].QtyRented {
			allReturned = false
		}
	}
	switch {
	case allReturned:
		return RentalStatusReturned
	case anyReturned:
		return RentalStatusPartialReturned
	default:
		return RentalStatusActive
	}
}

// DueAmount is the outstanding balance. Overpayment yields zero, never a
// negative due.
func DueAmount(totalCents, paidCents int64) int64 {
	if paidCents >= totalCents {
		return 0
	}
	return totalCents - paidCents
}
