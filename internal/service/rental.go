package service

import (
	"context"
	"time"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/logger"
	"shuttering-manager/internal/repository"
)

type rentalService struct {
	rentalRepo   repository.RentalRepository
	materialRepo repository.MaterialRepository
	movementRepo repository.MovementRepository
}

func NewRentalService(
	rentalRepo repository.RentalRepository,
	materialRepo repository.MaterialRepository,
	movementRepo repository.MovementRepository,
) RentalService {
	return &rentalService{
		rentalRepo:   rentalRepo,
		materialRepo: materialRepo,
		movementRepo: movementRepo,
	}
}

// reservedLine is one validated line with its catalog snapshot resolved.
type reservedLine struct {
	input RentalItemInput
	label string
	price int64
}

// CreateRental reserves stock for every line item and persists the rental,
// all-or-nothing. Reservations already applied when a later line fails are
// released again before the error is reported, so a failed request leaves
// every counter exactly where it found it.
func (s *rentalService) CreateRental(ctx context.Context, in CreateRentalInput) (*domain.Rental, error) {
	if in.CustomerName == "" {
		return nil, domain.NewValidationError("customer name is required")
	}
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("rental must have at least one item")
	}
	if in.PaidAmountCents < 0 {
		return nil, domain.NewValidationError("initial payment must not be negative")
	}

	// Resolve and validate every line before touching a single counter.
	lines := make([]reservedLine, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Qty <= 0 {
			return nil, domain.NewValidationError("quantity must be positive").WithItem(item.MaterialID, item.VariantID)
		}
		if item.PricePerDayCents < 0 {
			return nil, domain.NewValidationError("price must not be negative").WithItem(item.MaterialID, item.VariantID)
		}

		material, err := s.materialRepo.GetByID(ctx, item.MaterialID)
		if err != nil {
			return nil, err
		}

		label := material.Name
		price := item.PricePerDayCents
		if item.VariantID != nil {
			variant := material.Variant(*item.VariantID)
			if variant == nil {
				return nil, domain.NewNotFoundError("variant %d of material %d not found", *item.VariantID, item.MaterialID).
					WithItem(item.MaterialID, item.VariantID)
			}
			label = material.Name + " " + variant.Label
			if price == 0 {
				price = variant.PricePerDayCents
			}
		} else {
			if len(material.Variants) > 0 {
				return nil, domain.NewValidationError("material %q has variants; a variant must be chosen", material.Name).
					WithItem(item.MaterialID, nil)
			}
			if price == 0 {
				price = material.PricePerDayCents
			}
		}
		lines = append(lines, reservedLine{input: item, label: label, price: price})
	}

	// Reserve line by line, undoing on the first failure. OutOfStock,
	// NotFound and cancellation all take the same compensation path.
	var reserved []reservedLine
	release := func() {
		// Compensation must run even when ctx is already cancelled.
		rctx := context.WithoutCancel(ctx)
		for i := len(reserved) - 1; i >= 0; i-- {
			ln := reserved[i]
			if rerr := s.materialRepo.AdjustStock(rctx, ln.input.MaterialID, ln.input.VariantID, ln.input.Qty); rerr != nil {
				// A failed compensating release leaves a counter short.
				logger.Error("compensating stock release failed",
					"material_id", ln.input.MaterialID, "qty", ln.input.Qty, "error", rerr)
			}
		}
	}

	for _, ln := range lines {
		if err := s.materialRepo.AdjustStock(ctx, ln.input.MaterialID, ln.input.VariantID, -ln.input.Qty); err != nil {
			release()
			return nil, err
		}
		reserved = append(reserved, ln)
	}

	var total int64
	items := make([]domain.LineItem, 0, len(lines))
	for _, ln := range lines {
		subtotal := ln.price * int64(ln.input.Qty)
		total += subtotal
		items = append(items, domain.LineItem{
			MaterialID:       ln.input.MaterialID,
			VariantID:        ln.input.VariantID,
			Label:            ln.label,
			PricePerDayCents: ln.price,
			SubtotalCents:    subtotal,
			QtyRented:        ln.input.Qty,
			QtyReturned:      0,
		})
	}

	rental := &domain.Rental{
		CustomerName:       in.CustomerName,
		CustomerPhone:      in.CustomerPhone,
		RentedAt:           time.Now(),
		ExpectedReturnDate: in.ExpectedReturnDate,
		Status:             domain.RentalStatusActive,
		TotalAmountCents:   total,
		PaidAmountCents:    in.PaidAmountCents,
		DueAmountCents:     domain.DueAmount(total, in.PaidAmountCents),
		Items:              items,
	}
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		release()
		return nil, err
	}

	for i := range rental.Items {
		li := &rental.Items[i]
		recordMovement(ctx, s.movementRepo,
			domain.NewStockMovement(li.MaterialID, li.VariantID, -li.QtyRented, domain.MovementReasonReserve, &rental.ID))
	}
	logger.Info("rental created",
		"rental_id", rental.ID, "customer", rental.CustomerName,
		"items", len(rental.Items), "total_cents", rental.TotalAmountCents)
	return rental, nil
}

func (s *rentalService) GetRental(ctx context.Context, id int32) (*domain.Rental, error) {
	return s.rentalRepo.GetByID(ctx, id)
}

func (s *rentalService) ListRentals(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.rentalRepo.List(ctx, status, page, pageSize)
}

// ApplyReturns takes back stock against an existing rental. The batch is
// evaluated up front: either every requested return is applicable or the
// whole request is rejected before any stock moves. Quantities are never
// clamped; a return exceeding what is still out is an error, not a hint.
func (s *rentalService) ApplyReturns(ctx context.Context, rentalID int32, returns []ReturnItem) (*domain.Rental, error) {
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rt.Status == domain.RentalStatusCancelled {
		return nil, domain.NewConflictError("rental %d is cancelled", rentalID)
	}
	if len(returns) == 0 {
		return nil, domain.NewValidationError("no items to return")
	}

	// Fold duplicate references to the same line so a batch cannot sneak
	// past the remaining-quantity check in two pieces.
	perLine := make(map[int]int32)
	for _, ret := range returns {
		if ret.Qty <= 0 {
			return nil, domain.NewValidationError("returned quantity must be positive").WithItem(ret.MaterialID, ret.VariantID)
		}
		idx := -1
		for i := range rt.Items {
			if rt.Items[i].Matches(ret.MaterialID, ret.VariantID) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, domain.NewNotFoundError("rental %d has no matching line item", rentalID).WithItem(ret.MaterialID, ret.VariantID)
		}
		perLine[idx] += ret.Qty
	}

	for idx, qty := range perLine {
		li := &rt.Items[idx]
		remaining := li.Remaining()
		if remaining <= 0 {
			return nil, domain.NewConflictError("item %q is already fully returned", li.Label).WithItem(li.MaterialID, li.VariantID)
		}
		if qty > remaining {
			return nil, domain.NewValidationError("return of %d exceeds remaining %d for item %q", qty, remaining, li.Label).
				WithItem(li.MaterialID, li.VariantID)
		}
	}

	// The batch is valid; release stock and advance the line counters.
	// Releases already applied are re-reserved if anything after them
	// fails, so a rejected request never leaves stock on the shelf that
	// the ledger still counts as out.
	var released []domain.LineItem
	undo := func() {
		rctx := context.WithoutCancel(ctx)
		for i := len(released) - 1; i >= 0; i-- {
			li := released[i]
			if rerr := s.materialRepo.AdjustStock(rctx, li.MaterialID, li.VariantID, -li.QtyReturned); rerr != nil {
				logger.Error("compensating stock re-reserve failed",
					"rental_id", rentalID, "material_id", li.MaterialID, "qty", li.QtyReturned, "error", rerr)
			}
		}
	}

	increments := make(map[int32]int32, len(perLine))
	for idx := range rt.Items {
		qty, ok := perLine[idx]
		if !ok {
			continue
		}
		li := &rt.Items[idx]
		if err := s.materialRepo.AdjustStock(ctx, li.MaterialID, li.VariantID, qty); err != nil {
			logger.Error("stock release failed mid-return",
				"rental_id", rentalID, "material_id", li.MaterialID, "qty", qty, "error", err)
			undo()
			return nil, err
		}
		released = append(released, domain.LineItem{MaterialID: li.MaterialID, VariantID: li.VariantID, QtyReturned: qty})
		li.QtyReturned += qty
		increments[li.ID] = qty
	}

	status := domain.DeriveStatus(rt.Items)
	if err := s.rentalRepo.ApplyReturns(ctx, rt.ID, increments, status); err != nil {
		// A concurrent return can win the line-item guard between our
		// validation read and this write; the loser hands its units back.
		undo()
		return nil, err
	}
	for _, li := range released {
		recordMovement(ctx, s.movementRepo,
			domain.NewStockMovement(li.MaterialID, li.VariantID, li.QtyReturned, domain.MovementReasonRelease, &rt.ID))
	}
	rt.Status = status
	logger.Info("returns applied", "rental_id", rt.ID, "lines", len(increments), "status", rt.Status)
	return rt, nil
}

// ReturnAll closes out a rental by returning exactly what is still out. It
// computes the remaining quantities itself, so it can never be rejected for
// exceeding them.
func (s *rentalService) ReturnAll(ctx context.Context, rentalID int32) (*domain.Rental, error) {
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rt.Status == domain.RentalStatusCancelled {
		return nil, domain.NewConflictError("rental %d is cancelled", rentalID)
	}

	var returns []ReturnItem
	for i := range rt.Items {
		li := &rt.Items[i]
		if remaining := li.Remaining(); remaining > 0 {
			returns = append(returns, ReturnItem{MaterialID: li.MaterialID, VariantID: li.VariantID, Qty: remaining})
		}
	}
	if len(returns) == 0 {
		return nil, domain.NewConflictError("rental %d has nothing outstanding", rentalID)
	}
	return s.ApplyReturns(ctx, rentalID, returns)
}

func (s *rentalService) AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error) {
	if amountCents <= 0 {
		return nil, domain.NewValidationError("payment amount must be positive")
	}
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rt.Status == domain.RentalStatusCancelled {
		return nil, domain.NewConflictError("rental %d is cancelled", rentalID)
	}

	updated, err := s.rentalRepo.AddPayment(ctx, rentalID, amountCents)
	if err != nil {
		return nil, err
	}
	if updated.PaidAmountCents > updated.TotalAmountCents {
		logger.Warn("rental overpaid",
			"rental_id", updated.ID, "paid_cents", updated.PaidAmountCents, "total_cents", updated.TotalAmountCents)
	}
	logger.Info("payment applied",
		"rental_id", updated.ID, "amount_cents", amountCents, "due_cents", updated.DueAmountCents)
	return updated, nil
}

// CancelRental voids a rental that has seen no returns and no payments,
// putting every reserved unit back on the shelf.
func (s *rentalService) CancelRental(ctx context.Context, rentalID int32) (*domain.Rental, error) {
	rt, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rt.Status != domain.RentalStatusActive {
		return nil, domain.NewConflictError("rental %d is %s and cannot be cancelled", rentalID, rt.Status)
	}
	for i := range rt.Items {
		if rt.Items[i].QtyReturned > 0 {
			return nil, domain.NewConflictError("rental %d already has returns and cannot be cancelled", rentalID)
		}
	}
	if rt.PaidAmountCents > 0 {
		return nil, domain.NewConflictError("rental %d already has payments and cannot be cancelled", rentalID)
	}

	var released []domain.LineItem
	undo := func() {
		rctx := context.WithoutCancel(ctx)
		for i := len(released) - 1; i >= 0; i-- {
			li := released[i]
			if rerr := s.materialRepo.AdjustStock(rctx, li.MaterialID, li.VariantID, -li.QtyRented); rerr != nil {
				logger.Error("compensating stock re-reserve failed",
					"rental_id", rentalID, "material_id", li.MaterialID, "qty", li.QtyRented, "error", rerr)
			}
		}
	}
	for i := range rt.Items {
		li := &rt.Items[i]
		if err := s.materialRepo.AdjustStock(ctx, li.MaterialID, li.VariantID, li.QtyRented); err != nil {
			logger.Error("stock release failed during cancel",
				"rental_id", rentalID, "material_id", li.MaterialID, "qty", li.QtyRented, "error", err)
			undo()
			return nil, err
		}
		released = append(released, domain.LineItem{MaterialID: li.MaterialID, VariantID: li.VariantID, QtyRented: li.QtyRented})
	}

	if err := s.rentalRepo.UpdateStatus(ctx, rentalID, domain.RentalStatusCancelled); err != nil {
		undo()
		return nil, err
	}
	for _, li := range released {
		recordMovement(ctx, s.movementRepo,
			domain.NewStockMovement(li.MaterialID, li.VariantID, li.QtyRented, domain.MovementReasonRelease, &rt.ID))
	}
	rt.Status = domain.RentalStatusCancelled
	logger.Info("rental cancelled", "rental_id", rt.ID)
	return rt, nil
}
