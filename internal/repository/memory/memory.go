// Package memory is an in-process implementation of the repository
// interfaces, selected by store.type "memory". One mutex guards every
// counter, which gives the same atomic-adjust and atomic-payment semantics
// as the guarded SQL updates without a database. It backs local development
// and the concurrency tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/repository"
)

type state struct {
	mu sync.Mutex

	materials map[int32]*domain.Material
	rentals   map[int32]*domain.Rental
	movements []domain.StockMovement

	nextMaterialID int32
	nextVariantID  int32
	nextRentalID   int32
	nextItemID     int32
}

type Store struct {
	repository.MaterialRepository
	repository.RentalRepository
	repository.MovementRepository
}

func NewStore() *Store {
	st := &state{
		materials: make(map[int32]*domain.Material),
		rentals:   make(map[int32]*domain.Rental),
	}
	return &Store{
		MaterialRepository: &materialStore{st},
		RentalRepository:   &rentalStore{st},
		MovementRepository: &movementStore{st},
	}
}

func cloneMaterial(m *domain.Material) *domain.Material {
	cp := *m
	cp.Variants = append([]domain.Variant(nil), m.Variants...)
	return &cp
}

func cloneRental(rt *domain.Rental) *domain.Rental {
	cp := *rt
	cp.Items = append([]domain.LineItem(nil), rt.Items...)
	return &cp
}

type materialStore struct {
	st *state
}

func (r *materialStore) Create(ctx context.Context, m *domain.Material) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.nextMaterialID++
	m.ID = r.st.nextMaterialID
	now := time.Now()
	m.CreatedOn = now
	m.UpdatedOn = now
	for i := range m.Variants {
		r.st.nextVariantID++
		m.Variants[i].ID = r.st.nextVariantID
		m.Variants[i].MaterialID = m.ID
	}
	m.RecomputeAggregates()
	r.st.materials[m.ID] = cloneMaterial(m)
	return nil
}

func (r *materialStore) GetByID(ctx context.Context, id int32) (*domain.Material, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.materials[id]
	if !ok {
		return nil, domain.NewNotFoundError("material %d not found", id).WithItem(id, nil)
	}
	return cloneMaterial(m), nil
}

func (r *materialStore) GetVariant(ctx context.Context, materialID, variantID int32) (*domain.Variant, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.materials[materialID]
	if !ok {
		return nil, domain.NewNotFoundError("material %d not found", materialID).WithItem(materialID, nil)
	}
	v := m.Variant(variantID)
	if v == nil {
		return nil, domain.NewNotFoundError("variant %d of material %d not found", variantID, materialID).WithItem(materialID, &variantID)
	}
	cp := *v
	return &cp, nil
}

func (r *materialStore) List(ctx context.Context) ([]domain.Material, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	materials := make([]domain.Material, 0, len(r.st.materials))
	for _, m := range r.st.materials {
		materials = append(materials, *cloneMaterial(m))
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].Name < materials[j].Name })
	return materials, nil
}

func (r *materialStore) UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.materials[materialID]
	if !ok {
		return domain.NewNotFoundError("material %d not found", materialID).WithItem(materialID, nil)
	}
	v := m.Variant(variantID)
	if v == nil {
		return domain.NewNotFoundError("variant %d of material %d not found", variantID, materialID).WithItem(materialID, &variantID)
	}
	v.PricePerDayCents = priceCents
	return nil
}

func (r *materialStore) AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	m, ok := r.st.materials[materialID]
	if !ok {
		return domain.NewNotFoundError("material %d not found", materialID).WithItem(materialID, nil)
	}

	check := func(available, total int32) error {
		next := available + delta
		if next < 0 {
			return domain.NewOutOfStockError("insufficient stock for quantity %d", -delta).WithItem(materialID, variantID)
		}
		if next > total {
			return domain.NewInternalError(nil, "release of %d would exceed total quantity", delta).WithItem(materialID, variantID)
		}
		return nil
	}

	if variantID != nil {
		v := m.Variant(*variantID)
		if v == nil {
			return domain.NewNotFoundError("variant %d of material %d not found", *variantID, materialID).WithItem(materialID, variantID)
		}
		if err := check(v.AvailableQuantity, v.TotalQuantity); err != nil {
			return err
		}
		// Variant and aggregate move under the same lock hold, so no
		// reader ever observes them apart.
		v.AvailableQuantity += delta
		m.RecomputeAggregates()
		m.UpdatedOn = time.Now()
		return nil
	}

	// Aggregates on a variant-ed material are derived, never written to.
	if len(m.Variants) > 0 {
		return domain.NewValidationError("material %d has variants; adjust a variant", materialID).WithItem(materialID, nil)
	}
	if err := check(m.AvailableQuantity, m.TotalQuantity); err != nil {
		return err
	}
	m.AvailableQuantity += delta
	m.UpdatedOn = time.Now()
	return nil
}

type rentalStore struct {
	st *state
}

func (r *rentalStore) Create(ctx context.Context, rt *domain.Rental) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.nextRentalID++
	rt.ID = r.st.nextRentalID
	now := time.Now()
	rt.CreatedOn = now
	rt.UpdatedOn = now
	for i := range rt.Items {
		r.st.nextItemID++
		rt.Items[i].ID = r.st.nextItemID
		rt.Items[i].RentalID = rt.ID
	}
	r.st.rentals[rt.ID] = cloneRental(rt)
	return nil
}

func (r *rentalStore) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	rt, ok := r.st.rentals[id]
	if !ok {
		return nil, domain.NewNotFoundError("rental %d not found", id)
	}
	return cloneRental(rt), nil
}

func (r *rentalStore) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var all []domain.Rental
	for _, rt := range r.st.rentals {
		if status != "" && string(rt.Status) != status {
			continue
		}
		all = append(all, *cloneRental(rt))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedOn.After(all[j].CreatedOn) })

	count := int32(len(all))
	start := (page - 1) * pageSize
	if start < 0 || start >= count {
		return nil, count, nil
	}
	end := start + pageSize
	if end > count {
		end = count
	}
	return all[start:end], count, nil
}

func (r *rentalStore) ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var overdue []domain.Rental
	for _, rt := range r.st.rentals {
		if rt.Status != domain.RentalStatusActive && rt.Status != domain.RentalStatusPartialReturned {
			continue
		}
		if rt.ExpectedReturnDate == nil || !rt.ExpectedReturnDate.Before(now) {
			continue
		}
		overdue = append(overdue, *cloneRental(rt))
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].ExpectedReturnDate.Before(*overdue[j].ExpectedReturnDate)
	})
	return overdue, nil
}

func (r *rentalStore) UpdateStatus(ctx context.Context, rentalID int32, status domain.RentalStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	rt, ok := r.st.rentals[rentalID]
	if !ok {
		return domain.NewNotFoundError("rental %d not found", rentalID)
	}
	rt.Status = status
	rt.UpdatedOn = time.Now()
	return nil
}

func (r *rentalStore) ApplyReturns(ctx context.Context, rentalID int32, increments map[int32]int32, status domain.RentalStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	rt, ok := r.st.rentals[rentalID]
	if !ok {
		return domain.NewNotFoundError("rental %d not found", rentalID)
	}
	// Whole batch validated before any line moves.
	for itemID, qty := range increments {
		li := itemByID(rt, itemID)
		if li == nil {
			return domain.NewNotFoundError("line item %d not found on rental %d", itemID, rentalID)
		}
		if li.QtyReturned+qty > li.QtyRented {
			return domain.NewConflictError("line item %d cannot accept %d more returned units", itemID, qty)
		}
	}
	for itemID, qty := range increments {
		itemByID(rt, itemID).QtyReturned += qty
	}
	rt.Status = status
	rt.UpdatedOn = time.Now()
	return nil
}

func (r *rentalStore) AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	rt, ok := r.st.rentals[rentalID]
	if !ok {
		return nil, domain.NewNotFoundError("rental %d not found", rentalID)
	}
	rt.PaidAmountCents += amountCents
	rt.DueAmountCents = domain.DueAmount(rt.TotalAmountCents, rt.PaidAmountCents)
	rt.UpdatedOn = time.Now()
	return cloneRental(rt), nil
}

func itemByID(rt *domain.Rental, itemID int32) *domain.LineItem {
	for i := range rt.Items {
		if rt.Items[i].ID == itemID {
			return &rt.Items[i]
		}
	}
	return nil
}

type movementStore struct {
	st *state
}

func (r *movementStore) Create(ctx context.Context, mv *domain.StockMovement) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.movements = append(r.st.movements, *mv)
	return nil
}

func (r *movementStore) ListByMaterial(ctx context.Context, materialID int32, limit int32) ([]domain.StockMovement, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var movements []domain.StockMovement
	for i := len(r.st.movements) - 1; i >= 0 && int32(len(movements)) < limit; i-- {
		if r.st.movements[i].MaterialID == materialID {
			movements = append(movements, r.st.movements[i])
		}
	}
	return movements, nil
}
