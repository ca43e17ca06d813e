package service

import (
	"context"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/logger"
	"shuttering-manager/internal/repository"
)

type inventoryService struct {
	materialRepo repository.MaterialRepository
	movementRepo repository.MovementRepository
}

func NewInventoryService(materialRepo repository.MaterialRepository, movementRepo repository.MovementRepository) InventoryService {
	return &inventoryService{
		materialRepo: materialRepo,
		movementRepo: movementRepo,
	}
}

func (s *inventoryService) CreateMaterial(ctx context.Context, m *domain.Material) error {
	if m.Name == "" {
		return domain.NewValidationError("material name is required")
	}
	for i := range m.Variants {
		v := &m.Variants[i]
		if v.Label == "" {
			return domain.NewValidationError("variant label is required")
		}
		if v.TotalQuantity < 0 || v.PricePerDayCents < 0 {
			return domain.NewValidationError("variant %q: quantity and price must not be negative", v.Label)
		}
		// Fresh stock is all on the shelf.
		v.AvailableQuantity = v.TotalQuantity
	}
	if len(m.Variants) == 0 {
		if m.TotalQuantity < 0 || m.PricePerDayCents < 0 {
			return domain.NewValidationError("quantity and price must not be negative")
		}
		m.AvailableQuantity = m.TotalQuantity
	}

	if err := s.materialRepo.Create(ctx, m); err != nil {
		return err
	}
	logger.Info("material created", "material_id", m.ID, "name", m.Name, "variants", len(m.Variants))
	return nil
}

func (s *inventoryService) GetMaterial(ctx context.Context, id int32) (*domain.Material, error) {
	return s.materialRepo.GetByID(ctx, id)
}

func (s *inventoryService) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	return s.materialRepo.List(ctx)
}

// AdjustStock is a manual correction (damaged units taken off the shelf,
// miscounts fixed). Reservations and releases go through the rental service.
func (s *inventoryService) AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) (*domain.Material, error) {
	if delta == 0 {
		return nil, domain.NewValidationError("delta must not be zero").WithItem(materialID, variantID)
	}
	m, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	// A variant-ed material's counters are sums over its variants; they
	// move only when a variant moves.
	if variantID == nil && len(m.Variants) > 0 {
		return nil, domain.NewValidationError("material %q has variants; adjust a variant", m.Name).WithItem(materialID, nil)
	}
	if err := s.materialRepo.AdjustStock(ctx, materialID, variantID, delta); err != nil {
		return nil, err
	}
	recordMovement(ctx, s.movementRepo, domain.NewStockMovement(materialID, variantID, delta, domain.MovementReasonAdjust, nil))
	return s.materialRepo.GetByID(ctx, materialID)
}

func (s *inventoryService) UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error {
	if priceCents < 0 {
		return domain.NewValidationError("price must not be negative").WithItem(materialID, &variantID)
	}
	return s.materialRepo.UpdateVariantPrice(ctx, materialID, variantID, priceCents)
}

// recordMovement writes an audit row for a completed adjustment. The trail
// is best-effort; a write failure is logged and never fails the operation.
func recordMovement(ctx context.Context, repo repository.MovementRepository, mv *domain.StockMovement) {
	if err := repo.Create(ctx, mv); err != nil {
		logger.Error("failed to record stock movement",
			"material_id", mv.MaterialID, "delta", mv.Delta, "reason", mv.Reason, "error", err)
	}
}
