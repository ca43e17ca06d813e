package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/repository"
)

type materialRepository struct {
	db *sql.DB
}

func NewMaterialRepository(db *sql.DB) repository.MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, m *domain.Material) error {
	m.RecomputeAggregates()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err, "begin material create")
	}
	defer tx.Rollback()

	now := time.Now()
	query := `INSERT INTO materials (name, category, description, price_per_day_cents, total_quantity, available_quantity, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = tx.QueryRowContext(ctx, query, m.Name, m.Category, m.Description, m.PricePerDayCents, m.TotalQuantity, m.AvailableQuantity, now, now).Scan(&m.ID)
	if err != nil {
		return domain.NewInternalError(err, "insert material")
	}

	for i := range m.Variants {
		v := &m.Variants[i]
		v.MaterialID = m.ID
		query := `INSERT INTO variants (material_id, label, price_per_day_cents, total_quantity, available_quantity)
		          VALUES ($1, $2, $3, $4, $5) RETURNING id`
		err = tx.QueryRowContext(ctx, query, v.MaterialID, v.Label, v.PricePerDayCents, v.TotalQuantity, v.AvailableQuantity).Scan(&v.ID)
		if err != nil {
			return domain.NewInternalError(err, "insert variant")
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err, "commit material create")
	}
	m.CreatedOn = now
	m.UpdatedOn = now
	return nil
}

func (r *materialRepository) GetByID(ctx context.Context, id int32) (*domain.Material, error) {
	m := &domain.Material{}
	query := `SELECT id, name, category, COALESCE(description, ''), price_per_day_cents, total_quantity, available_quantity, created_on, updated_on
	          FROM materials WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.PricePerDayCents, &m.TotalQuantity, &m.AvailableQuantity, &m.CreatedOn, &m.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("material %d not found", id).WithItem(id, nil)
	}
	if err != nil {
		return nil, domain.NewInternalError(err, "query material")
	}

	m.Variants, err = r.variantsByMaterial(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *materialRepository) variantsByMaterial(ctx context.Context, materialID int32) ([]domain.Variant, error) {
	query := `SELECT id, material_id, label, price_per_day_cents, total_quantity, available_quantity
	          FROM variants WHERE material_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, materialID)
	if err != nil {
		return nil, domain.NewInternalError(err, "query variants")
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.MaterialID, &v.Label, &v.PricePerDayCents, &v.TotalQuantity, &v.AvailableQuantity); err != nil {
			return nil, domain.NewInternalError(err, "scan variant")
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *materialRepository) GetVariant(ctx context.Context, materialID, variantID int32) (*domain.Variant, error) {
	v := &domain.Variant{}
	query := `SELECT id, material_id, label, price_per_day_cents, total_quantity, available_quantity
	          FROM variants WHERE id = $1 AND material_id = $2`
	err := r.db.QueryRowContext(ctx, query, variantID, materialID).Scan(&v.ID, &v.MaterialID, &v.Label, &v.PricePerDayCents, &v.TotalQuantity, &v.AvailableQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("variant %d of material %d not found", variantID, materialID).WithItem(materialID, &variantID)
	}
	if err != nil {
		return nil, domain.NewInternalError(err, "query variant")
	}
	return v, nil
}

func (r *materialRepository) List(ctx context.Context) ([]domain.Material, error) {
	query := `SELECT id, name, category, COALESCE(description, ''), price_per_day_cents, total_quantity, available_quantity, created_on, updated_on
	          FROM materials ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.NewInternalError(err, "list materials")
	}
	defer rows.Close()

	var materials []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.PricePerDayCents, &m.TotalQuantity, &m.AvailableQuantity, &m.CreatedOn, &m.UpdatedOn); err != nil {
			return nil, domain.NewInternalError(err, "scan material")
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError(err, "list materials")
	}

	for i := range materials {
		materials[i].Variants, err = r.variantsByMaterial(ctx, materials[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return materials, nil
}

func (r *materialRepository) UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE variants SET price_per_day_cents = $1 WHERE id = $2 AND material_id = $3`, priceCents, variantID, materialID)
	if err != nil {
		return domain.NewInternalError(err, "update variant price")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewNotFoundError("variant %d of material %d not found", variantID, materialID).WithItem(materialID, &variantID)
	}
	return nil
}

// AdjustStock is the conditional-adjust primitive. The quantity guard lives
// in the UPDATE's WHERE clause, so two adjustments racing for the same row
// can never both pass it; the loser sees zero rows affected. Variant and
// parent aggregate move inside one transaction and are never observed apart.
func (r *materialRepository) AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err, "begin stock adjust")
	}
	defer tx.Rollback()

	if variantID != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE variants
			SET available_quantity = available_quantity + $1
			WHERE id = $2 AND material_id = $3
			  AND available_quantity + $1 >= 0
			  AND available_quantity + $1 <= total_quantity`,
			delta, *variantID, materialID)
		if err != nil {
			return domain.NewInternalError(err, "adjust variant stock")
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return r.classifyMiss(ctx, tx, materialID, variantID, delta)
		}
	}

	query := `
		UPDATE materials
		SET available_quantity = available_quantity + $1, updated_on = $2
		WHERE id = $3
		  AND available_quantity + $1 >= 0
		  AND available_quantity + $1 <= total_quantity`
	if variantID == nil {
		// Aggregates on a variant-ed material are derived; a direct adjust
		// may only touch materials stocked without variants.
		query += `
		  AND NOT EXISTS (SELECT 1 FROM variants WHERE material_id = materials.id)`
	}
	res, err := tx.ExecContext(ctx, query, delta, time.Now(), materialID)
	if err != nil {
		return domain.NewInternalError(err, "adjust material stock")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if variantID != nil {
			// The variant row already passed its guard, so the aggregate
			// must pass too; a miss here means the rows have drifted apart.
			return domain.NewInternalError(nil, "material aggregate out of step with variants").WithItem(materialID, variantID)
		}
		return r.classifyMiss(ctx, tx, materialID, nil, delta)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err, "commit stock adjust")
	}
	return nil
}

// classifyMiss explains a guard miss: the row is absent, a direct adjust hit
// a material that has variants, the decrement asked for more than is
// available, or the increment would exceed the total. The
// read happens after the atomic gate has already rejected the write, so it
// is classification only, never part of the adjustment itself.
func (r *materialRepository) classifyMiss(ctx context.Context, tx *sql.Tx, materialID int32, variantID *int32, delta int32) error {
	var one int
	var err error
	if variantID != nil {
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM variants WHERE id = $1 AND material_id = $2`, *variantID, materialID).Scan(&one)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM materials WHERE id = $1`, materialID).Scan(&one)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if variantID != nil {
			return domain.NewNotFoundError("variant %d of material %d not found", *variantID, materialID).WithItem(materialID, variantID)
		}
		return domain.NewNotFoundError("material %d not found", materialID).WithItem(materialID, nil)
	}
	if err != nil {
		return domain.NewInternalError(err, "classify stock adjust failure")
	}
	if variantID == nil {
		verr := tx.QueryRowContext(ctx, `SELECT 1 FROM variants WHERE material_id = $1 LIMIT 1`, materialID).Scan(&one)
		if verr == nil {
			return domain.NewValidationError("material %d has variants; adjust a variant", materialID).WithItem(materialID, nil)
		}
		if !errors.Is(verr, sql.ErrNoRows) {
			return domain.NewInternalError(verr, "classify stock adjust failure")
		}
	}
	if delta < 0 {
		return domain.NewOutOfStockError("insufficient stock for quantity %d", -delta).WithItem(materialID, variantID)
	}
	return domain.NewInternalError(nil, "release of %d would exceed total quantity", delta).WithItem(materialID, variantID)
}
