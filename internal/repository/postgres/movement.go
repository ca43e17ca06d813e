package postgres

import (
	"context"
	"database/sql"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/repository"
)

type movementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) repository.MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, mv *domain.StockMovement) error {
	query := `INSERT INTO stock_movements (id, material_id, variant_id, delta, reason, rental_id, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, mv.ID, mv.MaterialID, mv.VariantID, mv.Delta, mv.Reason, mv.RentalID, mv.CreatedOn)
	if err != nil {
		return domain.NewInternalError(err, "insert stock movement")
	}
	return nil
}

func (r *movementRepository) ListByMaterial(ctx context.Context, materialID int32, limit int32) ([]domain.StockMovement, error) {
	query := `SELECT id, material_id, variant_id, delta, reason, rental_id, created_on
	          FROM stock_movements WHERE material_id = $1 ORDER BY created_on DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, materialID, limit)
	if err != nil {
		return nil, domain.NewInternalError(err, "list stock movements")
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var mv domain.StockMovement
		if err := rows.Scan(&mv.ID, &mv.MaterialID, &mv.VariantID, &mv.Delta, &mv.Reason, &mv.RentalID, &mv.CreatedOn); err != nil {
			return nil, domain.NewInternalError(err, "scan stock movement")
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}
