package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err, "begin rental create")
	}
	defer tx.Rollback()

	now := time.Now()
	query := `INSERT INTO rentals (customer_name, customer_phone, rented_at, expected_return_date, status, total_amount_cents, paid_amount_cents, due_amount_cents, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err = tx.QueryRowContext(ctx, query, rt.CustomerName, rt.CustomerPhone, rt.RentedAt, rt.ExpectedReturnDate, rt.Status, rt.TotalAmountCents, rt.PaidAmountCents, rt.DueAmountCents, now, now).Scan(&rt.ID)
	if err != nil {
		return domain.NewInternalError(err, "insert rental")
	}

	for i := range rt.Items {
		li := &rt.Items[i]
		li.RentalID = rt.ID
		query := `INSERT INTO rental_line_items (rental_id, material_id, variant_id, label, price_per_day_cents, subtotal_cents, qty_rented, qty_returned)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
		err = tx.QueryRowContext(ctx, query, li.RentalID, li.MaterialID, li.VariantID, li.Label, li.PricePerDayCents, li.SubtotalCents, li.QtyRented, li.QtyReturned).Scan(&li.ID)
		if err != nil {
			return domain.NewInternalError(err, "insert rental line item")
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err, "commit rental create")
	}
	rt.CreatedOn = now
	rt.UpdatedOn = now
	return nil
}

const rentalColumns = `id, customer_name, COALESCE(customer_phone, ''), rented_at, expected_return_date, status, total_amount_cents, paid_amount_cents, due_amount_cents, created_on, updated_on`

func scanRental(row interface{ Scan(...any) error }, rt *domain.Rental) error {
	return row.Scan(&rt.ID, &rt.CustomerName, &rt.CustomerPhone, &rt.RentedAt, &rt.ExpectedReturnDate, &rt.Status, &rt.TotalAmountCents, &rt.PaidAmountCents, &rt.DueAmountCents, &rt.CreatedOn, &rt.UpdatedOn)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	rt := &domain.Rental{}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	err := scanRental(r.db.QueryRowContext(ctx, query, id), rt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("rental %d not found", id)
	}
	if err != nil {
		return nil, domain.NewInternalError(err, "query rental")
	}

	rt.Items, err = r.lineItems(ctx, rt.ID)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) lineItems(ctx context.Context, rentalID int32) ([]domain.LineItem, error) {
	query := `SELECT id, rental_id, material_id, variant_id, label, price_per_day_cents, subtotal_cents, qty_rented, qty_returned
	          FROM rental_line_items WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, domain.NewInternalError(err, "query rental line items")
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.RentalID, &li.MaterialID, &li.VariantID, &li.Label, &li.PricePerDayCents, &li.SubtotalCents, &li.QtyRented, &li.QtyReturned); err != nil {
			return nil, domain.NewInternalError(err, "scan rental line item")
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *rentalRepository) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var count int32
	countQuery := `SELECT count(*) FROM (` + query + `) AS sub`
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, domain.NewInternalError(err, "count rentals")
	}

	offset := (page - 1) * pageSize
	query += fmt.Sprintf(` ORDER BY created_on DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewInternalError(err, "list rentals")
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		var rt domain.Rental
		if err := scanRental(rows, &rt); err != nil {
			return nil, 0, domain.NewInternalError(err, "scan rental")
		}
		rentals = append(rentals, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewInternalError(err, "list rentals")
	}

	for i := range rentals {
		rentals[i].Items, err = r.lineItems(ctx, rentals[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return rentals, count, nil
}

func (r *rentalRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE status IN ($1, $2) AND expected_return_date IS NOT NULL AND expected_return_date < $3
	          ORDER BY expected_return_date`
	rows, err := r.db.QueryContext(ctx, query, domain.RentalStatusActive, domain.RentalStatusPartialReturned, now)
	if err != nil {
		return nil, domain.NewInternalError(err, "list overdue rentals")
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		var rt domain.Rental
		if err := scanRental(rows, &rt); err != nil {
			return nil, domain.NewInternalError(err, "scan overdue rental")
		}
		rentals = append(rentals, rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, rentalID int32, status domain.RentalStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rentals SET status = $1, updated_on = $2 WHERE id = $3`, status, time.Now(), rentalID)
	if err != nil {
		return domain.NewInternalError(err, "update rental status")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewNotFoundError("rental %d not found", rentalID)
	}
	return nil
}

func (r *rentalRepository) ApplyReturns(ctx context.Context, rentalID int32, increments map[int32]int32, status domain.RentalStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err, "begin return apply")
	}
	defer tx.Rollback()

	for itemID, qty := range increments {
		// qty_returned is monotonic; the guard keeps it within qty_rented
		// even if two returns for the same line slip in concurrently.
		res, err := tx.ExecContext(ctx, `
			UPDATE rental_line_items
			SET qty_returned = qty_returned + $1
			WHERE id = $2 AND rental_id = $3
			  AND qty_returned + $1 <= qty_rented`,
			qty, itemID, rentalID)
		if err != nil {
			return domain.NewInternalError(err, "apply line item return")
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return domain.NewConflictError("line item %d cannot accept %d more returned units", itemID, qty)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE rentals SET status = $1, updated_on = $2 WHERE id = $3`, status, time.Now(), rentalID)
	if err != nil {
		return domain.NewInternalError(err, "update rental status after return")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewNotFoundError("rental %d not found", rentalID)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err, "commit return apply")
	}
	return nil
}

func (r *rentalRepository) AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error) {
	// paid and due move in one statement; two concurrent payments both land.
	res, err := r.db.ExecContext(ctx, `
		UPDATE rentals
		SET paid_amount_cents = paid_amount_cents + $1,
		    due_amount_cents = GREATEST(0, total_amount_cents - (paid_amount_cents + $1)),
		    updated_on = $2
		WHERE id = $3`,
		amountCents, time.Now(), rentalID)
	if err != nil {
		return nil, domain.NewInternalError(err, "apply payment")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, domain.NewNotFoundError("rental %d not found", rentalID)
	}
	return r.GetByID(ctx, rentalID)
}
