package postgres

import (
	"database/sql"

	"shuttering-manager/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.MaterialRepository
	repository.RentalRepository
	repository.MovementRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		MaterialRepository: NewMaterialRepository(db),
		RentalRepository:   NewRentalRepository(db),
		MovementRepository: NewMovementRepository(db),
	}
}
