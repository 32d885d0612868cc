package repository

import (
	"context"
	"errors"

	"github.com/campuseats/canteen/internal/models"
	"github.com/campuseats/canteen/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

const (
	selectCanteenByIDQuery = `
						SELECT id, name, accepting_orders, created_at FROM canteens
						WHERE id = $1
`
	insertCanteenQuery = `
						INSERT INTO canteens (id, name, accepting_orders)
						VALUES ($1, $2, $3)
						RETURNING created_at
`
	updateCanteenAcceptingQuery = `
						UPDATE canteens
						SET accepting_orders = $2
						WHERE id = $1
`
)

// CanteenRepository implements CanteenRepository interface
type CanteenRepository struct {
	db *postgres.DB
}

// NewCanteenRepository creates new CanteenRepository instance
func NewCanteenRepository(db *postgres.DB) *CanteenRepository {
	return &CanteenRepository{db: db}
}

// GetCanteenByID returns canteen by id
func (cr *CanteenRepository) GetCanteenByID(ctx context.Context, id uuid.UUID) (*models.Canteen, error) {
	canteen := models.Canteen{}
	err := cr.db.QueryRow(ctx, selectCanteenByIDQuery, id).
		Scan(&canteen.ID, &canteen.Name, &canteen.AcceptingOrders, &canteen.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &canteen, nil
}

// CreateCanteen inserts new canteen to database
func (cr *CanteenRepository) CreateCanteen(ctx context.Context, canteen *models.Canteen) (*models.Canteen, error) {
	err := cr.db.QueryRow(ctx, insertCanteenQuery, canteen.ID, canteen.Name, canteen.AcceptingOrders).
		Scan(&canteen.CreatedAt)
	if err != nil {
		if cr.db.ErrorCode(err) == pgerrcode.UniqueViolation {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	return canteen, nil
}

// SetAcceptingOrders opens or closes a canteen for new orders
func (cr *CanteenRepository) SetAcceptingOrders(ctx context.Context, id uuid.UUID, accepting bool) error {
	cmd, err := cr.db.Exec(ctx, updateCanteenAcceptingQuery, id, accepting)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}
