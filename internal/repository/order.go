package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campuseats/canteen/internal/models"
	"github.com/campuseats/canteen/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

const (
	// bumps the per (canteen, day) counter and returns the new value in one
	// statement. Concurrent callers for the same key serialize on the row
	// lock; different canteens and days never block each other.
	nextTokenQuery = `
						INSERT INTO order_tokens (canteen_id, token_date, last_value)
						VALUES ($1, $2, 1)
						ON CONFLICT (canteen_id, token_date)
						DO UPDATE SET last_value = order_tokens.last_value + 1
						RETURNING last_value
`
	insertOrderQuery = `
						INSERT INTO orders (id, canteen_id, user_id, client_ref, token_number, token_date,
											items, total, estimated_time, payment_method, status)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
						RETURNING created_at
`
	selectOrderColumns = `id, canteen_id, user_id, client_ref, token_number, token_date,
						  items, total, estimated_time, payment_method, status, created_at, completed_at`

	selectOrderForUpdateQuery = `
						SELECT ` + selectOrderColumns + ` FROM orders
						WHERE id = $1
						FOR UPDATE
`
	updateOrderStatusQuery = `
						UPDATE orders
						SET status = $2,
							completed_at = CASE WHEN $2 = 'completed' AND completed_at IS NULL THEN now() ELSE completed_at END
						WHERE id = $1
						RETURNING status, completed_at
`
)

const (
	clientRefConstraint  = "orders_client_ref_key"
	dailyTokenConstraint = "orders_daily_token_key"
)

// OrderRepository is the durable order store. All token arithmetic happens
// here, inside the same transaction as the order insert.
type OrderRepository struct {
	db  *postgres.DB
	loc *time.Location
}

// NewOrderRepository creates new OrderRepository instance. loc is the
// canteen-local timezone used for daily token numbering and day-range
// queries.
func NewOrderRepository(db *postgres.DB, loc *time.Location) *OrderRepository {
	return &OrderRepository{db: db, loc: loc}
}

// tokenDate renders t as the canteen-local calendar day the token counter
// is keyed by
func (or *OrderRepository) tokenDate(t time.Time) string {
	return t.In(or.loc).Format("2006-01-02")
}

// CurrentTokenDate returns the canteen-local day currently being numbered
func (or *OrderRepository) CurrentTokenDate() string {
	return or.tokenDate(time.Now())
}

// CreateOrder allocates the next daily token for the order's canteen and
// inserts the order, both inside one transaction. Returns
// models.ErrConflictData when the client ref was already used and
// models.ErrTokenAllocation when the token insert raced a conflicting
// write.
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	tokenDate := or.tokenDate(time.Now())

	tx, err := or.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var tokenNumber int
	if err := tx.QueryRow(ctx, nextTokenQuery, order.CanteenID, tokenDate).Scan(&tokenNumber); err != nil {
		return nil, fmt.Errorf("next token: %w", err)
	}

	order.ID = uuid.New()
	order.TokenNumber = strconv.Itoa(tokenNumber)
	order.TokenDate = tokenDate

	err = tx.QueryRow(ctx, insertOrderQuery,
		order.ID,
		order.CanteenID,
		order.UserID,
		order.ClientRef,
		tokenNumber,
		tokenDate,
		order.Items,
		order.Total,
		order.EstimatedMinutes,
		order.PaymentMethod,
		order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		if or.db.ErrorCode(err) == pgerrcode.UniqueViolation {
			switch or.db.ConstraintName(err) {
			case clientRefConstraint:
				return nil, models.ErrConflictData
			case dailyTokenConstraint:
				return nil, fmt.Errorf("%w: token %d taken for canteen %s on %s",
					models.ErrTokenAllocation, tokenNumber, order.CanteenID, tokenDate)
			}
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return order, nil
}

// GetOrderByID returns order by id
func (or *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := or.db.QueryRow(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// GetOrderByClientRef returns the order created under an idempotency key
func (or *OrderRepository) GetOrderByClientRef(ctx context.Context, ref string) (*models.Order, error) {
	row := or.db.QueryRow(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE client_ref = $1`, ref)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// UpdateOrderStatus moves an order to newStatus under a row lock so two
// concurrent updates cannot race past each other's validity check.
// Re-applying the current status is a no-op. The bool result reports
// whether the row actually changed.
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus string) (*models.Order, bool, error) {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, selectOrderForUpdateQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, models.ErrOrderNotFound
		}
		return nil, false, err
	}

	// idempotent re-apply
	if order.Status == newStatus {
		return order, false, tx.Commit(ctx)
	}

	if !models.CanTransition(order.Status, newStatus) {
		return nil, false, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	if err := tx.QueryRow(ctx, updateOrderStatusQuery, id, newStatus).Scan(&order.Status, &order.CompletedAt); err != nil {
		return nil, false, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}

	return order, true, nil
}

// GetOrdersByUserID gets user orders, newest first
func (or *OrderRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := or.db.Query(ctx,
		`SELECT `+selectOrderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

// GetOrdersByCanteenDateRange returns canteen orders whose canteen-local
// day falls within [fromDate, toDate] (YYYY-MM-DD). Grouping by token_date
// keeps day boundaries aligned with token numbering.
func (or *OrderRepository) GetOrdersByCanteenDateRange(ctx context.Context, canteenID uuid.UUID, fromDate, toDate string) ([]models.Order, error) {
	rows, err := or.db.Query(ctx,
		`SELECT `+selectOrderColumns+` FROM orders
		 WHERE canteen_id = $1 AND token_date BETWEEN $2 AND $3
		 ORDER BY token_date DESC, token_number DESC`,
		canteenID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

// GetPendingOrders returns orders still awaiting payment confirmation
func (or *OrderRepository) GetPendingOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := or.db.Query(ctx,
		`SELECT `+selectOrderColumns+` FROM orders WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := models.Order{}
	var tokenNumber int
	var tokenDate time.Time

	err := row.Scan(&order.ID, &order.CanteenID, &order.UserID, &order.ClientRef,
		&tokenNumber, &tokenDate, &order.Items, &order.Total, &order.EstimatedMinutes,
		&order.PaymentMethod, &order.Status, &order.CreatedAt, &order.CompletedAt)
	if err != nil {
		return nil, err
	}

	order.TokenNumber = strconv.Itoa(tokenNumber)
	order.TokenDate = tokenDate.Format("2006-01-02")

	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			continue
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
