package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
)

// Combines all needed interfaces
type Queryable interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

type DB interface {
	Queryable
	Begin(ctx context.Context) (pgx.Tx, error)
}

var ErrOrderNotFound = ports.ErrOrderNotFound

// OrderRepository writes payment outcomes onto the storefront's orders
// table. The schema belongs to the storefront; only payment_status,
// payment_intent_id, paid_at and updated_at are touched here.
type OrderRepository struct {
	db DB
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

func newOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// UpdatePaymentStatus locks the order row, skips the write when it is
// already paid or already carries the requested status, and updates it
// otherwise. Orders are matched by order number when known, else by intent.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, u ports.OrderPaymentUpdate) (bool, error) {
	if u.OrderNumber == "" && u.PaymentIntentID == "" {
		return false, errors.New("order number or payment intent id is required")
	}

	var changed bool
	err := r.WithTransaction(ctx, func(tx *OrderRepository) error {
		current, err := tx.lockPaymentStatus(ctx, u)
		if err != nil {
			return err
		}
		if !shouldUpdate(current, u.Status) {
			return nil
		}

		query, args := buildPaymentStatusUpdate(u)
		tag, err := tx.db.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update order payment status: %w", err)
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	return changed, err
}

func (r *OrderRepository) lockPaymentStatus(ctx context.Context, u ports.OrderPaymentUpdate) (string, error) {
	column, value := matchColumn(u)
	sql := fmt.Sprintf(`SELECT COALESCE(payment_status, '') FROM orders WHERE %s = $1 FOR UPDATE`, column)

	var status string
	if err := r.db.QueryRow(ctx, sql, value).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s %s", ErrOrderNotFound, column, value)
		}
		return "", fmt.Errorf("error reading order payment status: %w", err)
	}
	return status, nil
}

// shouldUpdate keeps redeliveries and late failures from overwriting a
// settled payment.
func shouldUpdate(current, next string) bool {
	if current == next {
		return false
	}
	if current == model.PaymentStatusPaid {
		return false
	}
	return true
}

func matchColumn(u ports.OrderPaymentUpdate) (string, string) {
	if u.OrderNumber != "" {
		return "order_number", u.OrderNumber
	}
	return "payment_intent_id", u.PaymentIntentID
}

func buildPaymentStatusUpdate(u ports.OrderPaymentUpdate) (string, []any) {
	var (
		sets = []string{"payment_status = $1", "updated_at = NOW()"}
		args = []any{u.Status}
		pos  = 2
	)

	if u.PaymentIntentID != "" {
		sets = append(sets, fmt.Sprintf("payment_intent_id = $%d", pos))
		args = append(args, u.PaymentIntentID)
		pos++
	}
	if u.Status == model.PaymentStatusPaid && !u.OccurredAt.IsZero() {
		sets = append(sets, fmt.Sprintf("paid_at = $%d", pos))
		args = append(args, u.OccurredAt)
		pos++
	}

	column, value := matchColumn(u)
	args = append(args, value)
	query := fmt.Sprintf(`UPDATE orders SET %s WHERE %s = $%d`, strings.Join(sets, ", "), column, pos)
	return query, args
}

func (r *OrderRepository) WithTransaction(ctx context.Context,
	fn func(*OrderRepository) error,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &OrderRepository{db: tx}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback failed: %w", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}
