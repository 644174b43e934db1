package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/outcome"
	"sales-service/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const txMaxAttempts = 3

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Tx is the per-transaction persistence contract consumed by the service
// layer. Every multi-step aggregate mutation runs against one Tx so the
// read-validate-mutate-write sequence commits atomically. Getters return
// (nil, nil) when the row does not exist.
type Tx interface {
	// orders
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) (int64, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
	GetLine(ctx context.Context, orderID, productID int64) (*models.LineItem, error)
	GetLines(ctx context.Context, orderID int64) ([]models.LineItem, error)
	InsertLine(ctx context.Context, li *models.LineItem) error
	UpdateLine(ctx context.Context, li *models.LineItem) (int64, error)
	DeleteLine(ctx context.Context, id int64) (int64, error)

	// products
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	UpdateProductStock(ctx context.Context, p *models.Product) (int64, error)

	// shopping carts
	GetCartForUpdate(ctx context.Context, userID int64) (*models.ShoppingCart, error)
	InsertCart(ctx context.Context, c *models.ShoppingCart) error
	UpdateCart(ctx context.Context, c *models.ShoppingCart) (int64, error)
	GetCartLine(ctx context.Context, cartID, productID int64) (*models.ShoppingCartProduct, error)
	GetCartLines(ctx context.Context, cartID int64) ([]models.ShoppingCartProduct, error)
	InsertCartLine(ctx context.Context, l *models.ShoppingCartProduct) error
	UpdateCartLine(ctx context.Context, l *models.ShoppingCartProduct) (int64, error)
	DeleteCartLine(ctx context.Context, cartID, productID int64) (int64, error)
	DeleteCartLines(ctx context.Context, cartID int64) (int64, error)

	// users and work shifts
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetOpenShiftForUpdate(ctx context.Context, employeeID int64) (*models.WorkShift, error)
	InsertShift(ctx context.Context, w *models.WorkShift) error
	UpdateShift(ctx context.Context, w *models.WorkShift) (int64, error)
}

// WithTx runs fn inside a database transaction. Serialization failures and
// deadlocks are retried with a fresh transaction (fn re-reads everything it
// needs); once attempts are exhausted the caller gets a ConcurrencyConflict
// outcome. Business outcomes returned by fn roll the transaction back and
// are passed through untouched.
func (s *Store) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return retryTx(ctx, func() error {
		return s.runTx(ctx, fn)
	})
}

// retryTx reruns run while it fails with a retryable serialization error,
// backing off between attempts.
func retryTx(ctx context.Context, run func() error) error {
	var lastErr error

	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		if attempt > 1 {
			util.TxRetriesTotal.Inc()
			select {
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := run()
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}

	util.TxConflictsTotal.Inc()
	return outcome.New(outcome.ConcurrencyConflict, "transaction aborted after %d attempts: %v", txMaxAttempts, lastErr)
}

func (s *Store) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isSerializationFailure matches the Postgres conditions worth retrying:
// serialization_failure (40001) and deadlock_detected (40P01).
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether err is a Postgres unique_violation,
// which the service layer maps to a DuplicateData outcome.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// IsForeignKeyViolation reports whether err is a Postgres
// foreign_key_violation, raised when a referenced row is missing.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// sqlTx implements Tx over one sqlx transaction. Its methods live in the
// per-aggregate files of this package.
type sqlTx struct {
	tx *sqlx.Tx
}
