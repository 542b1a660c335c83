// Package store is the persistence gateway: table-scoped reads and writes
// over database/sql plus observe streams that emit a fresh full-table
// snapshot after every committed write. It is the sole owner of the shared
// database handle; all writes are linearized through a single writer lock.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/amsaid/smartshop/internal/config"
	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/logger"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/amsaid/smartshop/internal/watch"
)

// Table names an entity table for snapshot refreshes after a write.
type Table int

const (
	TableProducts Table = iota
	TableCartItems
	TableOrders
	TableOrderItems
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so the same
// statement helpers serve both plain reads and transactional writes.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is opened once at process start and handed to every component that
// needs persistence. Closing it terminates all observe streams.
type Store struct {
	db      *sql.DB
	log     *logger.Logger
	writeMu sync.Mutex

	products   *watch.Feed[[]models.Product]
	cartItems  *watch.Feed[[]models.CartItem]
	orders     *watch.Feed[[]models.Order]
	orderItems *watch.Feed[[]models.OrderItem]
}

func Open(ctx context.Context, cfg *config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx, db, cfg.Driver); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:         db,
		log:        log.With("component", "store"),
		products:   watch.NewFeed[[]models.Product](),
		cartItems:  watch.NewFeed[[]models.CartItem](),
		orders:     watch.NewFeed[[]models.Order](),
		orderItems: watch.NewFeed[[]models.OrderItem](),
	}

	// Prime every feed so the first subscriber gets a snapshot immediately.
	if err := s.refresh(ctx, TableProducts, TableCartItems, TableOrders, TableOrderItems); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Info("store opened", "driver", cfg.Driver)
	return s, nil
}

func (s *Store) Close() error {
	s.products.Close()
	s.cartItems.Close()
	s.orders.Close()
	s.orderItems.Close()
	return s.db.Close()
}

func (s *Store) ObserveProducts() *watch.Subscription[[]models.Product] {
	return s.products.Subscribe()
}

func (s *Store) ObserveCart() *watch.Subscription[[]models.CartItem] {
	return s.cartItems.Subscribe()
}

func (s *Store) ObserveOrders() *watch.Subscription[[]models.Order] {
	return s.orders.Subscribe()
}

func (s *Store) ObserveOrderItems() *watch.Subscription[[]models.OrderItem] {
	return s.orderItems.Subscribe()
}

// RunWrite executes fn inside one transaction under the writer lock, then
// republishes snapshots of the touched tables. Snapshots go out only after
// commit, so observers never see a partial write; a write is visible in the
// next emission by the time RunWrite returns.
func (s *Store) RunWrite(ctx context.Context, fn func(tx *sql.Tx) error, touched ...Table) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), fn); err != nil {
		return err
	}

	if err := s.refresh(ctx, touched...); err != nil {
		// The write committed; only the snapshot refresh failed. The next
		// successful write resumes emission.
		s.log.Warn("snapshot refresh failed", "error", err)
	}

	return nil
}

func (s *Store) refresh(ctx context.Context, tables ...Table) error {
	for _, table := range tables {
		switch table {
		case TableProducts:
			rows, err := s.Products(ctx)
			if err != nil {
				return fmt.Errorf("refresh products: %w", err)
			}
			s.products.Publish(rows)
		case TableCartItems:
			rows, err := s.CartItems(ctx)
			if err != nil {
				return fmt.Errorf("refresh cart items: %w", err)
			}
			s.cartItems.Publish(rows)
		case TableOrders:
			rows, err := s.Orders(ctx)
			if err != nil {
				return fmt.Errorf("refresh orders: %w", err)
			}
			s.orders.Publish(rows)
		case TableOrderItems:
			rows, err := s.OrderItems(ctx)
			if err != nil {
				return fmt.Errorf("refresh order items: %w", err)
			}
			s.orderItems.Publish(rows)
		}
	}
	return nil
}
