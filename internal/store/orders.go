package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/shopspring/decimal"
)

// Orders returns the ledger newest first.
func (s *Store) Orders(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT id, created_at, total_amount
		FROM orders
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.CreatedAt, &order.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func (s *Store) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, created_at, total_amount
		FROM orders
		WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.TotalAmount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// OrderItems returns every order line, grouped by order then product.
func (s *Store) OrderItems(ctx context.Context) ([]models.OrderItem, error) {
	query := `
		SELECT order_id, product_id, name, price, image_ref, quantity
		FROM order_items
		ORDER BY order_id, product_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	return scanOrderItems(rows)
}

// OrderItemsByOrder returns the lines of one order.
func (s *Store) OrderItemsByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT order_id, product_id, name, price, image_ref, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	return scanOrderItems(rows)
}

func scanOrderItems(rows *sql.Rows) ([]models.OrderItem, error) {
	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.ImageRef,
			&item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// InsertOrderTx creates an order row inside a caller-owned transaction and
// returns its assigned id.
func (s *Store) InsertOrderTx(ctx context.Context, tx *sql.Tx, createdAt time.Time, total decimal.Decimal) (int64, error) {
	var id int64

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (created_at, total_amount)
		 VALUES ($1, $2)
		 RETURNING id`,
		createdAt, total).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	return id, nil
}

// InsertOrderItemsTx inserts a batch of order lines inside a caller-owned
// transaction. Either all lines land or the transaction rolls back.
func (s *Store) InsertOrderItemsTx(ctx context.Context, tx *sql.Tx, items []models.OrderItem) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, price, image_ref, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.OrderID, item.ProductID, item.Name, item.Price, item.ImageRef, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}
