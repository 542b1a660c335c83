package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amsaid/smartshop/internal/models"
)

// CartItems returns the whole working set ordered by product id.
func (s *Store) CartItems(ctx context.Context) ([]models.CartItem, error) {
	return cartItems(ctx, s.db)
}

// CartItemsTx is the transactional snapshot used by checkout: the cart as of
// this transaction, not the live stream.
func (s *Store) CartItemsTx(ctx context.Context, tx *sql.Tx) ([]models.CartItem, error) {
	return cartItems(ctx, tx)
}

func cartItems(ctx context.Context, q DBTX) ([]models.CartItem, error) {
	query := `
		SELECT product_id, name, price, image_ref, quantity_in_cart
		FROM cart_items
		ORDER BY product_id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ProductID,
			&item.Name,
			&item.Price,
			&item.ImageRef,
			&item.QuantityInCart,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// CartItemByProduct returns the cart line for a product, or nil when the
// product is not in the cart. Absence is not an error here.
func (s *Store) CartItemByProduct(ctx context.Context, productID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	query := `
		SELECT product_id, name, price, image_ref, quantity_in_cart
		FROM cart_items
		WHERE product_id = $1`

	err := s.db.QueryRowContext(ctx, query, productID).Scan(
		&item.ProductID,
		&item.Name,
		&item.Price,
		&item.ImageRef,
		&item.QuantityInCart,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

// UpsertCartItem inserts or fully replaces the one line for the item's
// product id, keeping the cart's one-row-per-product invariant in the table
// itself.
func (s *Store) UpsertCartItem(ctx context.Context, item models.CartItem) error {
	return s.RunWrite(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO cart_items (product_id, name, price, image_ref, quantity_in_cart)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (product_id) DO UPDATE
			SET name = excluded.name,
			    price = excluded.price,
			    image_ref = excluded.image_ref,
			    quantity_in_cart = excluded.quantity_in_cart`

		_, err := tx.ExecContext(ctx, query,
			item.ProductID, item.Name, item.Price, item.ImageRef, item.QuantityInCart)
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return nil
	}, TableCartItems)
}

// DeleteCartItem removes the line for a product. Deleting an absent line is
// a no-op.
func (s *Store) DeleteCartItem(ctx context.Context, productID int64) error {
	return s.RunWrite(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE product_id = $1`, productID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		return nil
	}, TableCartItems)
}

// ClearCart deletes every cart line.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.RunWrite(ctx, func(tx *sql.Tx) error {
		return clearCart(ctx, tx)
	}, TableCartItems)
}

// ClearCartTx empties the cart inside a caller-owned transaction.
func (s *Store) ClearCartTx(ctx context.Context, tx *sql.Tx) error {
	return clearCart(ctx, tx)
}

func clearCart(ctx context.Context, q DBTX) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart_items`); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
