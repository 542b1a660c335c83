package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/models"
)

// Products returns the full catalog ordered by name, then id for ties.
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT id, name, price, quantity, image_ref
		FROM products
		ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.Quantity,
			&product.ImageRef,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func (s *Store) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, price, quantity, image_ref
		FROM products
		WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Quantity,
		&product.ImageRef,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// InsertProduct persists a new catalog row and returns its assigned id.
func (s *Store) InsertProduct(ctx context.Context, product models.Product) (int64, error) {
	var id int64

	err := s.RunWrite(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO products (name, price, quantity, image_ref)
			VALUES ($1, $2, $3, $4)
			RETURNING id`

		err := tx.QueryRowContext(ctx, query,
			product.Name, product.Price, product.Quantity, product.ImageRef,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	}, TableProducts)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpdateProduct replaces name, price, quantity, and image ref under the same
// id. Rows copied into the cart or into past orders keep their old values.
func (s *Store) UpdateProduct(ctx context.Context, product models.Product) error {
	return s.RunWrite(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET name = $1, price = $2, quantity = $3, image_ref = $4
			 WHERE id = $5`,
			product.Name, product.Price, product.Quantity, product.ImageRef, product.ID)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return database.ErrProductNotFound
		}

		return nil
	}, TableProducts)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.RunWrite(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return database.ErrProductNotFound
		}

		return nil
	}, TableProducts)
}
