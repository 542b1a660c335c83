package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The four tables share one logical shape across backends: products owned by
// the catalog, cart_items keyed by product id, and the append-only orders /
// order_items ledger. Integer keys auto-increment and are never reused within
// a process lifetime.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS products (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	price      TEXT NOT NULL,
	quantity   INTEGER NOT NULL CHECK (quantity >= 0),
	image_ref  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cart_items (
	product_id        INTEGER PRIMARY KEY,
	name              TEXT NOT NULL,
	price             TEXT NOT NULL,
	image_ref         TEXT NOT NULL DEFAULT '',
	quantity_in_cart  INTEGER NOT NULL CHECK (quantity_in_cart > 0)
);

CREATE TABLE IF NOT EXISTS orders (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    TIMESTAMP NOT NULL,
	total_amount  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id    INTEGER NOT NULL REFERENCES orders(id),
	product_id  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	price       TEXT NOT NULL,
	image_ref   TEXT NOT NULL DEFAULT '',
	quantity    INTEGER NOT NULL CHECK (quantity > 0),
	PRIMARY KEY (order_id, product_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS products (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	price      NUMERIC(12,2) NOT NULL,
	quantity   INTEGER NOT NULL CHECK (quantity >= 0),
	image_ref  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cart_items (
	product_id        BIGINT PRIMARY KEY,
	name              TEXT NOT NULL,
	price             NUMERIC(12,2) NOT NULL,
	image_ref         TEXT NOT NULL DEFAULT '',
	quantity_in_cart  INTEGER NOT NULL CHECK (quantity_in_cart > 0)
);

CREATE TABLE IF NOT EXISTS orders (
	id            BIGSERIAL PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	total_amount  NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id    BIGINT NOT NULL REFERENCES orders(id),
	product_id  BIGINT NOT NULL,
	name        TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL,
	image_ref   TEXT NOT NULL DEFAULT '',
	quantity    INTEGER NOT NULL CHECK (quantity > 0),
	PRIMARY KEY (order_id, product_id)
);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var ddl string
	switch driver {
	case DriverSQLite:
		ddl = schemaSQLite
	case DriverPostgres:
		ddl = schemaPostgres
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}
