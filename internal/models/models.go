package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. Cart and order lines copy its fields at the time
// of use instead of referencing it, so catalog edits never rewrite history.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	ImageRef string          `json:"image_ref,omitempty"`
}

// StockValue is price times on-hand quantity.
func (p Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// CartItem is one cart line, keyed by product id. At most one row per product
// exists, and QuantityInCart is always positive; a line that would drop to
// zero is deleted instead.
type CartItem struct {
	ProductID      int64           `json:"product_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ImageRef       string          `json:"image_ref,omitempty"`
	QuantityInCart int             `json:"quantity_in_cart"`
}

// Subtotal is price times quantity in cart.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.QuantityInCart)))
}

// Order is an append-only ledger row, created only by checkout and never
// updated afterward.
type Order struct {
	ID          int64           `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one line of a placed order, identified by (order id, product
// id), with fields copied from the cart line at checkout time.
type OrderItem struct {
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
