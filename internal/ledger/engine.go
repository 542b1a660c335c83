// Package ledger is the cart/order transaction engine: catalog commands,
// cart line mutations, and the atomic checkout that turns the cart into an
// order.
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/logger"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/amsaid/smartshop/internal/store"
	"github.com/shopspring/decimal"
)

type Engine struct {
	store *store.Store
	log   *logger.Logger
	now   func() time.Time

	// mu serializes cart mutations against checkout, so a concurrent add
	// can never land between the checkout snapshot and the cart clear.
	mu sync.Mutex
}

func New(st *store.Store, log *logger.Logger) *Engine {
	return &Engine{
		store: st,
		log:   log.With("component", "ledger"),
		now:   time.Now,
	}
}

// validateProduct rejects bad catalog input before any persistence I/O.
func validateProduct(name string, price decimal.Decimal, quantity int) error {
	if strings.TrimSpace(name) == "" {
		return &database.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !price.IsPositive() {
		return &database.ValidationError{Field: "price", Reason: "must be greater than zero"}
	}
	if quantity < 0 {
		return &database.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return nil
}

// AddProduct creates a catalog row and returns it with its assigned id.
func (e *Engine) AddProduct(ctx context.Context, name string, price decimal.Decimal, quantity int, imageRef string) (*models.Product, error) {
	if err := validateProduct(name, price, quantity); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:     name,
		Price:    price,
		Quantity: quantity,
		ImageRef: imageRef,
	}

	id, err := e.store.InsertProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	product.ID = id
	e.log.Debug("product added", "id", id, "name", name)
	return &product, nil
}

// UpdateProduct fully replaces name, price, quantity, and image ref under
// the same id. Historical cart and order rows keep their denormalized
// copies.
func (e *Engine) UpdateProduct(ctx context.Context, product models.Product) error {
	if err := validateProduct(product.Name, product.Price, product.Quantity); err != nil {
		return err
	}
	return e.store.UpdateProduct(ctx, product)
}

func (e *Engine) DeleteProduct(ctx context.Context, id int64) error {
	return e.store.DeleteProduct(ctx, id)
}

// AddToCart increments the cart line for a product by exactly one, creating
// it at quantity 1 when absent. The line's denormalized fields are refreshed
// from the current catalog row on every call.
func (e *Engine) AddToCart(ctx context.Context, productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	product, err := e.store.ProductByID(ctx, productID)
	if err != nil {
		return err
	}

	existing, err := e.store.CartItemByProduct(ctx, productID)
	if err != nil {
		return err
	}

	quantity := 1
	if existing != nil {
		quantity = existing.QuantityInCart + 1
	}

	return e.store.UpsertCartItem(ctx, models.CartItem{
		ProductID:      product.ID,
		Name:           product.Name,
		Price:          product.Price,
		ImageRef:       product.ImageRef,
		QuantityInCart: quantity,
	})
}

// SetCartQuantity replaces the quantity of an existing line. A quantity of
// zero or less deletes the line. When no line exists this is a silent no-op:
// the engine never conjures a line with an arbitrary quantity.
func (e *Engine) SetCartQuantity(ctx context.Context, productID int64, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		return e.store.DeleteCartItem(ctx, productID)
	}

	existing, err := e.store.CartItemByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	existing.QuantityInCart = quantity
	return e.store.UpsertCartItem(ctx, *existing)
}

// RemoveFromCart deletes the line unconditionally; absent is a no-op.
func (e *Engine) RemoveFromCart(ctx context.Context, productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DeleteCartItem(ctx, productID)
}

// ClearCart deletes every cart line.
func (e *Engine) ClearCart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ClearCart(ctx)
}

// OrderWithItems returns one order together with its lines.
func (e *Engine) OrderWithItems(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := e.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := e.store.OrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.Items = items
	return order, nil
}
