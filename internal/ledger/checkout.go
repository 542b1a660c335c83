package ledger

import (
	"context"
	"database/sql"

	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/amsaid/smartshop/internal/store"
	"github.com/shopspring/decimal"
)

// Checkout converts the current cart into a new order atomically: it
// snapshots the cart, computes the total, creates the order and its lines,
// and empties the cart, all inside one gateway write scope. Either every
// effect lands or none does. An empty cart fails with database.ErrEmptyCart
// and no side effects.
func (e *Engine) Checkout(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var orderID int64

	err := e.store.RunWrite(ctx, func(tx *sql.Tx) error {
		snapshot, err := e.store.CartItemsTx(ctx, tx)
		if err != nil {
			return err
		}
		if len(snapshot) == 0 {
			return database.ErrEmptyCart
		}

		total := decimal.Zero
		for _, line := range snapshot {
			total = total.Add(line.Subtotal())
		}

		orderID, err = e.store.InsertOrderTx(ctx, tx, e.now(), total)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(snapshot))
		for _, line := range snapshot {
			items = append(items, models.OrderItem{
				OrderID:   orderID,
				ProductID: line.ProductID,
				Name:      line.Name,
				Price:     line.Price,
				ImageRef:  line.ImageRef,
				Quantity:  line.QuantityInCart,
			})
		}

		if err := e.store.InsertOrderItemsTx(ctx, tx, items); err != nil {
			return err
		}

		return e.store.ClearCartTx(ctx, tx)
	}, store.TableOrders, store.TableOrderItems, store.TableCartItems)
	if err != nil {
		return 0, err
	}

	e.log.Info("checkout completed", "order_id", orderID)
	return orderID, nil
}
