package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amsaid/smartshop/internal/config"
	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/logger"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: database.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "test.db"),
	}

	st, err := Open(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct(name string, price string, quantity int) models.Product {
	return models.Product{Name: name, Price: dec(price), Quantity: quantity}
}

func TestProductCRUD(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.InsertProduct(ctx, testProduct("Pen", "1.50", 100))
	if err != nil {
		t.Fatalf("Insert product: %v", err)
	}
	if id == 0 {
		t.Error("Assigned id should not be 0")
	}

	product, err := st.ProductByID(ctx, id)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if product.Name != "Pen" || !product.Price.Equal(dec("1.50")) {
		t.Errorf("Unexpected product: %+v", product)
	}

	product.Quantity = 42
	if err := st.UpdateProduct(ctx, *product); err != nil {
		t.Fatalf("Update product: %v", err)
	}
	product, _ = st.ProductByID(ctx, id)
	if product.Quantity != 42 {
		t.Errorf("Expected quantity 42, got %d", product.Quantity)
	}

	if err := st.DeleteProduct(ctx, id); err != nil {
		t.Fatalf("Delete product: %v", err)
	}
	if _, err := st.ProductByID(ctx, id); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected not found after delete, got: %v", err)
	}
	if err := st.DeleteProduct(ctx, id); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected not found on double delete, got: %v", err)
	}
}

func TestProductsOrderedByName(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Zebra", "Apple", "Mango"} {
		if _, err := st.InsertProduct(ctx, testProduct(name, "1.00", 1)); err != nil {
			t.Fatalf("Insert product: %v", err)
		}
	}

	products, err := st.Products(ctx)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}

	want := []string{"Apple", "Mango", "Zebra"}
	for i, product := range products {
		if product.Name != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, product.Name)
		}
	}
}

func TestCartUpsertReplacesSameProduct(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	line := models.CartItem{ProductID: 7, Name: "Pen", Price: dec("1.50"), QuantityInCart: 1}
	if err := st.UpsertCartItem(ctx, line); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	line.QuantityInCart = 4
	line.Price = dec("2.00")
	if err := st.UpsertCartItem(ctx, line); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cart, err := st.CartItems(ctx)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("Expected one line, got %d", len(cart))
	}
	if cart[0].QuantityInCart != 4 || !cart[0].Price.Equal(dec("2.00")) {
		t.Errorf("Unexpected line after upsert: %+v", cart[0])
	}
}

func TestCartItemByProductAbsent(t *testing.T) {
	st := openTestStore(t)

	item, err := st.CartItemByProduct(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get cart item: %v", err)
	}
	if item != nil {
		t.Errorf("Expected nil for absent line, got %+v", item)
	}
}

func TestObserveEmitsInitialSnapshotAndUpdates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sub := st.ObserveProducts()
	defer sub.Cancel()

	select {
	case snapshot := <-sub.C():
		if len(snapshot) != 0 {
			t.Fatalf("Expected empty initial snapshot, got %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for initial snapshot")
	}

	if _, err := st.InsertProduct(ctx, testProduct("Pen", "1.50", 100)); err != nil {
		t.Fatalf("Insert product: %v", err)
	}

	select {
	case snapshot := <-sub.C():
		if len(snapshot) != 1 || snapshot[0].Name != "Pen" {
			t.Fatalf("Expected the committed write in the next emission, got %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for post-write snapshot")
	}
}

func TestFailedWriteEmitsNothingAndChangesNothing(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.InsertProduct(ctx, testProduct("Pen", "1.50", 100)); err != nil {
		t.Fatalf("Insert product: %v", err)
	}

	sub := st.ObserveProducts()
	defer sub.Cancel()
	<-sub.C() // drain the initial snapshot

	boom := errors.New("boom")
	err := st.RunWrite(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET name = $1`, "Broken"); err != nil {
			return err
		}
		return boom
	}, TableProducts)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the write error back, got: %v", err)
	}

	// The rolled-back write must be invisible to readers.
	products, err := st.Products(ctx)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if products[0].Name != "Pen" {
		t.Errorf("Rolled-back write leaked: %+v", products[0])
	}

	// And no snapshot was emitted for it.
	select {
	case snapshot := <-sub.C():
		t.Fatalf("Unexpected emission after failed write: %+v", snapshot)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMultiTableWriteIsAtomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	createdAt := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	// The second line violates the (order_id, product_id) key, so the order
	// row must roll back with it.
	err := st.RunWrite(ctx, func(tx *sql.Tx) error {
		orderID, err := st.InsertOrderTx(ctx, tx, createdAt, dec("3.00"))
		if err != nil {
			return err
		}
		items := []models.OrderItem{
			{OrderID: orderID, ProductID: 1, Name: "Pen", Price: dec("1.50"), Quantity: 1},
			{OrderID: orderID, ProductID: 1, Name: "Pen", Price: dec("1.50"), Quantity: 1},
		}
		return st.InsertOrderItemsTx(ctx, tx, items)
	}, TableOrders, TableOrderItems)
	if err == nil {
		t.Fatal("Expected constraint violation")
	}

	orders, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("Order without its items leaked: %+v", orders)
	}

	items, err := st.OrderItems(ctx)
	if err != nil {
		t.Fatalf("List order items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no order items, got %+v", items)
	}
}

func TestOrdersNewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		createdAt := base.Add(time.Duration(i) * time.Hour)
		err := st.RunWrite(ctx, func(tx *sql.Tx) error {
			_, err := st.InsertOrderTx(ctx, tx, createdAt, dec("1.00"))
			return err
		}, TableOrders)
		if err != nil {
			t.Fatalf("Insert order: %v", err)
		}
	}

	orders, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].CreatedAt.After(orders[i-1].CreatedAt) {
			t.Errorf("Orders not newest first: %v before %v",
				orders[i-1].CreatedAt, orders[i].CreatedAt)
		}
	}
}
