package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amsaid/smartshop/internal/dashboard"
	"github.com/amsaid/smartshop/internal/database"
)

func TestCheckout(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	product, err := engine.AddProduct(ctx, "Pen", dec("1.50"), 100, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}

	if err := engine.AddToCart(ctx, product.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
	if err := engine.AddToCart(ctx, product.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	cart, err := st.CartItems(ctx)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if stats := dashboard.ComputeCartStats(cart); !stats.CartValue.Equal(dec("3.00")) {
		t.Errorf("Expected cart value 3.00 before checkout, got %s", stats.CartValue)
	}

	orderID, err := engine.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if orderID == 0 {
		t.Error("Order ID should not be 0")
	}

	order, err := st.OrderByID(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !order.TotalAmount.Equal(dec("3.00")) {
		t.Errorf("Expected total 3.00, got %s", order.TotalAmount)
	}

	items, err := st.OrderItemsByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected one order item, got %d", len(items))
	}
	if items[0].Quantity != 2 || !items[0].Price.Equal(dec("1.50")) {
		t.Errorf("Unexpected order item: %+v", items[0])
	}

	cart, err = st.CartItems(ctx)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(cart) != 0 {
		t.Errorf("Expected empty cart after checkout, got %+v", cart)
	}
}

func TestCheckoutTotalMatchesItems(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	pens, err := engine.AddProduct(ctx, "Pen", dec("1.50"), 100, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}
	pads, err := engine.AddProduct(ctx, "Pad", dec("4.25"), 10, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := engine.AddToCart(ctx, pens.ID); err != nil {
			t.Fatalf("Add to cart: %v", err)
		}
	}
	if err := engine.AddToCart(ctx, pads.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	orderID, err := engine.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	order, err := st.OrderByID(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}

	items, err := st.OrderItemsByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order items: %v", err)
	}

	itemsSum := dec("0")
	for _, item := range items {
		itemsSum = itemsSum.Add(item.Subtotal())
	}
	if !order.TotalAmount.Equal(itemsSum) {
		t.Errorf("Order total %s does not equal items sum %s", order.TotalAmount, itemsSum)
	}
	if !order.TotalAmount.Equal(dec("8.75")) {
		t.Errorf("Expected total 8.75, got %s", order.TotalAmount)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	ordersBefore, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}

	_, err = engine.Checkout(ctx)
	if !errors.Is(err, database.ErrEmptyCart) {
		t.Fatalf("Expected empty cart error, got: %v", err)
	}

	ordersAfter, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(ordersAfter) != len(ordersBefore) {
		t.Errorf("Orders count changed from %d to %d", len(ordersBefore), len(ordersAfter))
	}

	items, err := st.OrderItems(ctx)
	if err != nil {
		t.Fatalf("List order items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no order items, got %d", len(items))
	}
}

func TestCheckoutUsesEngineClock(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	fixed := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	product, err := engine.AddProduct(ctx, "Pen", dec("1.50"), 100, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}
	if err := engine.AddToCart(ctx, product.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	orderID, err := engine.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	order, err := st.OrderByID(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !order.CreatedAt.Equal(fixed) {
		t.Errorf("Expected created_at %s, got %s", fixed, order.CreatedAt)
	}
}

func TestCheckoutOrderIDsAreMonotonic(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	product, err := engine.AddProduct(ctx, "Pen", dec("1.50"), 100, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}

	var last int64
	for i := 0; i < 3; i++ {
		if err := engine.AddToCart(ctx, product.ID); err != nil {
			t.Fatalf("Add to cart: %v", err)
		}
		orderID, err := engine.Checkout(ctx)
		if err != nil {
			t.Fatalf("Checkout %d: %v", i, err)
		}
		if orderID <= last {
			t.Errorf("Expected order id above %d, got %d", last, orderID)
		}
		last = orderID
	}
}

func TestConcurrentAddToCartAndCheckout(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	product, err := engine.AddProduct(ctx, "Pen", dec("1.50"), 100, "")
	if err != nil {
		t.Fatalf("Add product: %v", err)
	}
	if err := engine.AddToCart(ctx, product.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	// Adds race one checkout; the engine lock keeps every add either fully
	// before the snapshot or fully after the clear.
	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			done <- engine.AddToCart(ctx, product.ID)
		}()
	}

	orderID, err := engine.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Concurrent add: %v", err)
		}
	}

	// Ledger invariant: the order total equals the sum of its items,
	// regardless of how the race interleaved.
	order, err := st.OrderByID(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	items, err := st.OrderItemsByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("Get order items: %v", err)
	}
	itemsSum := dec("0")
	for _, item := range items {
		itemsSum = itemsSum.Add(item.Subtotal())
	}
	if !order.TotalAmount.Equal(itemsSum) {
		t.Errorf("Order total %s does not equal items sum %s", order.TotalAmount, itemsSum)
	}

	// Every line that survived the race is a fresh post-checkout add.
	cart, err := st.CartItems(ctx)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	for _, line := range cart {
		if line.QuantityInCart <= 0 {
			t.Errorf("Cart line with non-positive quantity: %+v", line)
		}
	}
}
