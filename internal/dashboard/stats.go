// Package dashboard derives live aggregate views from the entity streams:
// stock and cart valuation, revenue totals, the last-7-days revenue
// histogram, and the top-products chart. Every computation here is a pure
// function of its inputs; identical table contents always produce identical
// output.
package dashboard

import (
	"sort"
	"strconv"
	"time"

	"github.com/amsaid/smartshop/internal/models"
	"github.com/shopspring/decimal"
)

// BarPoint is one bar of a chart handed to the presentation layer.
type BarPoint struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

type StockStats struct {
	ProductsCount    int              `json:"products_count"`
	StockValue       decimal.Decimal  `json:"stock_value"`
	TopProducts      []models.Product `json:"top_products"`
	TopProductsChart []BarPoint       `json:"top_products_chart"`
}

type CartStats struct {
	ItemsCount int             `json:"items_count"`
	CartValue  decimal.Decimal `json:"cart_value"`
}

type OrderStats struct {
	OrdersCount      int             `json:"orders_count"`
	RevenueTotal     decimal.Decimal `json:"revenue_total"`
	RecentOrders     []models.Order  `json:"recent_orders"`
	RevenueLast7Days []BarPoint      `json:"revenue_last_7_days"`
}

const (
	topProductsLimit  = 5
	recentOrdersLimit = 5
	revenueWindowDays = 7
)

// ComputeStockStats counts the catalog, values on-hand stock, and picks the
// top products by stock value. The sort is stable, so ties keep catalog
// iteration order.
func ComputeStockStats(products []models.Product) StockStats {
	stockValue := decimal.Zero
	for _, p := range products {
		stockValue = stockValue.Add(p.StockValue())
	}

	top := make([]models.Product, len(products))
	copy(top, products)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].StockValue().GreaterThan(top[j].StockValue())
	})
	if len(top) > topProductsLimit {
		top = top[:topProductsLimit]
	}

	chart := make([]BarPoint, 0, len(top))
	for _, p := range top {
		chart = append(chart, BarPoint{Label: p.Name, Value: p.StockValue()})
	}

	return StockStats{
		ProductsCount:    len(products),
		StockValue:       stockValue,
		TopProducts:      top,
		TopProductsChart: chart,
	}
}

// ComputeCartStats sums quantities and line subtotals over the cart.
func ComputeCartStats(cart []models.CartItem) CartStats {
	itemsCount := 0
	cartValue := decimal.Zero
	for _, line := range cart {
		itemsCount += line.QuantityInCart
		cartValue = cartValue.Add(line.Subtotal())
	}
	return CartStats{ItemsCount: itemsCount, CartValue: cartValue}
}

// ComputeOrderStats totals revenue, lists the most recent orders, and
// buckets the last seven calendar days of revenue. Day boundaries follow
// now's location; days without orders get a zero bar, so the histogram
// always has exactly seven points in chronological order, labeled by day of
// month.
func ComputeOrderStats(orders []models.Order, now time.Time) OrderStats {
	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.TotalAmount)
	}

	recent := make([]models.Order, len(orders))
	copy(recent, orders)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentOrdersLimit {
		recent = recent[:recentOrdersLimit]
	}

	loc := now.Location()
	today := dayOf(now, loc)

	byDay := make(map[time.Time]decimal.Decimal)
	for _, o := range orders {
		day := dayOf(o.CreatedAt, loc)
		byDay[day] = byDay[day].Add(o.TotalAmount)
	}

	histogram := make([]BarPoint, 0, revenueWindowDays)
	for i := revenueWindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		histogram = append(histogram, BarPoint{
			Label: strconv.Itoa(day.Day()),
			Value: byDay[day],
		})
	}

	return OrderStats{
		OrdersCount:      len(orders),
		RevenueTotal:     revenue,
		RecentOrders:     recent,
		RevenueLast7Days: histogram,
	}
}

// dayOf truncates a timestamp to its calendar date in loc.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
