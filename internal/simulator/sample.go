// File: internal/simulator/sample.go
package simulator

import (
	"math/rand"
	"strconv"
	"time"
)

// sampleUserID owns every bootstrap order; it doubles as the default session
// user so demo queries always have data behind them.
const sampleUserID = "user_12345"

type sampleProduct struct {
	id    string
	name  string
	price float64
}

var sampleProducts = []sampleProduct{
	{"P456", "Wireless Headphones", 89.99},
	{"P789", "Smart Watch", 299.99},
	{"P999", "Gaming Laptop", 1299.99},
	{"P111", "Bluetooth Speaker", 49.99},
	{"P222", "Phone Case", 19.99},
	{"P333", "USB Cable", 9.99},
	{"P444", "Laptop Skin", 14.99},
}

// sampleOrders synthesizes the bootstrap order book: one order per sample
// product with an ID counting up from 98760, a random non-terminal initial
// state, and a historical order date 1-10 days back.
func sampleOrders(rng *rand.Rand) map[string]*Order {
	// Second precision keeps the book stable across a CSV roundtrip.
	now := time.Now().Truncate(time.Second)
	orders := make(map[string]*Order, len(sampleProducts))

	orderID := 98760
	for i, p := range sampleProducts {
		orderID += i
		orderDate := now.AddDate(0, 0, -(1 + rng.Intn(10)))
		state := happyPath[rng.Intn(len(happyPath))]

		o := &Order{
			OrderID:          strconv.Itoa(orderID),
			ProductID:        p.id,
			ProductName:      p.name,
			Price:            p.price,
			UserID:           sampleUserID,
			OrderDate:        orderDate,
			CurrentState:     state,
			LastUpdate:       orderDate,
			ExpectedDelivery: orderDate.AddDate(0, 0, 7),
			DelayReason:      DelayNone,
		}
		if state == StateDelivered {
			t := orderDate.AddDate(0, 0, 5)
			o.ActualDelivery = &t
		}
		orders[o.OrderID] = o
	}
	return orders
}
