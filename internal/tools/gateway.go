// File: internal/tools/gateway.go
// Description: The tool gateway wraps the order simulator and product catalog
// behind the four query operations the agent can invoke. Every call passes
// through simulated latency plus randomized failure/partial injection; the
// unreliability is deliberate, it is what the agent's reflection logic feeds
// on. Probabilities live in config so tests can pin them to 0 or 1.

package tools

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/config"
	"github.com/q0rren/attendant/internal/simulator"
)

// OrderReader is the slice of the simulator the gateway needs.
type OrderReader interface {
	GetOrder(orderID string) (simulator.Order, error)
	GetUserOrders(userID string, limit int) []simulator.Order
}

// transientErrors are the messages a failed upstream call randomly reports.
var transientErrors = []string{
	"Database connection timeout. Please try again.",
	"Order service unavailable",
	"API rate limit exceeded",
	"Internal server error",
}

// Gateway implements schemas.ToolGateway.
type Gateway struct {
	cfg    config.ToolsConfig
	sim    OrderReader
	logger *zap.Logger

	// rngMu guards rng; the gateway is shared across concurrent runs.
	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ schemas.ToolGateway = (*Gateway)(nil)

// Option customizes a Gateway.
type Option func(*Gateway)

// WithRand injects a deterministic random source for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Gateway) { g.rng = rng }
}

// New creates a Gateway over the given order reader.
func New(cfg config.ToolsConfig, sim OrderReader, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:    cfg,
		sim:    sim,
		logger: logger.Named("tools"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetOrderStatus retrieves one order from the simulator.
func (g *Gateway) GetOrderStatus(ctx context.Context, orderID string) schemas.ToolOutcome {
	g.simulateLatency(ctx)
	if g.shouldFail() {
		return schemas.ErrorOutcome(g.pickError())
	}

	order, err := g.sim.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, simulator.ErrOrderNotFound) {
			return schemas.NotFoundOutcome(fmt.Sprintf("Order ID %s not found", orderID))
		}
		return schemas.ErrorOutcome(err.Error())
	}

	data := map[string]any{
		"order_id":          order.OrderID,
		"product_id":        order.ProductID,
		"product_name":      order.ProductName,
		"status":            string(order.CurrentState),
		"order_date":        order.OrderDate.Format(time.RFC3339),
		"expected_delivery": order.ExpectedDelivery.Format(time.RFC3339),
		"price":             order.Price,
		"user_id":           order.UserID,
		"last_update":       order.LastUpdate.Format(time.RFC3339),
	}
	if order.ActualDelivery != nil {
		data["actual_delivery"] = order.ActualDelivery.Format(time.RFC3339)
	}
	if order.Stuck {
		data["delay_reason"] = string(order.DelayReason)
	}

	if g.shouldReturnPartial() {
		missing := g.redact(data, []string{"actual_delivery", "last_update", "delay_reason"})
		if len(missing) > 0 {
			return schemas.PartialOutcome(data, missing)
		}
	}
	return schemas.SuccessOutcome(data)
}

// GetRefundStatus derives refund state from the order's lifecycle state:
// cancelled and returned orders have processed refunds, delivered orders have
// a 15% chance of an initiated return refund, everything else has none.
func (g *Gateway) GetRefundStatus(ctx context.Context, orderID string) schemas.ToolOutcome {
	g.simulateLatency(ctx)
	if g.shouldFail() {
		return schemas.ErrorOutcome("Refund service temporarily unavailable")
	}

	order, err := g.sim.GetOrder(orderID)
	if err != nil {
		return schemas.NotFoundOutcome(fmt.Sprintf("No refund found for order %s", orderID))
	}

	state := order.CurrentState
	hasRefund := state == simulator.StateCancelled || state == simulator.StateReturned
	if state == simulator.StateDelivered && g.roll() < 0.15 {
		hasRefund = true
	}
	if !hasRefund {
		return schemas.NotFoundOutcome(fmt.Sprintf("No refund found for order %s", orderID))
	}

	data := map[string]any{
		"order_id":       orderID,
		"initiated_date": order.OrderDate.Add(time.Hour).Format(time.RFC3339),
	}
	switch state {
	case simulator.StateCancelled:
		data["refund_status"] = "processed"
		data["refund_amount"] = order.Price
		data["processed_date"] = order.OrderDate.Add(2 * time.Hour).Format(time.RFC3339)
	case simulator.StateReturned:
		// Restocking fee comes off returned-item refunds.
		data["refund_status"] = "processed"
		data["refund_amount"] = order.Price - 5.00
		data["processed_date"] = order.OrderDate.AddDate(0, 0, 3).Format(time.RFC3339)
	default: // delivered with an initiated return
		data["refund_status"] = "initiated"
		data["refund_amount"] = order.Price
	}

	if g.shouldReturnPartial() {
		if _, ok := data["processed_date"]; ok {
			delete(data, "processed_date")
			return schemas.PartialOutcome(data, []string{"processed_date"})
		}
	}
	return schemas.SuccessOutcome(data)
}

// GetInventory looks a product up in the static catalog.
func (g *Gateway) GetInventory(ctx context.Context, productID string) schemas.ToolOutcome {
	g.simulateLatency(ctx)
	if g.shouldFail() {
		return schemas.ErrorOutcome("Inventory service unavailable")
	}

	entry, ok := productCatalog[productID]
	if !ok {
		return schemas.NotFoundOutcome(fmt.Sprintf("Product %s not found", productID))
	}

	data := make(map[string]any, len(entry)+1)
	for k, v := range entry {
		data[k] = v
	}
	data["product_id"] = productID

	if _, ok := data["stock"]; !ok {
		return schemas.PartialOutcome(data, []string{"stock"})
	}
	if g.shouldReturnPartial() {
		delete(data, "stock")
		return schemas.PartialOutcome(data, []string{"stock"})
	}
	return schemas.SuccessOutcome(data)
}

// GetUserOrders lists a user's recent orders, newest first.
func (g *Gateway) GetUserOrders(ctx context.Context, userID string, limit int) schemas.ToolOutcome {
	g.simulateLatency(ctx)
	if g.shouldFail() {
		return schemas.ErrorOutcome("User service unavailable")
	}

	orders := g.sim.GetUserOrders(userID, limit)
	if len(orders) == 0 {
		return schemas.NotFoundOutcome(fmt.Sprintf("No orders found for user %s", userID))
	}

	items := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		items = append(items, map[string]any{
			"order_id":     o.OrderID,
			"product_id":   o.ProductID,
			"product_name": o.ProductName,
			"status":       string(o.CurrentState),
			"order_date":   o.OrderDate.Format(time.RFC3339),
			"price":        o.Price,
			"user_id":      o.UserID,
		})
	}
	return schemas.SuccessOutcome(map[string]any{
		"orders": items,
		"count":  len(items),
	})
}

// redact removes 1-2 of the candidate fields that are actually present and
// returns the removed names.
func (g *Gateway) redact(data map[string]any, candidates []string) []string {
	present := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := data[c]; ok {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return nil
	}

	g.rngMu.Lock()
	g.rng.Shuffle(len(present), func(i, j int) { present[i], present[j] = present[j], present[i] })
	n := 1 + g.rng.Intn(2)
	g.rngMu.Unlock()

	if n > len(present) {
		n = len(present)
	}
	missing := present[:n]
	for _, f := range missing {
		delete(data, f)
	}
	return missing
}

func (g *Gateway) simulateLatency(ctx context.Context) {
	if !g.cfg.SimulateLatency || g.cfg.MaxLatency <= 0 {
		return
	}
	delay := time.Duration(g.roll() * float64(g.cfg.MaxLatency))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (g *Gateway) shouldFail() bool          { return g.roll() < g.cfg.FailureRate }
func (g *Gateway) shouldReturnPartial() bool { return g.roll() < g.cfg.PartialRate }

func (g *Gateway) roll() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}

func (g *Gateway) pickError() string {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return transientErrors[g.rng.Intn(len(transientErrors))]
}
