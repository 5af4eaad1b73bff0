// File: internal/simulator/order.go
package simulator

import "time"

// OrderState is one step in the order lifecycle.
type OrderState string

const (
	StatePlaced         OrderState = "placed"
	StateConfirmed      OrderState = "confirmed"
	StatePacked         OrderState = "packed"
	StateDispatched     OrderState = "dispatched"
	StateInTransit      OrderState = "in_transit"
	StateOutForDelivery OrderState = "out_for_delivery"
	StateDelivered      OrderState = "delivered"
	StateCancelled      OrderState = "cancelled"
	StateReturned       OrderState = "returned"
	StateStuck          OrderState = "stuck"
)

// happyPath is the linear progression an untroubled order follows.
var happyPath = []OrderState{
	StatePlaced,
	StateConfirmed,
	StatePacked,
	StateDispatched,
	StateInTransit,
	StateOutForDelivery,
	StateDelivered,
}

// dwellHours is the minimum simulated time an order must sit in a state
// before it becomes eligible to transition out of it.
var dwellHours = map[OrderState]float64{
	StatePlaced:         1,
	StateConfirmed:      2,
	StatePacked:         3,
	StateDispatched:     6,
	StateInTransit:      24,
	StateOutForDelivery: 4,
}

// IsTerminal reports whether no further automatic transition occurs. Stuck is
// terminal too, but only until an external reset; it is tracked separately via
// Order.Stuck.
func (s OrderState) IsTerminal() bool {
	switch s {
	case StateDelivered, StateCancelled, StateReturned:
		return true
	default:
		return false
	}
}

// next returns the following happy-path state, or "" when s has no successor.
func (s OrderState) next() OrderState {
	for i, st := range happyPath {
		if st == s && i < len(happyPath)-1 {
			return happyPath[i+1]
		}
	}
	return ""
}

// DelayReason names the cause of a stuck order.
type DelayReason string

const (
	DelayNone              DelayReason = "none"
	DelayWeather           DelayReason = "weather_delay"
	DelayHighDemand        DelayReason = "high_demand"
	DelayAddressIssue      DelayReason = "address_verification_failed"
	DelayVehicleBreakdown  DelayReason = "vehicle_breakdown"
	DelayCustoms           DelayReason = "customs_clearance"
	DelayWarehouseBacklog  DelayReason = "warehouse_backlog"
)

// delayReasons are the assignable non-none causes.
var delayReasons = []DelayReason{
	DelayWeather,
	DelayHighDemand,
	DelayAddressIssue,
	DelayVehicleBreakdown,
	DelayCustoms,
	DelayWarehouseBacklog,
}

// Order represents one purchase's lifecycle. Mutated exclusively by the
// simulator's ticker under its lock; callers receive copies.
type Order struct {
	OrderID          string
	ProductID        string
	ProductName      string
	Price            float64
	UserID           string
	OrderDate        time.Time
	CurrentState     OrderState
	LastUpdate       time.Time
	ExpectedDelivery time.Time
	// ActualDelivery is set exactly when the order reaches delivered.
	ActualDelivery *time.Time
	DelayReason    DelayReason
	Stuck          bool
}
