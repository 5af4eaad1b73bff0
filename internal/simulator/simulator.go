// File: internal/simulator/simulator.go
// Description: The order lifecycle simulator. A single mutex guards the order
// map; the background ticker takes the lock for one full scan-and-mutate pass,
// releases it, then persists the snapshot outside the lock. Foreground reads
// share the same lock and receive copies.

package simulator

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/q0rren/attendant/internal/config"
)

// ErrOrderNotFound is returned when an order ID is not in the book.
var ErrOrderNotFound = errors.New("order not found")

// joinTimeout bounds how long Stop waits for the ticker to exit.
const joinTimeout = 2 * time.Second

// Simulator maintains a plausible, evolving set of orders without external
// input, backed by a CSV file.
type Simulator struct {
	cfg    config.SimulatorConfig
	logger *zap.Logger

	mu     sync.Mutex
	orders map[string]*Order
	// rng is only touched with mu held; rand.Rand is not goroutine-safe.
	rng *rand.Rand

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRand injects a deterministic random source. Tests use this to pin the
// stuck/cancel branch rolls.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// New loads the order book from the configured CSV file, or bootstraps a
// sample set when the file does not exist, and persists the result. The
// ticker is not started; call Start.
func New(cfg config.SimulatorConfig, logger *zap.Logger, opts ...Option) (*Simulator, error) {
	s := &Simulator{
		cfg:    cfg,
		logger: logger.Named("simulator"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(cfg.CSVPath); err == nil {
		orders, err := loadOrders(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("loading order db: %w", err)
		}
		s.orders = orders
		s.logger.Info("Loaded existing order db", zap.Int("orders", len(orders)), zap.String("path", cfg.CSVPath))
	} else {
		s.orders = sampleOrders(s.rng)
		if err := saveOrders(cfg.CSVPath, s.Snapshot()); err != nil {
			return nil, fmt.Errorf("persisting bootstrap orders: %w", err)
		}
		s.logger.Info("Bootstrapped sample order db", zap.Int("orders", len(s.orders)), zap.String("path", cfg.CSVPath))
	}
	return s, nil
}

// GetOrder returns a copy of the order, or ErrOrderNotFound.
func (s *Simulator) GetOrder(orderID string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return *o, nil
}

// GetUserOrders returns up to limit of the user's orders, newest first.
func (s *Simulator) GetUserOrders(userID string, limit int) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Start launches the background ticker. Idempotent while running.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.run(s.stopChan, s.doneChan)
	s.logger.Info("Simulator started",
		zap.Float64("time_multiplier", s.cfg.TimeMultiplier),
		zap.Duration("tick_interval", s.cfg.TickInterval))
}

// Stop signals the ticker, waits for it with a bounded join, and performs one
// final flush.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(joinTimeout):
		s.logger.Warn("Ticker did not exit within join timeout")
	}

	if err := saveOrders(s.cfg.CSVPath, s.Snapshot()); err != nil {
		s.logger.Error("Final flush failed", zap.Error(err))
	}
	s.logger.Info("Simulator stopped and saved")
}

// Reset clears all orders, regenerates the sample set and persists it.
// Operator action only; not reachable from the agent's flow.
func (s *Simulator) Reset() error {
	s.mu.Lock()
	s.orders = sampleOrders(s.rng)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := saveOrders(s.cfg.CSVPath, snap); err != nil {
		return fmt.Errorf("persisting reset orders: %w", err)
	}
	s.logger.Info("Simulator reset to initial state")
	return nil
}

// run is the ticker loop: scan-and-mutate under the lock, persist outside it,
// sleep, repeat. The stop flag is checked once per cycle.
func (s *Simulator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if changed := s.tick(time.Now()); changed > 0 {
				if err := saveOrders(s.cfg.CSVPath, s.Snapshot()); err != nil {
					s.logger.Error("Failed to persist order db", zap.Error(err))
				}
			}
		}
	}
}

// tick advances every eligible order one transition and reports how many
// orders changed. Exported to tests via the now parameter.
func (s *Simulator) tick(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, o := range s.orders {
		if s.progressOrder(o, now) {
			changed++
		}
	}
	if changed > 0 {
		s.logger.Debug("Advanced orders", zap.Int("changed", changed))
	}
	return changed
}

// progressOrder applies the transition algorithm to a single order. Must be
// called with the lock held.
func (s *Simulator) progressOrder(o *Order, now time.Time) bool {
	if o.CurrentState.IsTerminal() || o.Stuck {
		return false
	}

	required, ok := dwellHours[o.CurrentState]
	if !ok {
		// Unknown or stuck state without the flag set; leave it alone.
		return false
	}

	elapsedSimHours := now.Sub(o.LastUpdate).Seconds() * s.cfg.TimeMultiplier / 3600
	if elapsedSimHours < required {
		return false
	}

	rng := s.rng
	switch {
	case rng.Float64() < s.cfg.StuckRate:
		o.Stuck = true
		o.CurrentState = StateStuck
		o.DelayReason = delayReasons[rng.Intn(len(delayReasons))]
	case rng.Float64() < s.cfg.CancelRate:
		o.CurrentState = StateCancelled
	default:
		next := o.CurrentState.next()
		if next == "" {
			return false
		}
		o.CurrentState = next
		if next == StateDelivered {
			t := now
			o.ActualDelivery = &t
		}
	}
	o.LastUpdate = now
	return true
}

// Snapshot copies the current order book, sorted by order ID. Used for
// persistence outside the lock and for operator listings.
func (s *Simulator) Snapshot() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulator) snapshotLocked() []Order {
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
