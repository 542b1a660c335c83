package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/amsaid/smartshop/internal/logger"
	"github.com/amsaid/smartshop/internal/store"
	"github.com/amsaid/smartshop/internal/watch"
)

// State is the combined dashboard snapshot delivered to subscribers.
type State struct {
	Stock  StockStats `json:"stock"`
	Cart   CartStats  `json:"cart"`
	Orders OrderStats `json:"orders"`
}

// Service subscribes to the gateway's entity streams and republishes a
// recomputed State after every emission. Recomputation runs on its own
// goroutines, off the write path.
type Service struct {
	store *store.Store
	log   *logger.Logger
	feed  *watch.Feed[State]
	now   func() time.Time

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(st *store.Store, log *logger.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With("component", "dashboard"),
		feed:  watch.NewFeed[State](),
		now:   time.Now,
	}
}

// Start launches one collector per entity stream. Each gateway emission
// recomputes that stream's section of the state and publishes the combined
// snapshot.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	products := s.store.ObserveProducts()
	cart := s.store.ObserveCart()
	orders := s.store.ObserveOrders()

	s.wg.Add(3)

	go func() {
		defer s.wg.Done()
		defer products.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case rows, ok := <-products.C():
				if !ok {
					return
				}
				stats := ComputeStockStats(rows)
				s.publish(func(st *State) { st.Stock = stats })
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		defer cart.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case rows, ok := <-cart.C():
				if !ok {
					return
				}
				stats := ComputeCartStats(rows)
				s.publish(func(st *State) { st.Cart = stats })
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		defer orders.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case rows, ok := <-orders.C():
				if !ok {
					return
				}
				stats := ComputeOrderStats(rows, s.now())
				s.publish(func(st *State) { st.Orders = stats })
			}
		}
	}()

	s.log.Debug("dashboard collectors started")
}

// Stop terminates the collectors and closes the state feed.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.feed.Close()
}

// Observe delivers the current state immediately, then an update after each
// relevant change.
func (s *Service) Observe() *watch.Subscription[State] {
	return s.feed.Subscribe()
}

// Current returns the latest combined state, if one has been computed.
func (s *Service) Current() (State, bool) {
	return s.feed.Latest()
}

func (s *Service) publish(update func(*State)) {
	s.mu.Lock()
	update(&s.state)
	snapshot := s.state
	s.mu.Unlock()
	s.feed.Publish(snapshot)
}
