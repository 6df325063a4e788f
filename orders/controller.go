package orders

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"food-delivery/panel/models"
)

// PollInterval is how often the order list is refreshed to pick up status
// changes made by other clients (kitchen staff, couriers).
const PollInterval = 60 * time.Second

// Service is the remote order backend. An empty status means no filter.
type Service interface {
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID int, status models.OrderStatus) (models.Order, error)
}

// TransitionFunc observes a successful status transition.
type TransitionFunc func(order models.Order, from, to models.OrderStatus)

// Controller owns the last known-good order snapshot and relays operator
// transitions to the backend. Updates are pessimistic: local state only
// changes after the backend confirms.
type Controller struct {
	svc          Service
	interval     time.Duration
	onTransition TransitionFunc

	mu            sync.RWMutex
	filter        models.OrderStatus
	orders        []models.Order
	lastErr       error
	pendingCancel int

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewController(svc Service) *Controller {
	return &Controller{
		svc:      svc,
		interval: PollInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetInterval overrides the polling interval. Call before Start.
func (c *Controller) SetInterval(d time.Duration) {
	c.interval = d
}

// OnTransition registers a hook called after every confirmed transition.
func (c *Controller) OnTransition(fn TransitionFunc) {
	c.onTransition = fn
}

// Start loads the initial order list and begins periodic refresh. The
// ticker stops when Stop is called or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		log.Printf("orders: initial refresh failed: %v", err)
	}

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					log.Printf("orders: periodic refresh failed: %v", err)
				}
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the polling loop. Safe to call more than once, and before
// Start: without a running loop there is nothing to wait for.
func (c *Controller) Stop() {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()

	c.stopOnce.Do(func() { close(c.stop) })
	if started {
		<-c.done
	}
}

// Refresh fetches orders for the current filter. On failure the previous
// snapshot is kept so the view never blanks out.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.RLock()
	filter := c.filter
	c.mu.RUnlock()

	orders, err := c.svc.List(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		return err
	}
	c.orders = orders
	c.lastErr = nil
	return nil
}

// SetFilter changes the status filter and refetches. An empty status is the
// "All" pseudo-filter.
func (c *Controller) SetFilter(ctx context.Context, status models.OrderStatus) error {
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown order status %q", status)
	}
	c.mu.Lock()
	c.filter = status
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Orders returns a copy of the last known-good snapshot.
func (c *Controller) Orders() []models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Order, len(c.orders))
	copy(out, c.orders)
	return out
}

// Err returns the error from the most recent failed operation, nil after a
// successful refresh.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) find(orderID int) (models.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, o := range c.orders {
		if o.ID == orderID {
			return o, true
		}
	}
	return models.Order{}, false
}

// Advance moves an order one step along the status chain. Terminal orders
// are a no-op, not an error: the UI disables the control instead.
func (c *Controller) Advance(ctx context.Context, orderID int) error {
	order, ok := c.find(orderID)
	if !ok {
		return fmt.Errorf("order %d not found", orderID)
	}
	next := order.Status.Next()
	if next == "" {
		return nil
	}
	return c.transition(ctx, order, next)
}

// Accept moves a Pending order to In progress.
func (c *Controller) Accept(ctx context.Context, orderID int) error {
	order, ok := c.find(orderID)
	if !ok {
		return fmt.Errorf("order %d not found", orderID)
	}
	if order.Status != models.OrderStatusPending {
		return fmt.Errorf("order %d is %q, only Pending orders can be accepted", orderID, order.Status)
	}
	return c.transition(ctx, order, models.OrderStatusInProgress)
}

// RequestCancel records a cancellation request for the order. The cancel is
// only sent to the backend once ConfirmCancel is called.
func (c *Controller) RequestCancel(orderID int) error {
	order, ok := c.find(orderID)
	if !ok {
		return fmt.Errorf("order %d not found", orderID)
	}
	if order.Status.Terminal() {
		return fmt.Errorf("order %d is already %q", orderID, order.Status)
	}
	c.mu.Lock()
	c.pendingCancel = orderID
	c.mu.Unlock()
	return nil
}

// PendingCancel returns the order id awaiting confirmation, 0 if none.
func (c *Controller) PendingCancel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pendingCancel
}

// DismissCancel drops the pending cancellation request.
func (c *Controller) DismissCancel() {
	c.mu.Lock()
	c.pendingCancel = 0
	c.mu.Unlock()
}

// ConfirmCancel performs the previously requested cancellation.
func (c *Controller) ConfirmCancel(ctx context.Context) error {
	c.mu.Lock()
	orderID := c.pendingCancel
	c.pendingCancel = 0
	c.mu.Unlock()

	if orderID == 0 {
		return fmt.Errorf("no cancellation pending")
	}
	order, ok := c.find(orderID)
	if !ok {
		return fmt.Errorf("order %d not found", orderID)
	}
	if order.Status.Terminal() {
		return fmt.Errorf("order %d is already %q", orderID, order.Status)
	}
	return c.transition(ctx, order, models.OrderStatusCanceled)
}

func (c *Controller) transition(ctx context.Context, order models.Order, target models.OrderStatus) error {
	if !order.Status.CanTransition(target) {
		return fmt.Errorf("order %d cannot move from %q to %q", order.ID, order.Status, target)
	}

	updated, err := c.svc.UpdateStatus(ctx, order.ID, target)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	if c.onTransition != nil {
		c.onTransition(updated, order.Status, target)
	}

	// Pessimistic path: the snapshot only changes via a fresh fetch.
	if err := c.Refresh(ctx); err != nil {
		log.Printf("orders: refresh after transition failed: %v", err)
	}
	return nil
}
