package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		status OrderStatus
		next   OrderStatus
	}{
		{OrderStatusPending, OrderStatusInProgress},
		{OrderStatusInProgress, OrderStatusCooked},
		{OrderStatusCooked, OrderStatusOutToDelivery},
		{OrderStatusOutToDelivery, OrderStatusDelivered},
		{OrderStatusDelivered, ""},
		{OrderStatusCanceled, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.next, tt.status.Next())
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCanceled.Terminal())

	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusInProgress, OrderStatusCooked, OrderStatusOutToDelivery} {
		assert.False(t, s.Terminal(), "status %q", s)
	}
}

func TestCanTransition(t *testing.T) {
	// Cancel is reachable from every non-terminal status.
	for _, s := range AllStatuses {
		if s.Terminal() {
			assert.False(t, s.CanTransition(OrderStatusCanceled), "from %q", s)
		} else {
			assert.True(t, s.CanTransition(OrderStatusCanceled), "from %q", s)
		}
	}

	// Only the single chain step is allowed otherwise.
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusInProgress))
	assert.False(t, OrderStatusPending.CanTransition(OrderStatusCooked))
	assert.False(t, OrderStatusPending.CanTransition(OrderStatusDelivered))
	assert.False(t, OrderStatusDelivered.CanTransition(OrderStatusPending))
	assert.False(t, OrderStatusCanceled.CanTransition(OrderStatusInProgress))
}

func TestValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, OrderStatus("Shipped").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestCustomerName(t *testing.T) {
	assert.Equal(t, "Unknown Customer", Order{}.CustomerName())
	assert.Equal(t, "Baker St, London", Order{Address: &Address{Street: "Baker St", City: "London"}}.CustomerName())
	assert.Equal(t, "London", Order{Address: &Address{City: "London"}}.CustomerName())
	assert.Equal(t, "Unknown Customer", Order{Address: &Address{}}.CustomerName())
}
