package models

import "time"

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "Pending"
	OrderStatusInProgress    OrderStatus = "In progress"
	OrderStatusCooked        OrderStatus = "Cooked"
	OrderStatusOutToDelivery OrderStatus = "Out to delivery"
	OrderStatusDelivered     OrderStatus = "Delivered"
	OrderStatusCanceled      OrderStatus = "Canceled"
)

// statusChain is the single-step forward progression of an order.
// Terminal statuses have no entry.
var statusChain = map[OrderStatus]OrderStatus{
	OrderStatusPending:       OrderStatusInProgress,
	OrderStatusInProgress:    OrderStatusCooked,
	OrderStatusCooked:        OrderStatusOutToDelivery,
	OrderStatusOutToDelivery: OrderStatusDelivered,
}

// AllStatuses lists every status in chain order, for filter UIs.
var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusCooked,
	OrderStatusOutToDelivery,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

func (s OrderStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the successor status in the chain, or "" if s is terminal.
func (s OrderStatus) Next() OrderStatus {
	return statusChain[s]
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// CanTransition reports whether a single operator action may move an order
// from s to target: either the one chain step, or a cancel while non-terminal.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == OrderStatusCanceled {
		return true
	}
	return statusChain[s] == target
}

type Order struct {
	ID          int         `json:"id"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalPrice  float64     `json:"totalPrice"`
	DeliveryFee float64     `json:"deliveryFee,omitempty"`
	Address     *Address    `json:"address,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type OrderItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type Product struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Price       float64      `json:"price"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
}

type Ingredient struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// CustomerName derives the display name shown in the orders table. The
// backend does not send one, so the street/city pair stands in for it.
func (o Order) CustomerName() string {
	if o.Address == nil {
		return "Unknown Customer"
	}
	name := o.Address.Street
	if o.Address.City != "" {
		if name != "" {
			name += ", "
		}
		name += o.Address.City
	}
	if name == "" {
		return "Unknown Customer"
	}
	return name
}
