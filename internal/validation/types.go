package validation

// Item represents a single order line item.
type Item struct {
	Name     string  `json:"name" validate:"required"`
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// Customer is the contact info block of an order payload.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Totals mirrors the money figures the storefront computes client-side.
type Totals struct {
	Subtotal    float64 `json:"subtotal" validate:"gte=0"`
	DeliveryFee float64 `json:"deliveryFee" validate:"gte=0"`
	Total       float64 `json:"total" validate:"gte=0"`
}

// CreateOrderRequest is the payload for POST /orders. Only items are
// mandatory; customer and delivery fields arrive as the storefront sends
// them. Status, orderId and timestamp are accepted but always overwritten
// server-side.
type CreateOrderRequest struct {
	Items        []Item   `json:"items" validate:"required,min=1,dive"`
	Customer     Customer `json:"customer"`
	CustomerName string   `json:"customerName"`
	DeliveryMode string   `json:"deliveryMode" validate:"omitempty,oneof=entrega retirada"`
	Totals       Totals   `json:"totals"`
	Status       string   `json:"status"`
	OrderID      string   `json:"orderId"`
}

// UpdateStatusRequest is the payload for PATCH /orders/:id.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
