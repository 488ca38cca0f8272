package orders

import "time"

// Order statuses. Spelling matches what the panel and the customer page
// already consume.
const (
	StatusNew            = "novo"
	StatusPreparing      = "preparo"
	StatusOutForDelivery = "entrega"
	StatusReadyForPickup = "pronto_retirada"
	StatusCompleted      = "concluido"
)

// ActiveStatuses are the statuses still requiring operational attention,
// in lifecycle order.
var ActiveStatuses = []string{StatusNew, StatusPreparing, StatusOutForDelivery, StatusReadyForPickup}

// Delivery modes.
const (
	ModeDelivery = "entrega"
	ModePickup   = "retirada"
)

// Item is a single order line item.
type Item struct {
	Name     string  `dynamodbav:"name" json:"name"`
	Quantity int     `dynamodbav:"quantity" json:"quantity"`
	Price    float64 `dynamodbav:"price" json:"price"`
}

// Customer is the contact info attached to an order.
type Customer struct {
	Name  string `dynamodbav:"name" json:"name"`
	Phone string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
}

// Totals carries the money figures computed by the storefront.
type Totals struct {
	Subtotal    float64 `dynamodbav:"subtotal" json:"subtotal"`
	DeliveryFee float64 `dynamodbav:"deliveryFee" json:"deliveryFee"`
	Total       float64 `dynamodbav:"total" json:"total"`
}

// Order represents the document stored in the orders table.
//
// CustomerName is a denormalized copy of Customer.Name kept as a top-level
// attribute so the prefix search filters on a single field.
type Order struct {
	ID           string    `dynamodbav:"id" json:"-"` // PK
	OrderID      string    `dynamodbav:"orderId" json:"orderId"`
	Status       string    `dynamodbav:"status" json:"status"`
	Items        []Item    `dynamodbav:"items" json:"items"`
	Customer     Customer  `dynamodbav:"customer" json:"customer"`
	CustomerName string    `dynamodbav:"customerName" json:"customerName"`
	DeliveryMode string    `dynamodbav:"deliveryMode,omitempty" json:"deliveryMode,omitempty"`
	Totals       Totals    `dynamodbav:"totals" json:"totals"`
	Timestamp    time.Time `dynamodbav:"timestamp" json:"timestamp"`
}

// Document pairs a stored order with its identifier, the shape the panel
// consumes for every list endpoint.
type Document struct {
	ID   string `json:"id"`
	Data Order  `json:"data"`
}
