package notify

import (
	"context"
	"log"
	"time"

	"github.com/acaidoheitor/orders-api/internal/metrics"
	"github.com/acaidoheitor/orders-api/internal/orders"
)

// TemplateSpec names a message template and builds its body parameters
// from the order being notified about.
type TemplateSpec struct {
	Name   string
	Params func(o orders.Order) []string
}

// Policy maps an order status to the template dispatched when the order
// reaches it. Statuses absent from the map send nothing; an empty or nil
// policy disables dispatch entirely.
type Policy map[string]TemplateSpec

// DefaultPolicy notifies customers at the two statuses they care about:
// the order left for delivery, or it is ready for pickup.
func DefaultPolicy() Policy {
	customerName := func(o orders.Order) []string {
		return []string{o.Customer.Name}
	}
	return Policy{
		orders.StatusOutForDelivery: {Name: "pedido_saiu_entrega", Params: customerName},
		orders.StatusReadyForPickup: {Name: "pedido_pronto_retirada", Params: customerName},
	}
}

// Sender is satisfied by *Client; tests substitute a recorder.
type Sender interface {
	SendTemplate(ctx context.Context, to, templateName string, params []string) error
}

// Dispatcher applies a Policy to status changes. A nil Dispatcher is a
// no-op, which is how disabled notifications are modeled.
type Dispatcher struct {
	sender  Sender
	policy  Policy
	metrics *metrics.Publisher
	timeout time.Duration
}

// NewDispatcher wires a sender to a policy. metrics may be nil.
func NewDispatcher(sender Sender, policy Policy, m *metrics.Publisher) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		policy:  policy,
		metrics: m,
		timeout: 15 * time.Second,
	}
}

// Dispatch sends the template mapped to the new status, if any. It is
// meant to run detached from the response path (`go d.Dispatch(...)`)
// and never reports failure to its caller.
func (d *Dispatcher) Dispatch(status string, o orders.Order) {
	if d == nil {
		return
	}
	spec, ok := d.policy[status]
	if !ok {
		return
	}
	if o.Customer.Phone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var params []string
	if spec.Params != nil {
		params = spec.Params(o)
	}
	if err := d.sender.SendTemplate(ctx, o.Customer.Phone, spec.Name, params); err != nil {
		log.Printf("notify: order %s template %s: %v", o.OrderID, spec.Name, err)
		d.metrics.Count(ctx, "NotificationFailures")
	}
}
