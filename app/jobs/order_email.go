package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
	"github.com/shashiranjanraj/ordersvc/pkg/mail"
	"github.com/shashiranjanraj/ordersvc/pkg/notification"
)

var orderPlacedTmpl = template.Must(template.New("order_placed").Parse(`<p>Hi,</p>
<p>Your order <strong>{{.ID}}</strong> has been placed.</p>
<table>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}} x {{printf "%.2f" .Price}}</td><td>{{printf "%.2f" .Total}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{printf "%.2f" .TotalAmount}}</strong></p>
<p>Status: {{.Status}}</p>
`))

// OrderPlaced is sent to the owner once an order is persisted.
type OrderPlaced struct {
	Order models.Order
}

func (n OrderPlaced) Via() []string {
	return []string{notification.Mail, notification.Webhook}
}

func (n OrderPlaced) ToMail(to string) mail.Message {
	msg := mail.Message{
		To:      []string{to},
		Subject: "Order confirmation #" + n.Order.ID,
		Text:    fmt.Sprintf("Your order %s has been placed. Total: %.2f", n.Order.ID, n.Order.TotalAmount),
	}
	if html, err := mail.Render(orderPlacedTmpl, n.Order); err == nil {
		msg.HTML = html
	}
	return msg
}

func (n OrderPlaced) ToWebhook() any {
	return map[string]any{
		"event":       "order.placed",
		"orderId":     n.Order.ID,
		"userId":      n.Order.UserID,
		"totalAmount": n.Order.TotalAmount,
		"status":      n.Order.Status,
	}
}

// SendOrderEmail notifies the owner that their order was placed.
func (h *Handlers) SendOrderEmail(ctx context.Context, raw json.RawMessage) error {
	var p SendOrderEmail
	if err := decode(raw, &p); err != nil {
		return err
	}

	order, ok, err := h.loadOrder(ctx, p.OrderID)
	if err != nil || !ok {
		return err
	}

	email := p.Email
	if email == "" {
		owner, err := h.users.FindByID(ctx, order.UserID)
		if err != nil {
			return fmt.Errorf("jobs: resolve owner email: %w", err)
		}
		email = owner.Email
	}

	logger.WithCtx(ctx).Info("sending order email", "order_id", order.ID)
	if err := h.notifier.Send(ctx, email, OrderPlaced{Order: order}); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("order email sent", "order_id", order.ID, "to", email)
	return nil
}
