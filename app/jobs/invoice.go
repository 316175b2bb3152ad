package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/shashiranjanraj/ordersvc/app/models"
	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Order.ID}}</title></head>
<body>
<h1>Invoice</h1>
<p>Order: {{.Order.ID}}<br>Date: {{.Order.CreatedAt.Format "2006-01-02"}}<br>Issued: {{.Issued.Format "2006-01-02 15:04 MST"}}</p>
{{with .Order.ShippingAddress}}<p>
{{.FullName}}<br>
{{.AddressLine1}}<br>
{{with .AddressLine2}}{{if .}}{{.}}<br>{{end}}{{end}}
{{.City}}, {{.State}} {{.PostalCode}}<br>
{{.Country}}
</p>{{end}}
<table>
<thead><tr><th>Item</th><th>Name</th><th>Price</th><th>Qty</th><th>Total</th></tr></thead>
<tbody>
{{range .Order.Items}}<tr><td>{{.ItemID}}</td><td>{{.Name}}</td><td>{{printf "%.2f" .Price}}</td><td>{{.Quantity}}</td><td>{{printf "%.2f" .Total}}</td></tr>
{{end}}</tbody>
</table>
<p><strong>Total: {{printf "%.2f" .Order.TotalAmount}}</strong></p>
</body>
</html>
`))

// InvoicePath is where the invoice of order id is stored on the disk.
func InvoicePath(orderID string) string {
	return "invoices/invoice_" + orderID + ".html"
}

func renderInvoice(order models.Order, issued time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := invoiceTmpl.Execute(&buf, struct {
		Order  models.Order
		Issued time.Time
	}{order, issued.UTC()})
	if err != nil {
		return nil, fmt.Errorf("jobs: render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateInvoice renders the invoice, stores it and records its URL on the
// order. An order that already has an invoice is left alone.
func (h *Handlers) GenerateInvoice(ctx context.Context, raw json.RawMessage) error {
	var p GenerateInvoice
	if err := decode(raw, &p); err != nil {
		return err
	}

	order, ok, err := h.loadOrder(ctx, p.OrderID)
	if err != nil || !ok {
		return err
	}
	if order.InvoiceURL != nil && *order.InvoiceURL != "" {
		logger.WithCtx(ctx).Info("invoice already generated", "order_id", order.ID)
		return nil
	}

	body, err := renderInvoice(order, time.Now())
	if err != nil {
		return err
	}

	path := InvoicePath(order.ID)
	if err := h.disk.Put(ctx, path, body, "text/html; charset=utf-8"); err != nil {
		return fmt.Errorf("jobs: store invoice: %w", err)
	}

	url := h.disk.URL(path)
	if h.link != nil {
		url = h.link(order.ID)
	}
	if err := h.orders.SetInvoiceURL(ctx, order.ID, url); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("invoice generated", "order_id", order.ID, "url", url)
	return nil
}
