package jobs

const (
	EmailQueue   = "emailQueue"
	InvoiceQueue = "invoiceQueue"

	SendOrderEmailJob  = "sendOrderEmail"
	GenerateInvoiceJob = "generateInvoice"
)

// Queues lists every queue a worker should consume by default.
var Queues = []string{EmailQueue, InvoiceQueue}

// SendOrderEmail is the payload of sendOrderEmail. Email may be empty when
// the owner could not be looked up at enqueue time; the handler resolves it
// from UserID.
type SendOrderEmail struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
	UserID  string `json:"userId"`
}

func (p SendOrderEmail) JobKey() string { return p.OrderID }

type GenerateInvoice struct {
	OrderID string  `json:"orderId"`
	UserID  string  `json:"userId"`
	Amount  float64 `json:"amount"`
}

func (p GenerateInvoice) JobKey() string { return p.OrderID }
