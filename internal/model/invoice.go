package model

import "time"

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var invoiceNext = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoiceDraft:     {InvoiceSent: true, InvoiceCancelled: true},
	InvoiceSent:      {InvoicePaid: true, InvoiceOverdue: true, InvoiceCancelled: true},
	InvoiceOverdue:   {InvoicePaid: true, InvoiceCancelled: true},
	InvoicePaid:      {},
	InvoiceCancelled: {},
}

func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceNext[s]
	return ok
}

func CanTransitionInvoice(from, to InvoiceStatus) bool {
	return invoiceNext[from][to]
}

type Invoice struct {
	ID           string        `json:"id"`
	Number       string        `json:"number"`
	UserID       string        `json:"user_id"`
	CompanyName  string        `json:"company_name"`
	OrderID      string        `json:"order_id,omitempty"`
	Status       InvoiceStatus `json:"status"`
	Items        []InvoiceItem `json:"items,omitempty"`
	Subtotal     float64       `json:"subtotal"`
	TaxAmount    float64       `json:"tax_amount"`
	Discount     float64       `json:"discount"`
	Total        float64       `json:"total"`
	Currency     string        `json:"currency"`
	PaymentTerms int           `json:"payment_terms"` // days until due
	IssuedAt     time.Time     `json:"issued_at"`
	DueAt        time.Time     `json:"due_at"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
}

type InvoiceItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	Total       float64 `json:"total"` // pre-tax line total
}

// PaymentRecord is created only as a side effect of marking an invoice paid.
type PaymentRecord struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

// InvoiceTotals is the result of recomputing an invoice's money fields
// from its line items.
type InvoiceTotals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// ComputeInvoiceTotals derives all invoice money fields from the line
// items and a flat discount:
//
//	subtotal  = Σ qty*unitPrice
//	taxAmount = Σ line*taxRate
//	total     = subtotal + taxAmount - discount
//
// Every value is rounded to 2 decimals. Totals are always recomputed in
// full on item changes, never adjusted incrementally.
func ComputeInvoiceTotals(items []InvoiceItem, discount float64) InvoiceTotals {
	var subtotal, tax float64
	for _, it := range items {
		line := Round2(float64(it.Quantity) * it.UnitPrice)
		subtotal += line
		tax += line * it.TaxRate
	}
	subtotal = Round2(subtotal)
	tax = Round2(tax)
	return InvoiceTotals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     Round2(subtotal + tax - discount),
	}
}

// LineTotal returns the pre-tax total of a single invoice line.
func (it InvoiceItem) LineTotal() float64 {
	return Round2(float64(it.Quantity) * it.UnitPrice)
}
