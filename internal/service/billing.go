package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ddreams/internal/model"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceNotEditable   = errors.New("only draft invoices can be edited")
	ErrInvoiceTransition    = errors.New("invoice status transition not allowed")
	ErrUnknownInvoiceStatus = errors.New("unknown invoice status")
	ErrInvoiceItemNotFound  = errors.New("invoice item not found")
	ErrInvoiceAlreadyPaid   = errors.New("invoice already paid")
	ErrInvalidPaymentAmount = errors.New("payment amount does not match invoice total")
)

type BillingService struct {
	db *sql.DB
}

func NewBillingService(db *sql.DB) *BillingService {
	return &BillingService{db: db}
}

type NewInvoiceItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
}

// invoiceNumber formats the per-month invoice number, INV-YYYYMM-NNNN.
func invoiceNumber(t time.Time, seq int) string {
	return fmt.Sprintf("INV-%d%02d-%04d", t.Year(), int(t.Month()), seq)
}

// Create opens a draft invoice for a company. The invoice number is
// allocated from a per-month count; the unique index on number catches
// a concurrent clash and the insert is retried with a fresh count.
func (s *BillingService) Create(ctx context.Context, userID, orderID string, paymentTerms int, currency string, discount float64, items []NewInvoiceItem) (*model.Invoice, error) {
	if paymentTerms <= 0 {
		paymentTerms = 30
	}
	if currency == "" {
		currency = "EUR"
	}

	var inv *model.Invoice
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		inv, err = s.create(ctx, userID, orderID, paymentTerms, currency, discount, items)
		if err == nil {
			return inv, nil
		}
		if !strings.Contains(err.Error(), "duplicate key") {
			return nil, err
		}
	}
	return nil, err
}

func (s *BillingService) create(ctx context.Context, userID, orderID string, paymentTerms int, currency string, discount float64, items []NewInvoiceItem) (*model.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	prefix := fmt.Sprintf("INV-%d%02d-", now.Year(), int(now.Month()))
	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE number LIKE $1 || '%'`, prefix,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	inv := model.Invoice{
		Number:       invoiceNumber(now, seq+1),
		UserID:       userID,
		OrderID:      orderID,
		Status:       model.InvoiceDraft,
		Discount:     model.Round2(discount),
		Currency:     currency,
		PaymentTerms: paymentTerms,
		IssuedAt:     now,
		DueAt:        now.AddDate(0, 0, paymentTerms),
	}
	for _, it := range items {
		inv.Items = append(inv.Items, model.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			Total:       model.Round2(float64(it.Quantity) * it.UnitPrice),
		})
	}
	totals := model.ComputeInvoiceTotals(inv.Items, inv.Discount)
	inv.Subtotal, inv.TaxAmount, inv.Total = totals.Subtotal, totals.TaxAmount, totals.Total

	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoices (number, user_id, order_id, status, subtotal, tax_amount, discount, total, currency, payment_terms, issued_at, due_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, inv.Number, inv.UserID, inv.OrderID, inv.Status, inv.Subtotal, inv.TaxAmount, inv.Discount, inv.Total,
		inv.Currency, inv.PaymentTerms, inv.IssuedAt, inv.DueAt).Scan(&inv.ID)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	for i := range inv.Items {
		it := &inv.Items[i]
		it.InvoiceID = inv.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, tax_rate, total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, it.InvoiceID, it.Description, it.Quantity, it.UnitPrice, it.TaxRate, it.Total).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &inv, nil
}

// AddItem appends a line to a draft invoice and recomputes all totals.
func (s *BillingService) AddItem(ctx context.Context, invoiceID string, item NewInvoiceItem) (*model.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.requireDraft(ctx, tx, invoiceID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, tax_rate, total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, invoiceID, item.Description, item.Quantity, item.UnitPrice, item.TaxRate,
		model.Round2(float64(item.Quantity)*item.UnitPrice))
	if err != nil {
		return nil, fmt.Errorf("insert invoice item: %w", err)
	}

	if err := s.recomputeTotals(ctx, tx, invoiceID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, invoiceID)
}

// RemoveItem deletes a line from a draft invoice and recomputes totals,
// returning them to what they were before the line was added.
func (s *BillingService) RemoveItem(ctx context.Context, invoiceID, itemID string) (*model.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.requireDraft(ctx, tx, invoiceID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM invoice_items WHERE id = $1 AND invoice_id = $2`, itemID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("delete invoice item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrInvoiceItemNotFound
	}

	if err := s.recomputeTotals(ctx, tx, invoiceID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, invoiceID)
}

// UpdateStatus applies one guarded invoice transition. MarkPaid must be
// used for the paid transition so a payment record is written.
func (s *BillingService) UpdateStatus(ctx context.Context, invoiceID string, to model.InvoiceStatus) error {
	if !to.Valid() {
		return ErrUnknownInvoiceStatus
	}
	if to == model.InvoicePaid {
		return fmt.Errorf("%w: use MarkPaid", ErrInvoiceTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var from model.InvoiceStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("get invoice: %w", err)
	}

	if !model.CanTransitionInvoice(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvoiceTransition, from, to)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE invoices SET status = $1 WHERE id = $2`, to, invoiceID); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return tx.Commit()
}

type PaymentInput struct {
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

// MarkPaid transitions the invoice to paid, stamps the paid date and
// writes exactly one payment record, all in one transaction.
func (s *BillingService) MarkPaid(ctx context.Context, invoiceID string, p PaymentInput) (*model.PaymentRecord, error) {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var from model.InvoiceStatus
	var total float64
	err = tx.QueryRowContext(ctx,
		`SELECT status, total FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&from, &total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	if from == model.InvoicePaid {
		return nil, ErrInvoiceAlreadyPaid
	}
	if !model.CanTransitionInvoice(from, model.InvoicePaid) {
		return nil, fmt.Errorf("%w: %s -> paid", ErrInvoiceTransition, from)
	}
	if p.Amount != 0 && model.Round2(p.Amount) != total {
		return nil, ErrInvalidPaymentAmount
	}

	record := model.PaymentRecord{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Amount:    total,
		Method:    p.Method,
		Reference: p.Reference,
		PaidAt:    p.PaidAt,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, invoice_id, amount, method, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.InvoiceID, record.Amount, record.Method, record.Reference, record.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE invoices SET status = 'paid', paid_at = $1 WHERE id = $2`, p.PaidAt, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &record, nil
}

func (s *BillingService) GetByID(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	var inv model.Invoice
	var orderID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.number, i.user_id, u.company_name, i.order_id, i.status, i.subtotal, i.tax_amount,
		       i.discount, i.total, i.currency, i.payment_terms, i.issued_at, i.due_at, i.paid_at
		FROM invoices i JOIN users u ON u.id = i.user_id
		WHERE i.id = $1
	`, invoiceID).Scan(&inv.ID, &inv.Number, &inv.UserID, &inv.CompanyName, &orderID, &inv.Status, &inv.Subtotal,
		&inv.TaxAmount, &inv.Discount, &inv.Total, &inv.Currency, &inv.PaymentTerms, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.OrderID = orderID.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, tax_rate, total
		FROM invoice_items WHERE invoice_id = $1
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.TaxRate, &it.Total); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return &inv, nil
}

func (s *BillingService) ListByUser(ctx context.Context, userID string) ([]model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.number, i.user_id, u.company_name, i.order_id, i.status, i.subtotal, i.tax_amount,
		       i.discount, i.total, i.currency, i.payment_terms, i.issued_at, i.due_at, i.paid_at
		FROM invoices i JOIN users u ON u.id = i.user_id
		WHERE i.user_id = $1
		ORDER BY i.issued_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		var orderID sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.UserID, &inv.CompanyName, &orderID, &inv.Status, &inv.Subtotal,
			&inv.TaxAmount, &inv.Discount, &inv.Total, &inv.Currency, &inv.PaymentTerms, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.OrderID = orderID.String
		invoices = append(invoices, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return invoices, nil
}

func (s *BillingService) ListPayments(ctx context.Context, invoiceID string) ([]model.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, amount, method, COALESCE(reference, ''), paid_at
		FROM payments WHERE invoice_id = $1 ORDER BY paid_at ASC
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []model.PaymentRecord
	for rows.Next() {
		var p model.PaymentRecord
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// BillingStats aggregates a company's invoices.
type BillingStats struct {
	TotalInvoiced      float64 `json:"total_invoiced"`
	TotalPaid          float64 `json:"total_paid"`
	OverdueCount       int     `json:"overdue_count"`
	OverdueAmount      float64 `json:"overdue_amount"`
	AveragePaymentDays float64 `json:"average_payment_days"`
}

func (s *BillingService) Stats(ctx context.Context, userID string) (*BillingStats, error) {
	var stats BillingStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0),
			COUNT(*) FILTER (WHERE status = 'overdue'),
			COALESCE(SUM(total) FILTER (WHERE status = 'overdue'), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM paid_at - issued_at) / 86400)
				FILTER (WHERE status = 'paid' AND paid_at IS NOT NULL), 0)
		FROM invoices
		WHERE user_id = $1
	`, userID).Scan(&stats.TotalInvoiced, &stats.TotalPaid, &stats.OverdueCount, &stats.OverdueAmount, &stats.AveragePaymentDays)
	if err != nil {
		return nil, fmt.Errorf("billing stats: %w", err)
	}
	stats.TotalInvoiced = model.Round2(stats.TotalInvoiced)
	stats.TotalPaid = model.Round2(stats.TotalPaid)
	stats.OverdueAmount = model.Round2(stats.OverdueAmount)
	stats.AveragePaymentDays = model.Round2(stats.AveragePaymentDays)
	return &stats, nil
}

// OverdueInvoice identifies an invoice flipped to overdue by MarkOverdue.
type OverdueInvoice struct {
	ID     string
	Number string
	UserID string
}

// MarkOverdue flips sent invoices past their due date to overdue and
// returns the affected invoices. Used by the billing worker.
func (s *BillingService) MarkOverdue(ctx context.Context, limit int) ([]OverdueInvoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE invoices SET status = 'overdue'
		WHERE id IN (
			SELECT id FROM invoices
			WHERE status = 'sent' AND due_at < NOW()
			ORDER BY due_at ASC
			LIMIT $1
		)
		RETURNING id, number, user_id
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("mark overdue: %w", err)
	}
	defer rows.Close()

	var affected []OverdueInvoice
	for rows.Next() {
		var inv OverdueInvoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.UserID); err != nil {
			return nil, fmt.Errorf("scan overdue invoice: %w", err)
		}
		affected = append(affected, inv)
	}
	return affected, rows.Err()
}

func (s *BillingService) requireDraft(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	var status model.InvoiceStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("get invoice: %w", err)
	}
	if status != model.InvoiceDraft {
		return ErrInvoiceNotEditable
	}
	return nil
}

// recomputeTotals rebuilds the invoice money fields from its current
// items. Always a full recompute, never an incremental adjustment.
func (s *BillingService) recomputeTotals(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT quantity, unit_price, tax_rate FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("query invoice items: %w", err)
	}
	defer rows.Close()

	var items []model.InvoiceItem
	for rows.Next() {
		var it model.InvoiceItem
		if err := rows.Scan(&it.Quantity, &it.UnitPrice, &it.TaxRate); err != nil {
			return fmt.Errorf("scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows iteration failed: %w", err)
	}

	var discount float64
	if err := tx.QueryRowContext(ctx,
		`SELECT discount FROM invoices WHERE id = $1`, invoiceID).Scan(&discount); err != nil {
		return fmt.Errorf("get discount: %w", err)
	}

	totals := model.ComputeInvoiceTotals(items, discount)
	_, err = tx.ExecContext(ctx,
		`UPDATE invoices SET subtotal = $1, tax_amount = $2, total = $3 WHERE id = $4`,
		totals.Subtotal, totals.TaxAmount, totals.Total, invoiceID)
	if err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	return nil
}
