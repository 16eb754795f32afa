package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ddreams/internal/service"
)

// BillingWorker periodically flips sent invoices past their due date to
// overdue and flags orders that missed their delivery estimate, emitting
// a notification for each.
type BillingWorker struct {
	billingSvc *service.BillingService
	orderSvc   *service.OrderService
	notifySvc  *service.NotificationService
	interval   time.Duration
	batchSize  int
}

func NewBillingWorker(billingSvc *service.BillingService, orderSvc *service.OrderService, notifySvc *service.NotificationService) *BillingWorker {
	return &BillingWorker{
		billingSvc: billingSvc,
		orderSvc:   orderSvc,
		notifySvc:  notifySvc,
		interval:   time.Minute,
		batchSize:  50,
	}
}

func (w *BillingWorker) Start(ctx context.Context) {
	slog.Info("starting billing worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("billing worker stopped")
			return
		case <-ticker.C:
			if err := w.processOverdue(ctx); err != nil {
				slog.Error("overdue scan failed", "error", err)
			}
			if err := w.processDelayed(ctx); err != nil {
				slog.Error("delay scan failed", "error", err)
			}
		}
	}
}

func (w *BillingWorker) processOverdue(ctx context.Context) error {
	overdue, err := w.billingSvc.MarkOverdue(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("mark overdue: %w", err)
	}

	for _, inv := range overdue {
		msg := fmt.Sprintf("Invoice %s is overdue", inv.Number)
		if err := w.notifySvc.Create(ctx, inv.UserID, "", "invoice_overdue", msg); err != nil {
			slog.Error("overdue notification failed", "invoice", inv.Number, "error", err)
			continue
		}
		slog.Info("invoice marked overdue", "invoice", inv.Number)
	}
	return nil
}

func (w *BillingWorker) processDelayed(ctx context.Context) error {
	delayed, err := w.orderSvc.DelayedOrders(ctx, "", w.batchSize)
	if err != nil {
		return fmt.Errorf("get delayed orders: %w", err)
	}

	for _, o := range delayed {
		msg := "Your order is running late, we are on it"
		if err := w.notifySvc.CreateOncePerOrder(ctx, o.UserID, o.ID, "delay", msg); err != nil {
			slog.Error("delay notification failed", "order", o.ID, "error", err)
		}
	}
	return nil
}
