package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ddreams/internal/cache"
	"ddreams/internal/events"
	"ddreams/internal/model"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrEmptyOrder        = errors.New("order has no items")
)

// TaxSource supplies the current order tax rate. Reading it per order
// means settings changes apply without a restart.
type TaxSource interface {
	TaxRate(ctx context.Context) float64
}

type OrderService struct {
	db           *sql.DB
	catalog      *CatalogService
	producer     *events.Producer
	rdb          *redis.Client
	producerName string
	taxes        TaxSource
}

func NewOrderService(db *sql.DB, catalog *CatalogService, producer *events.Producer, rdb *redis.Client, producerName string, taxes TaxSource) *OrderService {
	return &OrderService{
		db:           db,
		catalog:      catalog,
		producer:     producer,
		rdb:          rdb,
		producerName: producerName,
		taxes:        taxes,
	}
}

func (s *OrderService) currentTaxRate(ctx context.Context) float64 {
	if s.taxes == nil {
		return 0
	}
	return s.taxes.TaxRate(ctx)
}

type NewOrderItem struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	Customization json.RawMessage `json:"customization,omitempty"`
}

// Create places a new order (or quote, when asQuote is set) for the user.
// Line prices come from the catalog; totals are computed server-side.
func (s *OrderService) Create(ctx context.Context, user *model.User, items []NewOrderItem, discount, shipping float64, asQuote bool) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity for product %s", it.ProductID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	priced, err := s.catalog.PriceItems(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	status := model.StatusPendingPayment
	if asQuote {
		status = model.StatusQuoteRequested
	}

	order := model.Order{
		UserID:        user.ID,
		CustomerName:  user.CompanyName,
		CustomerEmail: user.Email,
		Status:        status,
		Discount:      model.Round2(discount),
		ShippingCost:  model.Round2(shipping),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var subtotal float64
	for _, it := range items {
		p := priced[it.ProductID]
		line := model.Round2(float64(it.Quantity) * p.UnitPrice)
		subtotal += line
		order.Items = append(order.Items, model.OrderItem{
			ProductID:     p.ID,
			Name:          p.Name,
			Quantity:      it.Quantity,
			UnitPrice:     p.UnitPrice,
			Total:         line,
			Customization: it.Customization,
		})
	}
	order.Subtotal = model.Round2(subtotal)
	order.TaxAmount = model.Round2(order.Subtotal * s.currentTaxRate(ctx))
	order.Total = model.Round2(order.Subtotal + order.TaxAmount + order.ShippingCost - order.Discount)
	order.EstimatedDelivery = model.EstimateDelivery(now, status)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, subtotal, discount, tax_amount, shipping_cost, total, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`, order.UserID, order.Status, order.Subtotal, order.Discount, order.TaxAmount, order.ShippingCost, order.Total, order.EstimatedDelivery, now).Scan(&order.ID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, total, customization)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, it.OrderID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Total, nullableJSON(it.Customization)).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	note := "order placed"
	if asQuote {
		note = "quote requested"
	}
	if err := appendHistory(ctx, tx, order.ID, status, note, user.Email, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	order.History = []model.StatusChange{{Status: status, Note: note, Actor: user.Email, ChangedAt: now}}

	cache.Set(ctx, s.rdb, fmt.Sprintf(cache.KeyOrderStatus, order.ID), statusCacheValue(order.UserID, status), cache.TTLOrderStatus)
	s.publish(events.EventOrderCreated, order.ID, events.OrderCreatedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  status,
		Total:   order.Total,
	})

	return &order, nil
}

// ApproveQuote moves a quote into the payment stage.
func (s *OrderService) ApproveQuote(ctx context.Context, orderID, actor string) error {
	return s.UpdateStatus(ctx, orderID, model.StatusPendingPayment, "quote approved", actor)
}

// UpdateStatus applies one guarded lifecycle transition, appending a
// history entry and notifying the order's owner. Illegal transitions are
// rejected with ErrInvalidTransition.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to model.OrderStatus, note, actor string) error {
	if !to.Valid() {
		return ErrUnknownStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var from model.OrderStatus
	var userID string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT status, user_id, created_at FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&from, &userID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := time.Now()
	estimated := model.EstimateDelivery(createdAt, to)
	var actual *time.Time
	if to == model.StatusCompleted {
		actual = &now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    estimated_delivery = COALESCE($2, estimated_delivery),
		    actual_delivery = COALESCE($3, actual_delivery),
		    updated_at = $4
		WHERE id = $5
	`, to, estimated, actual, now, orderID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := appendHistory(ctx, tx, orderID, to, note, actor, now); err != nil {
		return err
	}

	msg := fmt.Sprintf("Your order is now %s", to)
	if err := insertNotification(ctx, tx, userID, orderID, "status_change", msg, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	cache.Set(ctx, s.rdb, fmt.Sprintf(cache.KeyOrderStatus, orderID), statusCacheValue(userID, to), cache.TTLOrderStatus)
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyUnreadCount, userID))
	s.publish(events.EventOrderStatusChanged, orderID, events.OrderStatusChangedPayload{
		OrderID: orderID,
		UserID:  userID,
		From:    from,
		To:      to,
		Note:    note,
		Actor:   actor,
	})

	return nil
}

// BulkUpdateStatus applies the same transition to several orders and
// reports per-order success. One failure does not stop the rest.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, orderIDs []string, to model.OrderStatus, note, actor string) map[string]error {
	results := make(map[string]error, len(orderIDs))
	for _, id := range orderIDs {
		results[id] = s.UpdateStatus(ctx, id, to, note, actor)
	}
	return results
}

func (s *OrderService) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT o.id, o.user_id, u.company_name, u.email, o.status, o.subtotal, o.discount, o.tax_amount,
		       o.shipping_cost, o.total, o.estimated_delivery, o.actual_delivery, o.created_at, o.updated_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, orderID).Scan(&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.Subtotal, &o.Discount,
		&o.TaxAmount, &o.ShippingCost, &o.Total, &o.EstimatedDelivery, &o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if o.Items, err = s.loadItems(ctx, orderID); err != nil {
		return nil, err
	}
	if o.History, err = s.loadHistory(ctx, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

// statusCacheValue packs the owner alongside the status so the polling
// endpoint can check ownership without touching the database.
func statusCacheValue(userID string, status model.OrderStatus) string {
	return userID + "|" + string(status)
}

func parseStatusCache(v string) (string, model.OrderStatus, bool) {
	userID, status, ok := strings.Cut(v, "|")
	if !ok || userID == "" || !model.OrderStatus(status).Valid() {
		return "", "", false
	}
	return userID, model.OrderStatus(status), true
}

// CachedStatus answers status reads from Redis, falling back to the
// database and re-priming the cache on a miss. Returns the status and
// the id of the order's owner.
func (s *OrderService) CachedStatus(ctx context.Context, orderID string) (model.OrderStatus, string, error) {
	key := fmt.Sprintf(cache.KeyOrderStatus, orderID)
	if v := cache.GetString(ctx, s.rdb, key); v != "" {
		if userID, status, ok := parseStatusCache(v); ok {
			return status, userID, nil
		}
	}

	var status model.OrderStatus
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT status, user_id FROM orders WHERE id = $1`, orderID).Scan(&status, &userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrOrderNotFound
		}
		return "", "", fmt.Errorf("get status: %w", err)
	}
	cache.Set(ctx, s.rdb, key, statusCacheValue(userID, status), cache.TTLOrderStatus)
	return status, userID, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, u.company_name, u.email, o.status, o.subtotal, o.discount, o.tax_amount,
		       o.shipping_cost, o.total, o.estimated_delivery, o.actual_delivery, o.created_at, o.updated_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := map[string]int{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.Subtotal, &o.Discount,
			&o.TaxAmount, &o.ShippingCost, &o.Total, &o.EstimatedDelivery, &o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.name, oi.quantity, oi.unit_price, oi.total, oi.customization, oi.produced
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it model.OrderItem
		var custom []byte
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Total, &custom, &it.Produced); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Customization = custom
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

// MarkItemProduced flags one line item as printed. The order's item
// progress is derived from these flags.
func (s *OrderService) MarkItemProduced(ctx context.Context, orderID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_items SET produced = TRUE WHERE id = $1 AND order_id = $2`, itemID, orderID)
	if err != nil {
		return fmt.Errorf("mark item produced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DelayedOrders returns in-flight orders whose delivery estimate has
// passed. Empty userID means all users (admin and worker view).
func (s *OrderService) DelayedOrders(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	query := `
		SELECT o.id, o.user_id, u.company_name, u.email, o.status, o.subtotal, o.discount, o.tax_amount,
		       o.shipping_cost, o.total, o.estimated_delivery, o.actual_delivery, o.created_at, o.updated_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.estimated_delivery < NOW()
		  AND o.actual_delivery IS NULL
		  AND o.status NOT IN ('completed', 'cancelled', 'refunded')`
	args := []any{limit}
	if userID != "" {
		query += ` AND o.user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY o.estimated_delivery ASC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query delayed orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status, &o.Subtotal, &o.Discount,
			&o.TaxAmount, &o.ShippingCost, &o.Total, &o.EstimatedDelivery, &o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return orders, nil
}

func (s *OrderService) loadItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price, total, customization, produced
		FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		var custom []byte
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Total, &custom, &it.Produced); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Customization = custom
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *OrderService) loadHistory(ctx context.Context, orderID string) ([]model.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COALESCE(note, ''), actor, changed_at
		FROM order_status_history WHERE order_id = $1 ORDER BY changed_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusChange
	for rows.Next() {
		var h model.StatusChange
		if err := rows.Scan(&h.Status, &h.Note, &h.Actor, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (s *OrderService) publish(eventType, orderID string, payload any) {
	if s.producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producerName,
		CorrelationID: orderID,
		Payload:       events.MustMarshal(payload),
	}
	s.producer.Publish(events.PartitionKey(orderID), events.MustMarshal(ev))
}

func appendHistory(ctx context.Context, tx *sql.Tx, orderID string, status model.OrderStatus, note, actor string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, note, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, status, note, actor, at)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, userID, orderID, typ, message string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, order_id, type, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), userID, orderID, typ, message, at)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
