package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ddreams/internal/cache"
	"ddreams/internal/model"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationService struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewNotificationService(db *sql.DB, rdb *redis.Client) *NotificationService {
	return &NotificationService{db: db, rdb: rdb}
}

// Create inserts a notification outside any transaction. Empty orderID
// stores NULL (invoice notifications have no order).
func (s *NotificationService) Create(ctx context.Context, userID, orderID, typ, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, order_id, type, message, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, NOW())
	`, uuid.NewString(), userID, orderID, typ, message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyUnreadCount, userID))
	return nil
}

// CreateOncePerOrder inserts a notification unless one of the same type
// already exists for the order, so periodic scans don't spam the user.
func (s *NotificationService) CreateOncePerOrder(ctx context.Context, userID, orderID, typ, message string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, order_id, type, message, created_at)
		SELECT $1, $2, $3::uuid, $4, $5, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications WHERE order_id = $3::uuid AND type = $4
		)
	`, uuid.NewString(), userID, orderID, typ, message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyUnreadCount, userID))
	}
	return nil
}

func (s *NotificationService) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(order_id::text, ''), type, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return notifications, nil
}

// MarkRead flips one notification to read. Only the owner can do it.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotificationNotFound
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyUnreadCount, userID))
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	cache.Delete(ctx, s.rdb, fmt.Sprintf(cache.KeyUnreadCount, userID))
	return nil
}

// UnreadCount serves the badge counter from Redis, recounting from the
// database on a miss.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	key := fmt.Sprintf(cache.KeyUnreadCount, userID)
	if v := cache.GetString(ctx, s.rdb, key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	cache.Set(ctx, s.rdb, key, strconv.Itoa(count), cache.TTLUnreadCount)
	return count, nil
}
