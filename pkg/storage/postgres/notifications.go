package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// NotificationStore implements api.NotificationStore on PostgreSQL.
type NotificationStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewNotificationStore wraps the shared database pool.
func NewNotificationStore(db *sql.DB, metrics *observability.Metrics) *NotificationStore {
	return &NotificationStore{db: db, metrics: metrics}
}

const notificationColumns = "id, title, content, related_id, related_module, user_id, is_read, create_time"

func scanNotification(row interface{ Scan(...interface{}) error }) (*api.Notification, error) {
	var n api.Notification
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Content,
		&n.RelatedID,
		&n.RelatedModule,
		&n.UserID,
		&n.IsRead,
		&n.CreateTime,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NotificationStore) Create(ctx context.Context, notification *api.Notification) error {
	start := time.Now()

	query := `
		INSERT INTO notification (title, content, related_id, related_module, user_id, is_read, create_time)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, create_time
	`

	err := s.db.QueryRowContext(ctx, query,
		notification.Title,
		notification.Content,
		notification.RelatedID,
		notification.RelatedModule,
		notification.UserID,
		notification.IsRead,
	).Scan(&notification.ID, &notification.CreateTime)

	observe(s.metrics, "notification", "create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, "DELETE FROM notification WHERE id = $1", id)
	observe(s.metrics, "notification", "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireRowAffected(result)
}

func (s *NotificationStore) GetByID(ctx context.Context, id int64) (*api.Notification, error) {
	start := time.Now()

	query := "SELECT " + notificationColumns + " FROM notification WHERE id = $1"
	notification, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	observe(s.metrics, "notification", "get", start, err)

	if err == sql.ErrNoRows {
		return nil, api.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return notification, nil
}

func (s *NotificationStore) Search(ctx context.Context, filter api.NotificationFilter, page api.PageRequest) ([]*api.Notification, int64, error) {
	start := time.Now()

	var predicates []string
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		predicates = append(predicates, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		predicates = append(predicates, fmt.Sprintf("is_read = $%d", len(args)))
	}
	if filter.RelatedModule != "" {
		args = append(args, filter.RelatedModule)
		predicates = append(predicates, fmt.Sprintf("related_module = $%d", len(args)))
	}

	where := whereClause(predicates)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notification"+where, args...).Scan(&total)
	if err != nil {
		observe(s.metrics, "notification", "search", start, err)
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM notification%s ORDER BY create_time DESC LIMIT $%d OFFSET $%d",
		notificationColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.metrics, "notification", "search", start, err)
		return nil, 0, fmt.Errorf("failed to search notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*api.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			observe(s.metrics, "notification", "search", start, err)
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	err = rows.Err()
	observe(s.metrics, "notification", "search", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead scopes the update to the owning user so one user cannot mark
// another's messages.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE notification SET is_read = 1 WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	observe(s.metrics, "notification", "mark_read", start, err)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return requireRowAffected(result)
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()

	result, err := s.db.ExecContext(ctx,
		"UPDATE notification SET is_read = 1 WHERE user_id = $1 AND is_read = 0",
		userID,
	)
	observe(s.metrics, "notification", "mark_all_read", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notification WHERE user_id = $1 AND is_read = 0",
		userID,
	).Scan(&count)
	observe(s.metrics, "notification", "count_unread", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) HasUnreadForRelated(ctx context.Context, userID int64, relatedModule string, relatedID int64) (bool, error) {
	start := time.Now()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM notification WHERE user_id = $1 AND related_module = $2 AND related_id = $3 AND is_read = 0)",
		userID, relatedModule, relatedID,
	).Scan(&exists)
	observe(s.metrics, "notification", "has_unread_related", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check related notifications: %w", err)
	}
	return exists, nil
}
