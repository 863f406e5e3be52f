package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dossier-service/internal/domain"
)

// NotificationRepository encapsulates in-app notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
}

// PreferenceRepository gates non-critical notification types per recipient.
// Absence of a row means the type is enabled.
type PreferenceRepository interface {
	IsEnabled(ctx context.Context, recipientID string, notificationType domain.NotificationType) (bool, error)
	Set(ctx context.Context, recipientID string, notificationType domain.NotificationType, enabled bool) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, type, title, message, link, metadata, read)
        VALUES ($1,$2,$3,$4,$5,$6,false)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		notification.RecipientID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Link,
		notification.Metadata,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT id, recipient_id, type, title, message, link, metadata, read, created_at
        FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Link,
			&n.Metadata,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	const query = `UPDATE notifications SET read=true WHERE id=$1 AND recipient_id=$2`
	cmd, err := r.pool.Exec(ctx, query, notificationID, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type preferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository instantiates repository.
func NewPreferenceRepository(pool *pgxpool.Pool) PreferenceRepository {
	return &preferenceRepository{pool: pool}
}

func (r *preferenceRepository) IsEnabled(ctx context.Context, recipientID string, notificationType domain.NotificationType) (bool, error) {
	const query = `
        SELECT enabled FROM notification_preferences
        WHERE recipient_id=$1 AND notification_type=$2`
	var enabled bool
	err := r.pool.QueryRow(ctx, query, recipientID, notificationType).Scan(&enabled)
	if err == pgx.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *preferenceRepository) Set(ctx context.Context, recipientID string, notificationType domain.NotificationType, enabled bool) error {
	const query = `
        INSERT INTO notification_preferences (recipient_id, notification_type, enabled)
        VALUES ($1,$2,$3)
        ON CONFLICT (recipient_id, notification_type) DO UPDATE SET enabled=EXCLUDED.enabled`
	_, err := r.pool.Exec(ctx, query, recipientID, notificationType, enabled)
	return err
}
