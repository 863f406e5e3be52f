package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dossier-service/internal/domain"
)

// AuditRepository appends immutable audit entries. There is no update or
// delete on purpose.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByTarget(ctx context.Context, targetUserID string, limit, offset int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (actor_id, actor_email, target_user_id, action, description, metadata, ip, user_agent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		nullableID(entry.ActorID),
		entry.ActorEmail,
		entry.TargetUserID,
		entry.Action,
		entry.Description,
		entry.Metadata,
		entry.IP,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// nullableID maps an empty id to SQL NULL so UUID columns accept rows
// written by anonymous actors.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func (r *auditRepository) ListByTarget(ctx context.Context, targetUserID string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, COALESCE(actor_id::text, ''), actor_email, target_user_id, action, description, metadata, ip, user_agent, created_at
        FROM audit_entries WHERE target_user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, targetUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.ActorEmail,
			&entry.TargetUserID,
			&entry.Action,
			&entry.Description,
			&entry.Metadata,
			&entry.IP,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
