package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dossier-service/internal/domain"
)

// SmsTemplateRepository resolves active text templates by code.
type SmsTemplateRepository interface {
	GetActiveByCode(ctx context.Context, code string) (*domain.SmsTemplate, error)
}

// SmsHistoryRepository appends immutable delivery records.
type SmsHistoryRepository interface {
	Create(ctx context.Context, record *domain.SmsHistory) error
}

type smsTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewSmsTemplateRepository instantiates repository.
func NewSmsTemplateRepository(pool *pgxpool.Pool) SmsTemplateRepository {
	return &smsTemplateRepository{pool: pool}
}

func (r *smsTemplateRepository) GetActiveByCode(ctx context.Context, code string) (*domain.SmsTemplate, error) {
	const query = `
        SELECT id, code, body, active, created_at, updated_at
        FROM sms_templates WHERE code=$1 AND active`
	var tpl domain.SmsTemplate
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&tpl.ID,
		&tpl.Code,
		&tpl.Body,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}

type smsHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewSmsHistoryRepository instantiates repository.
func NewSmsHistoryRepository(pool *pgxpool.Pool) SmsHistoryRepository {
	return &smsHistoryRepository{pool: pool}
}

func (r *smsHistoryRepository) Create(ctx context.Context, record *domain.SmsHistory) error {
	const query = `
        INSERT INTO sms_history (destination, body, template_code, status, provider_id, error_reason)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.Destination,
		record.Body,
		record.TemplateCode,
		record.Status,
		record.ProviderID,
		record.ErrorReason,
	).Scan(&record.ID, &record.CreatedAt)
}
