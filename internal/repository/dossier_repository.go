package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dossier-service/internal/domain"
)

// DossierFilter captures search parameters.
type DossierFilter struct {
	ClientID      *string
	TeamMemberID  *string
	Statuses      []domain.DossierStatus
	Priorities    []domain.DossierPriority
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	UpdatedBefore *time.Time
	Limit         int
	Offset        int
}

// DossierRepository encapsulates dossier persistence. The number column
// carries a store-enforced uniqueness constraint; Create surfaces the
// violation so the sequence allocator can retry.
type DossierRepository interface {
	Create(ctx context.Context, dossier *domain.Dossier) error
	Update(ctx context.Context, dossier *domain.Dossier) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Dossier, error)
	GetByNumber(ctx context.Context, number string) (*domain.Dossier, error)
	ListWithFilter(ctx context.Context, filter DossierFilter) ([]domain.Dossier, error)
	LastSequenceForPrefix(ctx context.Context, prefix string) (int, error)
}

// IsUniqueViolation reports whether err is a unique-constraint rejection.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type dossierRepository struct {
	pool *pgxpool.Pool
}

// NewDossierRepository instantiates repository.
func NewDossierRepository(pool *pgxpool.Pool) DossierRepository {
	return &dossierRepository{pool: pool}
}

func (r *dossierRepository) Create(ctx context.Context, dossier *domain.Dossier) error {
	collaborators, err := json.Marshal(dossier.ActiveCollaborators)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO dossiers (number, title, description, status, priority,
            client_user_id, contact_first_name, contact_last_name, contact_email, contact_phone,
            created_by, team_members, team_leader, active_collaborators, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	contact := dossier.Contact
	if contact == nil {
		contact = &domain.ContactInfo{}
	}
	return r.pool.QueryRow(ctx, query,
		dossier.Number,
		dossier.Title,
		dossier.Description,
		dossier.Status,
		dossier.Priority,
		dossier.ClientID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		dossier.CreatedBy,
		dossier.TeamMembers,
		dossier.TeamLeader,
		collaborators,
		dossier.Notes,
	).Scan(&dossier.ID, &dossier.CreatedAt, &dossier.UpdatedAt)
}

func (r *dossierRepository) Update(ctx context.Context, dossier *domain.Dossier) error {
	collaborators, err := json.Marshal(dossier.ActiveCollaborators)
	if err != nil {
		return err
	}
	const query = `
        UPDATE dossiers SET title=$1, description=$2, status=$3, priority=$4,
            contact_first_name=$5, contact_last_name=$6, contact_email=$7, contact_phone=$8,
            team_members=$9, team_leader=$10, active_collaborators=$11, notes=$12, updated_at=NOW()
        WHERE id=$13`
	contact := dossier.Contact
	if contact == nil {
		contact = &domain.ContactInfo{}
	}
	cmd, err := r.pool.Exec(ctx, query,
		dossier.Title,
		dossier.Description,
		dossier.Status,
		dossier.Priority,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		dossier.TeamMembers,
		dossier.TeamLeader,
		collaborators,
		dossier.Notes,
		dossier.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *dossierRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM dossiers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const dossierColumns = `id, number, title, description, status, priority,
        client_user_id, contact_first_name, contact_last_name, contact_email, contact_phone,
        created_by, team_members, team_leader, active_collaborators, notes, created_at, updated_at`

func (r *dossierRepository) GetByID(ctx context.Context, id string) (*domain.Dossier, error) {
	query := `SELECT ` + dossierColumns + ` FROM dossiers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *dossierRepository) GetByNumber(ctx context.Context, number string) (*domain.Dossier, error) {
	query := `SELECT ` + dossierColumns + ` FROM dossiers WHERE number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *dossierRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Dossier, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanDossier(row)
}

// LastSequenceForPrefix returns the highest 4-digit sequence among numbers
// sharing the given day prefix, or 0 when none exist. Non-numeric suffixes
// (fallback numbers) are ignored.
func (r *dossierRepository) LastSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `
        SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM LENGTH($1)+1) AS INTEGER)), 0)
        FROM dossiers
        WHERE number LIKE $1 || '%' AND SUBSTRING(number FROM LENGTH($1)+1) ~ '^[0-9]+$'`
	var last int
	if err := r.pool.QueryRow(ctx, query, prefix).Scan(&last); err != nil {
		return 0, err
	}
	return last, nil
}

func (r *dossierRepository) ListWithFilter(ctx context.Context, filter DossierFilter) ([]domain.Dossier, error) {
	base := `SELECT ` + dossierColumns + ` FROM dossiers`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_user_id=$%d", len(args)))
	}
	if filter.TeamMemberID != nil {
		args = append(args, *filter.TeamMemberID)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(team_members)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.UpdatedBefore != nil {
		args = append(args, *filter.UpdatedBefore)
		clauses = append(clauses, fmt.Sprintf("updated_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(number) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Dossier
	for rows.Next() {
		dossier, err := scanDossier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *dossier)
	}
	return result, rows.Err()
}

func scanDossier(row pgx.Row) (*domain.Dossier, error) {
	var dossier domain.Dossier
	var contact domain.ContactInfo
	var collaborators []byte
	if err := row.Scan(
		&dossier.ID,
		&dossier.Number,
		&dossier.Title,
		&dossier.Description,
		&dossier.Status,
		&dossier.Priority,
		&dossier.ClientID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.Phone,
		&dossier.CreatedBy,
		&dossier.TeamMembers,
		&dossier.TeamLeader,
		&collaborators,
		&dossier.Notes,
		&dossier.CreatedAt,
		&dossier.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if dossier.ClientID == nil {
		dossier.Contact = &contact
	}
	if len(collaborators) > 0 {
		if err := json.Unmarshal(collaborators, &dossier.ActiveCollaborators); err != nil {
			return nil, err
		}
	}
	return &dossier, nil
}
