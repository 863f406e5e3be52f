package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/internal/sequence"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type memDossierRepo struct {
	byID    map[string]*domain.Dossier
	numbers map[string]bool
	updates int
	nextID  int
}

func newMemDossierRepo() *memDossierRepo {
	return &memDossierRepo{byID: make(map[string]*domain.Dossier), numbers: make(map[string]bool)}
}

func (r *memDossierRepo) put(d *domain.Dossier) *domain.Dossier {
	clone := *d
	r.byID[d.ID] = &clone
	r.numbers[d.Number] = true
	return &clone
}

func (r *memDossierRepo) Create(ctx context.Context, dossier *domain.Dossier) error {
	if r.numbers[dossier.Number] {
		return &pgconn.PgError{Code: "23505"}
	}
	r.nextID++
	dossier.ID = "dossier-" + strconv.Itoa(r.nextID)
	dossier.CreatedAt = fixedNow
	dossier.UpdatedAt = fixedNow
	r.put(dossier)
	return nil
}

func (r *memDossierRepo) Update(ctx context.Context, dossier *domain.Dossier) error {
	if _, ok := r.byID[dossier.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.updates++
	dossier.UpdatedAt = fixedNow
	r.put(dossier)
	return nil
}

func (r *memDossierRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *memDossierRepo) GetByID(ctx context.Context, id string) (*domain.Dossier, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *d
	return &clone, nil
}

func (r *memDossierRepo) GetByNumber(ctx context.Context, number string) (*domain.Dossier, error) {
	for _, d := range r.byID {
		if d.Number == number {
			clone := *d
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memDossierRepo) ListWithFilter(ctx context.Context, filter repository.DossierFilter) ([]domain.Dossier, error) {
	var result []domain.Dossier
	for _, d := range r.byID {
		if filter.ClientID != nil && (d.ClientID == nil || *d.ClientID != *filter.ClientID) {
			continue
		}
		if filter.TeamMemberID != nil && !d.HasTeamMember(*filter.TeamMemberID) {
			continue
		}
		result = append(result, *d)
	}
	return result, nil
}

func (r *memDossierRepo) LastSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	return 0, nil
}

type memUserRepo struct {
	users map[string]*domain.User
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memStaffRepo struct {
	staff map[string]*domain.StaffMember
}

func (r *memStaffRepo) Create(ctx context.Context, staff *domain.StaffMember) error { return nil }

func (r *memStaffRepo) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if staff, ok := r.staff[id]; ok {
		return staff, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	for _, staff := range r.staff {
		if staff.Email == email {
			return staff, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) ListByRoles(ctx context.Context, roles []domain.StaffRole) ([]domain.StaffMember, error) {
	var result []domain.StaffMember
	for _, staff := range r.staff {
		for _, role := range roles {
			if staff.Role == role {
				result = append(result, *staff)
			}
		}
	}
	return result, nil
}

func (r *memStaffRepo) ExistAll(ctx context.Context, ids []string) (bool, error) {
	for _, id := range ids {
		if _, ok := r.staff[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

type memAuditRepo struct {
	entries []domain.AuditEntry
	fail    bool
}

func (r *memAuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if r.fail {
		return errors.New("audit store down")
	}
	entry.ID = "audit-" + strconv.Itoa(len(r.entries)+1)
	entry.CreatedAt = fixedNow
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListByTarget(ctx context.Context, targetUserID string, limit, offset int) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.TargetUserID != nil && *entry.TargetUserID == targetUserID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type memNotificationRepo struct {
	created []domain.Notification
	fail    bool
}

func (r *memNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	if r.fail {
		return errors.New("notification store down")
	}
	notification.ID = "notif-" + strconv.Itoa(len(r.created)+1)
	notification.CreatedAt = fixedNow
	r.created = append(r.created, *notification)
	return nil
}

func (r *memNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, n := range r.created {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return nil
}

func (r *memNotificationRepo) forRecipient(recipientID string) []domain.Notification {
	var result []domain.Notification
	for _, n := range r.created {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	return result
}

type memPreferenceRepo struct {
	disabled map[string]bool
}

func prefKey(recipientID string, notificationType domain.NotificationType) string {
	return recipientID + "|" + string(notificationType)
}

func (r *memPreferenceRepo) IsEnabled(ctx context.Context, recipientID string, notificationType domain.NotificationType) (bool, error) {
	if r.disabled[prefKey(recipientID, notificationType)] {
		return false, nil
	}
	return true, nil
}

func (r *memPreferenceRepo) Set(ctx context.Context, recipientID string, notificationType domain.NotificationType, enabled bool) error {
	if r.disabled == nil {
		r.disabled = make(map[string]bool)
	}
	r.disabled[prefKey(recipientID, notificationType)] = !enabled
	return nil
}

type memPresence struct {
	touched []string
	cleared []string
}

func (p *memPresence) Touch(ctx context.Context, dossierID, staffID string) error {
	p.touched = append(p.touched, dossierID+"/"+staffID)
	return nil
}

func (p *memPresence) ActiveStaff(ctx context.Context, dossierID string) ([]string, error) {
	return nil, nil
}

func (p *memPresence) Clear(ctx context.Context, dossierID string) error {
	p.cleared = append(p.cleared, dossierID)
	return nil
}

type memTemplateRepo struct {
	templates map[string]*domain.SmsTemplate
}

func (r *memTemplateRepo) GetActiveByCode(ctx context.Context, code string) (*domain.SmsTemplate, error) {
	if tpl, ok := r.templates[code]; ok {
		return tpl, nil
	}
	return nil, pgx.ErrNoRows
}

type memSmsHistoryRepo struct {
	records []domain.SmsHistory
}

func (r *memSmsHistoryRepo) Create(ctx context.Context, record *domain.SmsHistory) error {
	record.ID = "sms-" + strconv.Itoa(len(r.records)+1)
	record.CreatedAt = fixedNow
	r.records = append(r.records, *record)
	return nil
}

type fakeSmsGateway struct {
	sent []string
	err  error
}

func (g *fakeSmsGateway) Send(ctx context.Context, destination, body string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.sent = append(g.sent, destination+": "+body)
	return "provider-1", nil
}

// testEnv wires a dossier service against in-memory stores with the audit
// and notification handlers subscribed, the way main wires production.
type testEnv struct {
	dossiers      *memDossierRepo
	users         *memUserRepo
	staff         *memStaffRepo
	auditEntries  *memAuditRepo
	notifications *memNotificationRepo
	preferences   *memPreferenceRepo
	presence      *memPresence
	smsHistory    *memSmsHistoryRepo
	gateway       *fakeSmsGateway
	audit         *AuditService
	notifier      *NotificationService
	service       *DossierService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		dossiers:      newMemDossierRepo(),
		users:         &memUserRepo{users: make(map[string]*domain.User)},
		staff:         &memStaffRepo{staff: make(map[string]*domain.StaffMember)},
		auditEntries:  &memAuditRepo{},
		notifications: &memNotificationRepo{},
		preferences:   &memPreferenceRepo{},
		presence:      &memPresence{},
		smsHistory:    &memSmsHistoryRepo{},
		gateway:       &fakeSmsGateway{},
	}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	sms := NewSmsService(&memTemplateRepo{}, env.smsHistory, env.gateway, logger)
	env.audit = NewAuditService(env.auditEntries, logger)
	env.notifier = NewNotificationService(env.notifications, env.preferences, env.staff, sms, logger)
	env.audit.RegisterHandlers(dispatcher)
	env.notifier.RegisterHandlers(dispatcher)

	env.service = NewDossierService(DossierDependencies{
		DossierRepo: env.dossiers,
		UserRepo:    env.users,
		StaffRepo:   env.staff,
		Allocator:   sequence.NewAllocator(env.dossiers, "DOS"),
		Dispatcher:  dispatcher,
		Audit:       env.audit,
		Notifier:    env.notifier,
		Presence:    env.presence,
		Logger:      logger,
	})
	env.service.clock = func() time.Time { return fixedNow }
	return env
}

func (e *testEnv) addUser(id, phone string) *domain.User {
	user := &domain.User{ID: id, Email: id + "@exemple.fr", Phone: phone, Status: domain.UserStatusActive}
	e.users.users[id] = user
	return user
}

func (e *testEnv) addStaff(id string, role domain.StaffRole) *domain.StaffMember {
	staff := &domain.StaffMember{ID: id, Email: id + "@cabinet.example", Role: role, Active: true}
	e.staff.staff[id] = staff
	return staff
}

func (e *testEnv) seedDossier(d *domain.Dossier) *domain.Dossier {
	if d.ID == "" {
		e.dossiers.nextID++
		d.ID = "dossier-" + strconv.Itoa(e.dossiers.nextID)
	}
	if d.Status == "" {
		d.Status = domain.StatusEnCoursInstruction
	}
	if d.Priority == "" {
		d.Priority = domain.PriorityNormale
	}
	return e.dossiers.put(d)
}
