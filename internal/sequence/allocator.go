package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

const maxAttempts = 100

// Allocator assigns human-readable case numbers of the form
// PREFIX-YYYYMMDD-NNNN, unique across all dossiers and non-decreasing
// within a calendar day.
//
// The read-then-increment step is not atomic: two allocators can read the
// same last value before either commits. Correctness rests on the store's
// uniqueness constraint on the number column and on the retry loop here.
type Allocator struct {
	dossiers repository.DossierRepository
	prefix   string
	clock    func() time.Time
}

// NewAllocator constructs an allocator. The prefix defaults to DOS.
func NewAllocator(dossiers repository.DossierRepository, prefix string) *Allocator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "DOS"
	}
	return &Allocator{
		dossiers: dossiers,
		prefix:   prefix,
		clock:    time.Now,
	}
}

// Allocate assigns a number to the dossier and persists it. On a unique
// violation the sequence is advanced and retried, capped at 100 attempts;
// exhaustion falls back to a guaranteed-unique time-based suffix so the
// dossier never stays unnumbered.
func (a *Allocator) Allocate(ctx context.Context, dossier *domain.Dossier, forDate time.Time) error {
	if forDate.IsZero() {
		forDate = a.clock()
	}
	prefix := fmt.Sprintf("%s-%s-", a.prefix, forDate.Format("20060102"))

	last, err := a.dossiers.LastSequenceForPrefix(ctx, prefix)
	if err != nil {
		return errorutil.NewInternalError(err)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		dossier.Number = fmt.Sprintf("%s%04d", prefix, last+1+attempt)
		err := a.dossiers.Create(ctx, dossier)
		if err == nil {
			return nil
		}
		if !repository.IsUniqueViolation(err) {
			return errorutil.NewInternalError(err)
		}
	}

	// Sequence exhausted under contention; fall back to a non-sequential
	// unique number rather than leaving the dossier unnumbered.
	dossier.Number = prefix + fallbackSuffix()
	if err := a.dossiers.Create(ctx, dossier); err != nil {
		if repository.IsUniqueViolation(err) {
			return errorutil.NewConflict("case number allocation exhausted", map[string]any{
				"prefix": prefix,
			})
		}
		return errorutil.NewInternalError(err)
	}
	return nil
}

func fallbackSuffix() string {
	return "F" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
