package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore mirrors collaborator heartbeats into Redis with a TTL so
// the live view forgets stale entries. The dossier row remains the record
// of who joined; this view is advisory only.
type PresenceStore interface {
	Touch(ctx context.Context, dossierID, staffID string) error
	ActiveStaff(ctx context.Context, dossierID string) ([]string, error)
	Clear(ctx context.Context, dossierID string) error
}

type presenceStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceStore instantiates the Redis-backed presence view.
func NewPresenceStore(client *redis.Client, ttl time.Duration) PresenceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &presenceStore{client: client, ttl: ttl}
}

func presenceKey(dossierID, staffID string) string {
	return fmt.Sprintf("presence:%s:%s", dossierID, staffID)
}

func (s *presenceStore) Touch(ctx context.Context, dossierID, staffID string) error {
	return s.client.Set(ctx, presenceKey(dossierID, staffID), time.Now().Unix(), s.ttl).Err()
}

func (s *presenceStore) ActiveStaff(ctx context.Context, dossierID string) ([]string, error) {
	pattern := fmt.Sprintf("presence:%s:*", dossierID)
	var staff []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	prefix := len(fmt.Sprintf("presence:%s:", dossierID))
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > prefix {
			staff = append(staff, key[prefix:])
		}
	}
	return staff, iter.Err()
}

func (s *presenceStore) Clear(ctx context.Context, dossierID string) error {
	pattern := fmt.Sprintf("presence:%s:*", dossierID)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
