package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/tonal/internal/domain"
)

const defaultCollection = "transform_cache"

type Store struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewStore creates a Firestore-backed result cache.
// Uses the project passed (TONAL_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{
		client:     client,
		collection: defaultCollection,
		now:        time.Now,
	}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) cacheCol() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *Store) cacheDoc(key string) *firestore.DocumentRef {
	return s.cacheCol().Doc(key)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type resultDoc struct {
	Value     string     `firestore:"value"`
	CreatedAt time.Time  `firestore:"created_at"`
	ExpiresAt *time.Time `firestore:"expires_at"`
}

// ─────────────────────────────────────────
// ResultCache implementation
// ─────────────────────────────────────────

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.cacheDoc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("firestore Get: %w", err)
	}

	var doc resultDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", false, fmt.Errorf("firestore Get decode: %w", err)
	}

	if doc.ExpiresAt != nil && s.now().After(*doc.ExpiresAt) {
		// Expired documents are removed by PurgeExpired; a miss is enough here.
		return "", false, nil
	}

	return doc.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now()
	doc := resultDoc{
		Value:     value,
		CreatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		doc.ExpiresAt = &expiresAt
	}

	if _, err := s.cacheDoc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore Set: %w", err)
	}
	return nil
}

// PurgeExpired deletes every cached result whose expiry has passed and
// returns how many documents were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	iter := s.cacheCol().Where("expires_at", "<", s.now()).Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return removed, fmt.Errorf("firestore PurgeExpired: %w", err)
		}

		if _, err := snap.Ref.Delete(ctx); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return removed, fmt.Errorf("firestore PurgeExpired delete %s: %w", snap.Ref.ID, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ domain.ResultCache = (*Store)(nil)
