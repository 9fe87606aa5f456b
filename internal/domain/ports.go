package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Transformer rewrites text for a tone. It may be slow and may fail; it is
// not assumed to be deterministic or idempotent.
type Transformer interface {
	Transform(ctx context.Context, text string, tone Tone) (string, error)
}

// SessionStore owns every Session. Sessions are created on first reference
// and never removed.
type SessionStore interface {
	Resolve(id SessionID) *Session
	Reset(id SessionID) View
	Len() int
}

// ResultCache remembers transform results across sessions. A miss is
// reported as ok == false with a nil error.
type ResultCache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CacheKey derives the result cache key for a transform request.
func CacheKey(text string, tone Tone) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(int(tone)) + ":" + text))
	return hex.EncodeToString(sum[:])
}
