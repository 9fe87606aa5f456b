// Package gateway runs the external transform for a session and commits its
// result. The external call happens with no session lock held; only the
// final commit is serialized with other operations on the same session.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/PabloGalante/tonal/internal/domain"
	"github.com/PabloGalante/tonal/internal/observability"
)

// InFlightPolicy decides what happens to a transform result when its session
// was reset while the external call was outstanding.
type InFlightPolicy int

const (
	// CommitOnCurrent commits the result on top of whatever state the
	// session is in when the result arrives.
	CommitOnCurrent InFlightPolicy = iota
	// DiscardAfterReset drops the result and returns domain.ErrStaleTransform.
	DiscardAfterReset
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheTimeout = 2 * time.Second
)

type Options struct {
	// Timeout bounds each external call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Cache is optional. Lookups and writes never fail a request.
	Cache    domain.ResultCache
	CacheTTL time.Duration
	// CacheTimeout bounds each cache lookup and write. Zero means
	// DefaultCacheTimeout, never more than Timeout.
	CacheTimeout time.Duration
	Policy       InFlightPolicy
}

type Gateway struct {
	transformer  domain.Transformer
	cache        domain.ResultCache
	cacheTTL     time.Duration
	cacheTimeout time.Duration
	timeout      time.Duration
	policy       InFlightPolicy
}

func New(transformer domain.Transformer, opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = DefaultCacheTimeout
	}
	opts.CacheTimeout = min(opts.CacheTimeout, opts.Timeout)
	return &Gateway{
		transformer:  transformer,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		cacheTimeout: opts.CacheTimeout,
		timeout:      opts.Timeout,
		policy:       opts.Policy,
	}
}

// Validate checks a transform request before anything external is touched.
func Validate(text string, tone domain.Tone) error {
	if strings.TrimSpace(text) == "" {
		return &domain.InvalidInputError{Field: "text", Reason: "Text is required"}
	}
	if !tone.Valid() {
		return &domain.InvalidInputError{Field: "tone", Reason: "tone must be an integer between 0 and 100"}
	}
	return nil
}

// Apply transforms text and commits the result into the session's history.
// On any error the history is left untouched.
func (g *Gateway) Apply(ctx context.Context, sess *domain.Session, text string, tone domain.Tone) (domain.View, error) {
	if err := Validate(text, tone); err != nil {
		return domain.View{}, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sess.ID,
		"tone", int(tone),
	)

	var generation uint64
	_ = sess.Do(func(h *domain.History) error {
		generation = h.Generation()
		return nil
	})

	result, err := g.compute(ctx, text, tone)
	if err != nil {
		log.Error("transform failed", "error", err)
		return domain.View{}, err
	}

	var view domain.View
	err = sess.Do(func(h *domain.History) error {
		if g.policy == DiscardAfterReset && h.Generation() != generation {
			return domain.ErrStaleTransform
		}
		view = h.Commit(result)
		return nil
	})
	if err != nil {
		log.Warn("transform result discarded", "error", err)
		return domain.View{}, err
	}

	log.Info("transform committed", "position", view.Position, "length", view.Length)
	return view, nil
}

// compute produces the candidate text, from the cache or the transformer.
// The call is detached from ctx cancellation: a client that goes away does
// not abort an admitted transform, only the timeout does.
func (g *Gateway) compute(ctx context.Context, text string, tone domain.Tone) (string, error) {
	ctx = context.WithoutCancel(ctx)
	log := observability.LoggerFromContext(ctx)
	key := domain.CacheKey(text, tone)

	if g.cache != nil {
		cached, ok, err := g.cacheGet(ctx, key)
		switch {
		case err != nil:
			log.Warn("result cache lookup failed", "error", err)
		case ok:
			log.Debug("result cache hit")
			return cached, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result, err := g.transformer.Transform(callCtx, text, tone)
	if err == nil && callCtx.Err() != nil {
		// A late success after the deadline still counts as a timeout.
		err = callCtx.Err()
	}
	if err != nil {
		return "", &domain.TransformError{Cause: err}
	}
	log.Info("transform completed", "elapsed_ms", time.Since(start).Milliseconds())

	if g.cache != nil {
		if err := g.cacheSet(ctx, key, result); err != nil {
			log.Warn("result cache write failed", "error", err)
		}
	}
	return result, nil
}

func (g *Gateway) cacheGet(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cacheTimeout)
	defer cancel()
	return g.cache.Get(ctx, key)
}

func (g *Gateway) cacheSet(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, g.cacheTimeout)
	defer cancel()
	return g.cache.Set(ctx, key, value, g.cacheTTL)
}
