// Package classifier asks a text-generation service for a category and
// priority suggestion. Classify never returns an error: every failure
// degrades to an empty suggestion and is logged with its kind.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

const (
	defaultTimeout = 15 * time.Second
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeCached  = "cache_hit"
	outcomePanic   = "panic"
)

// Classifier produces advisory classifications.
type Classifier struct {
	generator Generator
	logger    *zap.Logger
	metrics   *observability.Metrics
	timeout   time.Duration
	cache     Cache
	cacheTTL  time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout bounds each generation call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCache enables result caching. A nil cache or non-positive ttl disables it.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Classifier) {
		if cache != nil && ttl > 0 {
			c.cache = cache
			c.cacheTTL = ttl
		}
	}
}

// WithMetrics records classification outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Classifier) { c.metrics = metrics }
}

// New creates a Classifier on top of generator.
func New(generator Generator, logger *zap.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{
		generator: generator,
		logger:    logger,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns a suggestion for description. Fields the service could not
// answer with an allowed value are nil.
func (c *Classifier) Classify(ctx context.Context, description string) (result domain.Classification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked", zap.Any("panic", r))
			c.metrics.RecordClassification(outcomePanic)
			result = domain.Classification{}
		}
	}()

	if strings.TrimSpace(description) == "" {
		c.logger.Warn("classification skipped: empty description")
		c.metrics.RecordClassification(outcomeSkipped)
		return domain.Classification{}
	}

	key := cacheKey(description)
	if cached, ok := c.lookup(ctx, key); ok {
		c.metrics.RecordClassification(outcomeCached)
		return cached
	}

	result, err := c.classify(ctx, description)
	if err != nil {
		c.report(err)
		return domain.Classification{}
	}
	if result.SuggestedCategory != nil && result.SuggestedPriority != nil {
		c.metrics.RecordClassification(outcomeOK)
		c.store(ctx, key, result)
	}
	return result
}

func (c *Classifier) classify(ctx context.Context, description string) (domain.Classification, error) {
	if c.generator == nil {
		return domain.Classification{}, &Error{Kind: KindService, Err: errors.New("no generator configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.generator.Generate(callCtx, BuildPrompt(description))
	if err != nil {
		return domain.Classification{}, transportError(err)
	}

	obj, err := parseReply(reply)
	if err != nil {
		return domain.Classification{}, err
	}

	result, issues := extract(obj)
	for _, issue := range issues {
		c.report(issue)
	}
	return result, nil
}

func (c *Classifier) report(err error) {
	kind := ErrorKind("unknown")
	var classErr *Error
	if errors.As(err, &classErr) {
		kind = classErr.Kind
	}
	provider := "none"
	if c.generator != nil {
		provider = c.generator.Name()
	}
	c.metrics.RecordClassification(string(kind))
	c.logger.Error("LLM classification failed",
		zap.String("kind", string(kind)),
		zap.String("provider", provider),
		zap.Error(err))
}

func (c *Classifier) lookup(ctx context.Context, key string) (domain.Classification, bool) {
	if c.cache == nil {
		return domain.Classification{}, false
	}
	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("classification cache read failed", zap.Error(err))
		return domain.Classification{}, false
	}
	return value, ok
}

func (c *Classifier) store(ctx context.Context, key string, value domain.Classification) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, c.cacheTTL); err != nil {
		c.logger.Warn("classification cache write failed", zap.Error(fmt.Errorf("set %s: %w", key, err)))
	}
}
