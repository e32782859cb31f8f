package classifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

func replying(reply string, calls *int) GeneratorFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		if calls != nil {
			*calls++
		}
		return reply, nil
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestClassify_ValidReply(t *testing.T) {
	c := New(replying(`{"category":"billing","priority":"medium"}`, nil), nil)

	result := c.Classify(context.Background(), "My invoice is wrong")
	require.NotNil(t, result.SuggestedCategory)
	require.NotNil(t, result.SuggestedPriority)
	assert.Equal(t, domain.TicketCategoryBilling, *result.SuggestedCategory)
	assert.Equal(t, domain.TicketPriorityMedium, *result.SuggestedPriority)
}

func TestClassify_FencedReplyMatchesPlain(t *testing.T) {
	plain := New(replying(`{"category":"technical","priority":"high"}`, nil), nil).
		Classify(context.Background(), "VPN drops")
	fenced := New(replying("```json\n{\"category\":\"technical\",\"priority\":\"high\"}\n```", nil), nil).
		Classify(context.Background(), "VPN drops")
	assert.Equal(t, plain, fenced)
	require.NotNil(t, fenced.SuggestedCategory)
	assert.Equal(t, domain.TicketCategoryTechnical, *fenced.SuggestedCategory)
}

func TestClassify_DegradesToEmpty(t *testing.T) {
	cases := map[string]struct {
		generator Generator
		kind      ErrorKind
	}{
		"malformed json": {replying("not json", nil), KindParse},
		"not allowed":    {replying(`{"category":"urgent","priority":"urgent"}`, nil), KindSchema},
		"service error": {GeneratorFunc(func(context.Context, string) (string, error) {
			return "", &ServiceError{Provider: "fake", StatusCode: 500, Message: "boom"}
		}), KindService},
		"network error": {GeneratorFunc(func(context.Context, string) (string, error) {
			return "", errors.New("connection refused")
		}), KindNetwork},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			logger, logs := observedLogger()
			metrics := observability.NewMetrics()
			c := New(tc.generator, logger, WithMetrics(metrics))

			result := c.Classify(context.Background(), "Something happened")
			assert.Nil(t, result.SuggestedCategory)
			assert.Nil(t, result.SuggestedPriority)

			entries := logs.FilterMessage("LLM classification failed").All()
			require.NotEmpty(t, entries)
			assert.Equal(t, string(tc.kind), entries[0].ContextMap()["kind"])
			assert.NotZero(t, metrics.Snapshot().Classifications[string(tc.kind)])
		})
	}
}

func TestClassify_LogsDoNotLeakIntoResult(t *testing.T) {
	c := New(replying("Sure! Here you go: billing/high", nil), nil)
	result := c.Classify(context.Background(), "Refund please")
	assert.True(t, result.IsEmpty())
}

func TestClassify_EmptyDescriptionSkipsCall(t *testing.T) {
	calls := 0
	c := New(replying(`{"category":"billing","priority":"low"}`, &calls), nil)

	assert.True(t, c.Classify(context.Background(), "").IsEmpty())
	assert.True(t, c.Classify(context.Background(), "   ").IsEmpty())
	assert.Zero(t, calls)
}

func TestClassify_TimeoutIsBounded(t *testing.T) {
	logger, logs := observedLogger()
	slow := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return `{"category":"billing","priority":"low"}`, nil
		}
	})
	c := New(slow, logger, WithTimeout(50*time.Millisecond))

	start := time.Now()
	result := c.Classify(context.Background(), "Slow service")
	assert.True(t, result.IsEmpty())
	assert.Less(t, time.Since(start), 2*time.Second)

	entries := logs.FilterMessage("LLM classification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(KindTimeout), entries[0].ContextMap()["kind"])
}

func TestClassify_RecoversFromPanic(t *testing.T) {
	c := New(GeneratorFunc(func(context.Context, string) (string, error) {
		panic("generator exploded")
	}), nil)
	assert.True(t, c.Classify(context.Background(), "anything").IsEmpty())
}

func TestClassify_NilGenerator(t *testing.T) {
	assert.True(t, New(nil, nil).Classify(context.Background(), "anything").IsEmpty())
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.Classification
	getErr  error
}

func (m *memoryCache) Get(_ context.Context, key string) (domain.Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Classification{}, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value domain.Classification, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func TestClassify_CachesCompleteResults(t *testing.T) {
	calls := 0
	cache := &memoryCache{entries: map[string]domain.Classification{}}
	c := New(replying(`{"category":"account","priority":"low"}`, &calls), nil, WithCache(cache, time.Minute))

	first := c.Classify(context.Background(), "Cannot log in")
	second := c.Classify(context.Background(), "Cannot log in")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Contains(t, cache.entries, cacheKey("Cannot log in"))
}

func TestClassify_DoesNotCachePartialResults(t *testing.T) {
	calls := 0
	cache := &memoryCache{entries: map[string]domain.Classification{}}
	c := New(replying(`{"category":"account","priority":"asap"}`, &calls), nil, WithCache(cache, time.Minute))

	c.Classify(context.Background(), "Cannot log in")
	c.Classify(context.Background(), "Cannot log in")
	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.entries)
}

func TestClassify_CacheFailureFallsThrough(t *testing.T) {
	cache := &memoryCache{entries: map[string]domain.Classification{}, getErr: errors.New("redis down")}
	c := New(replying(`{"category":"general","priority":"low"}`, nil), nil, WithCache(cache, time.Minute))

	result := c.Classify(context.Background(), "Question")
	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, domain.TicketCategoryGeneral, *result.SuggestedCategory)
}
