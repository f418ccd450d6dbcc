package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mock-test-service/internal/domain"
)

// TestLoader fetches test metadata from a backing store (e.g., Postgres).
type TestLoader interface {
	LoadTest(ctx context.Context, testID int64) (domain.Test, error)
}

// TestRepository caches tests with TTL to avoid repeated DB hits.
type TestRepository struct {
	loader TestLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[int64]cachedTest
}

type cachedTest struct {
	test      domain.Test
	expiresAt time.Time
}

func NewTestRepository(loader TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedTest),
	}
}

func (r *TestRepository) GetTest(ctx context.Context, testID int64) (domain.Test, error) {
	if test, ok := r.cached(testID); ok {
		return test, nil
	}

	result, err, _ := r.sf.Do(sfKey(testID), func() (interface{}, error) {
		if test, ok := r.cached(testID); ok {
			return test, nil
		}

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}

		r.mu.Lock()
		r.cache[testID] = cachedTest{
			test:      test,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

func (r *TestRepository) cached(testID int64) (domain.Test, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[testID]; ok && entry.expiresAt.After(now) {
		return entry.test, true
	}
	return domain.Test{}, false
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticTestLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticTestLoader struct {
	tests map[int64]domain.Test
}

func NewStaticTestLoader(tests ...domain.Test) *StaticTestLoader {
	l := &StaticTestLoader{tests: make(map[int64]domain.Test, len(tests))}
	for _, t := range tests {
		l.tests[t.ID] = t
	}
	return l
}

func (l *StaticTestLoader) LoadTest(_ context.Context, testID int64) (domain.Test, error) {
	if test, ok := l.tests[testID]; ok {
		return test, nil
	}
	return domain.Test{}, domain.ErrTestNotFound
}

// GetTest lets the loader be used directly as an app.TestRepository.
func (l *StaticTestLoader) GetTest(ctx context.Context, testID int64) (domain.Test, error) {
	return l.LoadTest(ctx, testID)
}

// TestsClosingAfter returns tests closing at or after since, ordered by close time.
func (l *StaticTestLoader) TestsClosingAfter(_ context.Context, since time.Time) ([]domain.Test, error) {
	out := make([]domain.Test, 0, len(l.tests))
	for _, t := range l.tests {
		if !t.EndsAt.Before(since) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].EndsAt.Before(out[j].EndsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sfKey(testID int64) string {
	return strconv.FormatInt(testID, 10)
}
