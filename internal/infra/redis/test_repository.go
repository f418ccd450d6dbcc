package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mock-test-service/internal/domain"
)

// TestLoader fetches test metadata from a backing store (e.g., Postgres).
type TestLoader interface {
	LoadTest(ctx context.Context, testID int64) (domain.Test, error)
}

// TestRepository caches test metadata in Redis (hash per test) and falls back
// to a loader on cache miss.
// Stored as: HSET mock:{testID} starts_at .. ends_at .. answers .. difficulty <json>
type TestRepository struct {
	client *redis.Client
	loader TestLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTestRepository(client *redis.Client, loader TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TestRepository) GetTest(ctx context.Context, testID int64) (domain.Test, error) {
	if test, ok := r.fromCache(ctx, testID); ok {
		return test, nil
	}

	id := strconv.FormatInt(testID, 10)
	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if test, ok := r.fromCache(ctx, testID); ok {
			return test, nil
		}

		test, err := r.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}

		difficulty, err := json.Marshal(test.Difficulty)
		if err != nil {
			return domain.Test{}, err
		}
		key := r.testKey(testID)
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key,
			"starts_at", test.StartsAt.Format(time.RFC3339Nano),
			"ends_at", test.EndsAt.Format(time.RFC3339Nano),
			"answers", test.Answers,
			"difficulty", string(difficulty),
		)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// cache fill is best-effort
		_, _ = pipe.Exec(ctx)

		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

func (r *TestRepository) fromCache(ctx context.Context, testID int64) (domain.Test, bool) {
	fields, err := r.client.HGetAll(ctx, r.testKey(testID)).Result()
	if err != nil || len(fields) == 0 {
		return domain.Test{}, false
	}
	test, err := buildTestFromCache(testID, fields)
	if err != nil {
		return domain.Test{}, false
	}
	return test, true
}

func (r *TestRepository) testKey(testID int64) string {
	return "mock:" + strconv.FormatInt(testID, 10)
}

func buildTestFromCache(testID int64, fields map[string]string) (domain.Test, error) {
	startsAt, err := time.Parse(time.RFC3339Nano, fields["starts_at"])
	if err != nil {
		return domain.Test{}, err
	}
	endsAt, err := time.Parse(time.RFC3339Nano, fields["ends_at"])
	if err != nil {
		return domain.Test{}, err
	}
	var difficulty []float64
	if raw := fields["difficulty"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &difficulty); err != nil {
			return domain.Test{}, err
		}
	}
	return domain.Test{
		ID:         testID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Answers:    fields["answers"],
		Difficulty: difficulty,
	}, nil
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
