package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mock-test-service/internal/domain"
	"mock-test-service/internal/infra/memory"
)

func TestTestRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{TestLoader: memory.NewStaticTestLoader(sampleTest())}
	repo := NewTestRepository(client, loader, time.Minute)

	first, err := repo.GetTest(context.Background(), 5)
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("mock:5") {
		t.Fatalf("expected test cached under mock:5")
	}

	// Second call should hit cache, loader not incremented.
	second, err := repo.GetTest(context.Background(), 5)
	if err != nil {
		t.Fatalf("get cached test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if !second.StartsAt.Equal(first.StartsAt) || !second.EndsAt.Equal(first.EndsAt) {
		t.Fatalf("window changed through cache: %+v vs %+v", second, first)
	}
	if second.Answers != first.Answers || len(second.Difficulty) != 10 || second.Difficulty[9] != 2.5 {
		t.Fatalf("unexpected cached test %+v", second)
	}
}

func TestTestRepositorySetsTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewTestRepository(newClient(mr), memory.NewStaticTestLoader(sampleTest()), time.Minute)
	if _, err := repo.GetTest(context.Background(), 5); err != nil {
		t.Fatalf("get test: %v", err)
	}

	ttl := mr.TTL("mock:5")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with at most 10%% jitter, got %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("mock:5") {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestTestRepositoryPropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewTestRepository(newClient(mr), memory.NewStaticTestLoader(), time.Minute)
	if _, err := repo.GetTest(context.Background(), 5); err != domain.ErrTestNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("mock:5") {
		t.Fatalf("missing test must not be cached")
	}
}

type countingLoader struct {
	TestLoader
	calls int
}

func (l *countingLoader) LoadTest(ctx context.Context, testID int64) (domain.Test, error) {
	l.calls++
	return l.TestLoader.LoadTest(ctx, testID)
}

func sampleTest() domain.Test {
	return domain.Test{
		ID:         5,
		StartsAt:   time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC),
		Answers:    "1a2b3c4d5a6b7c8d9a10b",
		Difficulty: []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
