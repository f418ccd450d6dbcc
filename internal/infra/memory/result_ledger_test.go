package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mock-test-service/internal/domain"
)

func TestResultLedgerAppendAndFetch(t *testing.T) {
	ctx := context.Background()
	ledger := NewResultLedger()

	if _, ok, _ := ledger.FetchResults(ctx, 5); ok {
		t.Fatalf("expected no collection before first append")
	}

	for _, id := range []int64{1, 2} {
		if err := ledger.AppendResult(ctx, 5, domain.Result{UserID: id, Correct: int(id)}); err != nil {
			t.Fatalf("append %d: %v", id, err)
		}
	}

	c, ok, err := ledger.FetchResults(ctx, 5)
	if err != nil || !ok {
		t.Fatalf("fetch: ok=%v err=%v", ok, err)
	}
	if len(c.Results) != 2 || c.Results[0].UserID != 1 || c.Results[1].UserID != 2 {
		t.Fatalf("expected arrival order, got %+v", c.Results)
	}
}

func TestResultLedgerRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	ledger := NewResultLedger()

	if err := ledger.AppendResult(ctx, 5, domain.Result{UserID: 1, Correct: 3}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ledger.AppendResult(ctx, 5, domain.Result{UserID: 1, Correct: 9}); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	c, _, _ := ledger.FetchResults(ctx, 5)
	if len(c.Results) != 1 || c.Results[0].Correct != 3 {
		t.Fatalf("first result must be kept, got %+v", c.Results)
	}
}

func TestResultLedgerConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	ledger := NewResultLedger()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.AppendResult(ctx, 5, domain.Result{UserID: 7}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one accepted append, got %d", accepted)
	}
}
