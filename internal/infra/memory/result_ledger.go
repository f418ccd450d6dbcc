package memory

import (
	"context"
	"sync"

	"mock-test-service/internal/domain"
)

// ResultLedger is an in-memory implementation of app.ResultLedger.
type ResultLedger struct {
	mu          sync.RWMutex
	collections map[int64]*domain.ResultCollection
}

func NewResultLedger() *ResultLedger {
	return &ResultLedger{collections: make(map[int64]*domain.ResultCollection)}
}

func (l *ResultLedger) FetchResults(_ context.Context, testID int64) (domain.ResultCollection, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.collections[testID]
	if !ok {
		return domain.ResultCollection{}, false, nil
	}
	results := make([]domain.Result, len(c.Results))
	copy(results, c.Results)
	return domain.ResultCollection{TestID: testID, Results: results}, true, nil
}

func (l *ResultLedger) AppendResult(_ context.Context, testID int64, result domain.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.collections[testID]
	if !ok {
		c = &domain.ResultCollection{TestID: testID}
		l.collections[testID] = c
	}
	if c.Has(result.UserID) {
		return domain.ErrDuplicateSubmission
	}
	c.Results = append(c.Results, result)
	return nil
}
