package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mock-test-service/internal/domain"
)

// ResultLedger keeps one JSONB result array per test in the results table.
// Appends lock the row, so concurrent writers for the same submitter (from
// any process) see each other and the second one is rejected.
type ResultLedger struct {
	pool *pgxpool.Pool
}

func NewResultLedger(pool *pgxpool.Pool) *ResultLedger {
	return &ResultLedger{pool: pool}
}

func (l *ResultLedger) FetchResults(ctx context.Context, testID int64) (domain.ResultCollection, bool, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT results FROM results WHERE mock_number=$1`, testID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResultCollection{}, false, nil
	}
	if err != nil {
		return domain.ResultCollection{}, false, fmt.Errorf("fetch results: %w", err)
	}
	results, err := decodeResults(raw)
	if err != nil {
		return domain.ResultCollection{}, false, err
	}
	return domain.ResultCollection{TestID: testID, Results: results}, true, nil
}

func (l *ResultLedger) AppendResult(ctx context.Context, testID int64, result domain.Result) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO results (mock_number, results) VALUES ($1, '[]'::jsonb) ON CONFLICT (mock_number) DO NOTHING`, testID); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT results FROM results WHERE mock_number=$1 FOR UPDATE`, testID).Scan(&raw); err != nil {
		return fmt.Errorf("lock collection: %w", err)
	}
	results, err := decodeResults(raw)
	if err != nil {
		return err
	}
	collection := domain.ResultCollection{TestID: testID, Results: results}
	if collection.Has(result.UserID) {
		return domain.ErrDuplicateSubmission
	}

	data, err := json.Marshal(append(results, result))
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE results SET results=$1::jsonb WHERE mock_number=$2`, string(data), testID); err != nil {
		return fmt.Errorf("update results: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func decodeResults(raw []byte) ([]domain.Result, error) {
	var results []domain.Result
	if len(raw) == 0 {
		return results, nil
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return results, nil
}
