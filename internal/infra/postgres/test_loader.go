package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mock-test-service/internal/domain"
)

const testColumns = `id, starts_at, ends_at, answers, difficulty`

// TestLoader loads test metadata from the mock table.
type TestLoader struct {
	pool *pgxpool.Pool
}

func NewTestLoader(pool *pgxpool.Pool) *TestLoader {
	return &TestLoader{pool: pool}
}

func (l *TestLoader) LoadTest(ctx context.Context, testID int64) (domain.Test, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+testColumns+` FROM mock WHERE id=$1`, testID)
	test, err := scanTest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	return test, nil
}

// TestsClosingAfter lists tests whose ends_at is at or after since.
func (l *TestLoader) TestsClosingAfter(ctx context.Context, since time.Time) ([]domain.Test, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+testColumns+` FROM mock WHERE ends_at >= $1 ORDER BY ends_at, id`, since)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	var tests []domain.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return tests, nil
}

func scanTest(row pgx.Row) (domain.Test, error) {
	var (
		test       domain.Test
		difficulty []byte
	)
	if err := row.Scan(&test.ID, &test.StartsAt, &test.EndsAt, &test.Answers, &difficulty); err != nil {
		return domain.Test{}, err
	}
	if len(difficulty) > 0 {
		if err := json.Unmarshal(difficulty, &test.Difficulty); err != nil {
			return domain.Test{}, fmt.Errorf("unmarshal difficulty: %w", err)
		}
	}
	return test, nil
}
