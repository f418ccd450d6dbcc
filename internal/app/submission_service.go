package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mock-test-service/internal/domain"
	"mock-test-service/internal/scoring"
)

// Options configures submission evaluation.
type Options struct {
	ItemCount int
	// IOTimeout bounds every storage call. Zero disables the bound.
	IOTimeout time.Duration
}

// SubmissionService evaluates answer submissions and records results.
type SubmissionService struct {
	tests  TestRepository
	ledger ResultLedger
	opts   Options
	locks  *keyLocks
	logger *slog.Logger
}

func NewSubmissionService(tests TestRepository, ledger ResultLedger, opts Options, logger *slog.Logger) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		tests:  tests,
		ledger: ledger,
		opts:   opts,
		locks:  newKeyLocks(),
		logger: logger,
	}
}

// EvaluateSubmission parses raw, checks the submission window and duplicate
// rule, scores the answers and appends the result to the test's ledger.
func (s *SubmissionService) EvaluateSubmission(ctx context.Context, submitter domain.Submitter, raw string, receivedAt time.Time) (domain.Evaluation, error) {
	testID, answers, err := scoring.ParseCommand(raw, s.opts.ItemCount)
	if err != nil {
		return domain.Evaluation{}, err
	}

	test, err := s.getTest(ctx, testID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	key, difficulty, err := s.itemParameters(test)
	if err != nil {
		s.logger.Error("stored answer key rejected", "test_id", testID, "error", err)
		return domain.Evaluation{}, err
	}

	// The duplicate check and the append must not interleave for one submitter.
	unlock := s.locks.lock(submissionKey(testID, submitter.ID))
	defer unlock()

	existing, err := s.fetchResults(ctx, testID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if err := CheckSubmission(test, receivedAt, submitter.ID, existing); err != nil {
		return domain.Evaluation{}, err
	}

	correct := scoring.Grade(key, answers)
	ability := scoring.EstimateAbility(correct, difficulty)
	result := domain.Result{
		UserID:      submitter.ID,
		DisplayName: submitter.DisplayName(),
		Correct:     scoring.CountCorrect(correct),
		Ability:     ability,
		Score:       scoring.DisplayScore(ability),
		SubmittedAt: receivedAt,
	}

	if err := s.appendResult(ctx, testID, result); err != nil {
		return domain.Evaluation{}, err
	}

	s.logger.Info("submission accepted",
		"test_id", testID,
		"user_id", submitter.ID,
		"correct", result.Correct,
		"ability", result.Ability,
	)
	return domain.Evaluation{
		TestID:    testID,
		Correct:   result.Correct,
		ItemCount: s.opts.ItemCount,
		Percent:   scoring.Percentage(result.Correct, s.opts.ItemCount),
		Ability:   result.Ability,
		Score:     result.Score,
	}, nil
}

func (s *SubmissionService) itemParameters(test domain.Test) ([]domain.Answer, []float64, error) {
	key, err := scoring.ParseAnswerKey(test.Answers, s.opts.ItemCount)
	if err != nil {
		return nil, nil, err
	}
	difficulty := test.Difficulty
	if len(difficulty) == 0 {
		difficulty = scoring.DefaultDifficulties(s.opts.ItemCount)
	}
	if len(difficulty) != len(key) {
		return nil, nil, fmt.Errorf("%w: %d difficulties for %d items", domain.ErrMalformedAnswerKey, len(difficulty), len(key))
	}
	return key, difficulty, nil
}

func (s *SubmissionService) getTest(ctx context.Context, testID int64) (domain.Test, error) {
	ctx, cancel := withTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	test, err := s.tests.GetTest(ctx, testID)
	if errors.Is(err, domain.ErrTestNotFound) {
		return domain.Test{}, err
	}
	if err != nil {
		return domain.Test{}, storageError(err)
	}
	return test, nil
}

func (s *SubmissionService) fetchResults(ctx context.Context, testID int64) (domain.ResultCollection, error) {
	ctx, cancel := withTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	collection, _, err := s.ledger.FetchResults(ctx, testID)
	if err != nil {
		return domain.ResultCollection{}, storageError(err)
	}
	return collection, nil
}

func (s *SubmissionService) appendResult(ctx context.Context, testID int64, result domain.Result) error {
	ctx, cancel := withTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	err := s.ledger.AppendResult(ctx, testID, result)
	if err == nil || errors.Is(err, domain.ErrDuplicateSubmission) {
		return err
	}
	return storageError(err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func storageError(err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
