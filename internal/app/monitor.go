package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mock-test-service/internal/domain"
)

// MonitorOptions configures the closure monitor.
type MonitorOptions struct {
	PollInterval time.Duration
	// CloseLookahead is how close to (or past) its close instant a test must
	// be to get announced. Must be at least PollInterval.
	CloseLookahead  time.Duration
	ItemCount       int
	ChannelID       string
	LeaderboardSize int
	IOTimeout       time.Duration
	// Retention is how far before the first pass a closed, unannounced test
	// is still picked up. Defaults to CloseLookahead.
	Retention time.Duration
}

// Monitor polls tests and announces results once per closed test.
type Monitor struct {
	tests     TestLister
	ledger    ResultLedger
	messenger Messenger
	state     NotificationState
	opts      MonitorOptions
	now       func() time.Time
	logger    *slog.Logger

	// held for a whole pass; passes never overlap
	mu sync.Mutex
	// since is the listing watermark. It only moves past a test's close
	// instant once that test is announced.
	since time.Time
}

func NewMonitor(tests TestLister, ledger ResultLedger, messenger Messenger, state NotificationState, opts MonitorOptions, logger *slog.Logger) *Monitor {
	return NewMonitorWithClock(tests, ledger, messenger, state, opts, logger, time.Now)
}

// NewMonitorWithClock is used by tests for deterministic time.
func NewMonitorWithClock(tests TestLister, ledger ResultLedger, messenger Messenger, state NotificationState, opts MonitorOptions, logger *slog.Logger, now func() time.Time) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = opts.CloseLookahead
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	return &Monitor{
		tests:     tests,
		ledger:    ledger,
		messenger: messenger,
		state:     state,
		opts:      opts,
		now:       now,
		logger:    logger,
	}
}

// Run performs a pass immediately and then once per poll interval until ctx
// is cancelled. An in-flight pass is finished before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	m.logger.Info("closure monitor started",
		"poll_interval", m.opts.PollInterval.String(),
		"close_lookahead", m.opts.CloseLookahead.String(),
	)
	for {
		if err := m.PollAndAnnounce(ctx); err != nil {
			m.logger.Error("closure pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			m.logger.Info("closure monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollAndAnnounce runs one closure pass over every test near its close
// instant. Failures for one test are logged and do not stop the pass.
func (m *Monitor) PollAndAnnounce(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	log := m.logger.With("pass_id", uuid.NewString())
	if m.since.IsZero() {
		m.since = now.Add(-m.opts.Retention)
	}

	listCtx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	tests, err := m.tests.TestsClosingAfter(listCtx, m.since)
	cancel()
	if err != nil {
		return fmt.Errorf("list tests: %w", storageError(err))
	}

	next := now.Add(-m.opts.CloseLookahead)
	for _, test := range tests {
		if !m.dueForAnnouncement(test, now) {
			continue
		}
		announced, err := m.isAnnounced(ctx, test.ID)
		if err != nil {
			log.Error("read notification state", "test_id", test.ID, "error", err)
		} else if !announced {
			err = m.announce(ctx, log, test)
			if err != nil {
				log.Error("announce test", "test_id", test.ID, "error", err)
			}
		}
		if err != nil && test.EndsAt.Before(next) {
			next = test.EndsAt
		}
	}
	if next.After(m.since) {
		m.since = next
	}
	return nil
}

// dueForAnnouncement reports whether test closes within the lookahead or has
// already closed. Closed tests stay due until announced, however late the pass.
func (m *Monitor) dueForAnnouncement(test domain.Test, now time.Time) bool {
	return test.EndsAt.Sub(now) <= m.opts.CloseLookahead
}

func (m *Monitor) announce(ctx context.Context, log *slog.Logger, test domain.Test) error {
	fetchCtx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	collection, ok, err := m.ledger.FetchResults(fetchCtx, test.ID)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch results: %w", storageError(err))
	}
	if !ok || len(collection.Results) == 0 {
		log.Info("test closed without results", "test_id", test.ID)
		return m.markAnnounced(ctx, test.ID)
	}

	delivered := 0
	for _, r := range collection.Results {
		if m.deliverPersonal(ctx, log, test.ID, r) {
			delivered++
		}
	}

	lb := RankResults(collection, m.opts.LeaderboardSize)
	sendCtx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	err = m.messenger.SendChannel(sendCtx, m.opts.ChannelID, leaderboardMessage(lb, m.opts.ItemCount), FormatHTML)
	cancel()
	if err != nil {
		return fmt.Errorf("broadcast leaderboard: %w", err)
	}

	log.Info("test announced",
		"test_id", test.ID,
		"results", len(collection.Results),
		"delivered", delivered,
	)
	return m.markAnnounced(ctx, test.ID)
}

// deliverPersonal reports whether the recipient has their result after the call.
func (m *Monitor) deliverPersonal(ctx context.Context, log *slog.Logger, testID int64, r domain.Result) bool {
	stateCtx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	done, err := m.state.IsDelivered(stateCtx, testID, r.UserID)
	cancel()
	if err == nil && done {
		return true
	}

	sendCtx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	err = m.messenger.SendPersonal(sendCtx, r.UserID, personalMessage(testID, r, m.opts.ItemCount))
	cancel()
	if err != nil {
		log.Warn("personal result not delivered", "test_id", testID, "user_id", r.UserID, "error", err)
		return false
	}

	stateCtx, cancel = withTimeout(ctx, m.opts.IOTimeout)
	defer cancel()
	if err := m.state.MarkDelivered(stateCtx, testID, r.UserID); err != nil {
		log.Warn("record delivery", "test_id", testID, "user_id", r.UserID, "error", err)
	}
	return true
}

func (m *Monitor) isAnnounced(ctx context.Context, testID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	defer cancel()
	return m.state.IsAnnounced(ctx, testID)
}

func (m *Monitor) markAnnounced(ctx context.Context, testID int64) error {
	ctx, cancel := withTimeout(ctx, m.opts.IOTimeout)
	defer cancel()
	return m.state.MarkAnnounced(ctx, testID)
}
