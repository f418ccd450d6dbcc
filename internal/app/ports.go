package app

import (
	"context"
	"time"

	"mock-test-service/internal/domain"
)

// TestRepository loads a single test (from cache/backing store).
type TestRepository interface {
	GetTest(ctx context.Context, testID int64) (domain.Test, error)
}

// TestLister lists tests whose close instant is not earlier than since.
type TestLister interface {
	TestsClosingAfter(ctx context.Context, since time.Time) ([]domain.Test, error)
}

// ResultLedger stores per-test result collections.
// AppendResult creates the collection if absent and must reject a second
// result for the same user with domain.ErrDuplicateSubmission.
type ResultLedger interface {
	FetchResults(ctx context.Context, testID int64) (domain.ResultCollection, bool, error)
	AppendResult(ctx context.Context, testID int64, result domain.Result) error
}

// Format selects how a channel message is rendered by the transport.
type Format string

const (
	FormatPlain Format = ""
	FormatHTML  Format = "HTML"
)

// Messenger delivers outbound messages. Each call reports its own success.
type Messenger interface {
	SendPersonal(ctx context.Context, recipientID int64, text string) error
	SendChannel(ctx context.Context, channelID string, text string, format Format) error
}

// NotificationState remembers which tests were announced and which
// recipients already received their personal result.
type NotificationState interface {
	IsAnnounced(ctx context.Context, testID int64) (bool, error)
	MarkAnnounced(ctx context.Context, testID int64) error
	IsDelivered(ctx context.Context, testID, userID int64) (bool, error)
	MarkDelivered(ctx context.Context, testID, userID int64) error
}
