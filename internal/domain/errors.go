package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when a submission does not follow the "<cmd> <id>*<answers>" shape.
	ErrMalformedInput = errors.New("malformed submission")
	// ErrInvalidTestID indicates the test identifier is not a positive integer.
	ErrInvalidTestID = errors.New("invalid test id")
	// ErrWrongAnswerCount indicates the number of answer tokens differs from the item count.
	ErrWrongAnswerCount = errors.New("wrong answer count")
	// ErrTestNotFound indicates the test could not be loaded.
	ErrTestNotFound = errors.New("test not found")
	// ErrNotYetOpen is returned for submissions before the test window opens.
	ErrNotYetOpen = errors.New("test not yet open")
	// ErrAlreadyClosed is returned for submissions after the test window closed.
	ErrAlreadyClosed = errors.New("test already closed")
	// ErrDuplicateSubmission is returned when the submitter already has a result for the test.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrMalformedAnswerKey indicates the stored answer key does not follow the token grammar.
	ErrMalformedAnswerKey = errors.New("malformed answer key")
	// ErrStorage wraps failures of the backing store. Callers may retry.
	ErrStorage = errors.New("storage failure")
	// ErrDelivery wraps failures of the messaging transport.
	ErrDelivery = errors.New("delivery failure")
)

// AnswerCountError carries the number of tokens actually found.
type AnswerCountError struct {
	Got  int
	Want int
}

func (e *AnswerCountError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrWrongAnswerCount, e.Got, e.Want)
}

func (e *AnswerCountError) Is(target error) bool {
	return target == ErrWrongAnswerCount
}
