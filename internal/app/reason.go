package app

import (
	"errors"
	"fmt"

	"mock-test-service/internal/domain"
)

// Reason renders an evaluation error as a message for the submitter.
func Reason(err error) string {
	var countErr *domain.AnswerCountError
	switch {
	case errors.As(err, &countErr):
		return fmt.Sprintf("Exactly %d answers are required, you sent %d.", countErr.Want, countErr.Got)
	case errors.Is(err, domain.ErrMalformedInput):
		return "Wrong format. Use: /answer 1*1a2b3c..."
	case errors.Is(err, domain.ErrInvalidTestID):
		return "Test id must be a positive number."
	case errors.Is(err, domain.ErrTestNotFound):
		return "No such test."
	case errors.Is(err, domain.ErrNotYetOpen):
		return "This test has not started yet."
	case errors.Is(err, domain.ErrAlreadyClosed):
		return "This test is already closed."
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "You have already submitted answers for this test."
	case errors.Is(err, domain.ErrMalformedAnswerKey):
		return "This test is misconfigured, please contact the organizers."
	case errors.Is(err, domain.ErrStorage):
		return "Could not save your answers right now, please try again."
	default:
		return "Something went wrong, please try again."
	}
}
