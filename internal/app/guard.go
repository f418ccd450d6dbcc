package app

import (
	"time"

	"mock-test-service/internal/domain"
)

// CheckSubmission decides whether userID may submit to test at now.
// Submissions exactly at the open or close instant are accepted.
func CheckSubmission(test domain.Test, now time.Time, userID int64, results domain.ResultCollection) error {
	if now.Before(test.StartsAt) {
		return domain.ErrNotYetOpen
	}
	if now.After(test.EndsAt) {
		return domain.ErrAlreadyClosed
	}
	if results.Has(userID) {
		return domain.ErrDuplicateSubmission
	}
	return nil
}
