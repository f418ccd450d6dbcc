package domain

import "time"

// Choice is a single lower-case answer letter.
type Choice byte

// Answer pairs an item number with the chosen letter.
type Answer struct {
	Item   int
	Choice Choice
}

// Test is a timed multiple-choice test. It is read-only to the evaluator.
type Test struct {
	ID         int64     `json:"id"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Answers    string    `json:"answers"`
	Difficulty []float64 `json:"difficulty,omitempty"`
}

// Submitter identifies who sent a submission.
type Submitter struct {
	ID       int64
	Username string
	FullName string
}

// DisplayName prefers the username and falls back to the full name.
func (s Submitter) DisplayName() string {
	if s.Username != "" {
		return s.Username
	}
	if s.FullName != "" {
		return s.FullName
	}
	return "unknown"
}

// Result is the scored outcome of one submission. Never mutated after creation.
type Result struct {
	UserID      int64     `json:"userId"`
	DisplayName string    `json:"username"`
	Correct     int       `json:"result"`
	Ability     float64   `json:"ability"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ResultCollection holds a test's results in arrival order.
type ResultCollection struct {
	TestID  int64    `json:"mockNumber"`
	Results []Result `json:"results"`
}

// Has reports whether userID already has a result in the collection.
func (c ResultCollection) Has(userID int64) bool {
	for _, r := range c.Results {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Evaluation summarizes an accepted submission for the submitter.
type Evaluation struct {
	TestID    int64   `json:"testId"`
	Correct   int     `json:"correct"`
	ItemCount int     `json:"itemCount"`
	Percent   int     `json:"percent"`
	Ability   float64 `json:"ability"`
	Score     float64 `json:"score"`
}

// LeaderboardEntry is a ranked view of a result.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"userId"`
	DisplayName string  `json:"displayName"`
	Correct     int     `json:"correct"`
	Score       float64 `json:"score"`
}

// Leaderboard captures the ordered top results of a closed test.
type Leaderboard struct {
	TestID  int64              `json:"testId"`
	Entries []LeaderboardEntry `json:"entries"`
}
