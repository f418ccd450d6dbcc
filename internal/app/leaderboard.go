package app

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"mock-test-service/internal/domain"
	"mock-test-service/internal/scoring"
)

// RankResults orders results by correct count, highest first, keeping arrival
// order among equal counts, and keeps at most limit entries.
func RankResults(collection domain.ResultCollection, limit int) domain.Leaderboard {
	ranked := make([]domain.Result, len(collection.Results))
	copy(ranked, collection.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Correct > ranked[j].Correct
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, r := range ranked {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			Correct:     r.Correct,
			Score:       r.Score,
		})
	}
	return domain.Leaderboard{TestID: collection.TestID, Entries: entries}
}

func personalMessage(testID int64, r domain.Result, itemCount int) string {
	return fmt.Sprintf("Test #%d is over.\nCorrect answers: %d/%d (%d%%)\nScore: %.2f",
		testID, r.Correct, itemCount, scoring.Percentage(r.Correct, itemCount), r.Score)
}

func leaderboardMessage(lb domain.Leaderboard, itemCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Test #%d: top %d</b>\n", lb.TestID, len(lb.Entries))
	for _, e := range lb.Entries {
		fmt.Fprintf(&b, "\n%d. %s: %d/%d (%.2f)", e.Rank, html.EscapeString(e.DisplayName), e.Correct, itemCount, e.Score)
	}
	return b.String()
}
