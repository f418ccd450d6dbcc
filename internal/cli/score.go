package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mock-test-service/internal/scoring"
)

// NewScoreCmd evaluates one answer string against a key without touching storage.
func NewScoreCmd() *cobra.Command {
	var (
		key        string
		difficulty string
		items      int
	)
	cmd := &cobra.Command{
		Use:     "score <answers>",
		Short:   "Score an answer string against a key",
		Example: "mock-test-service score --key 1a2b3c4d5a6b7c8d9a10b 1a2b3c4d5a6b7c8d9c10a",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyAnswers, err := scoring.ParseAnswerKey(key, items)
			if err != nil {
				return err
			}
			submitted, err := scoring.ParseAnswers(args[0], items)
			if err != nil {
				return err
			}
			diff, err := parseDifficulty(difficulty, items)
			if err != nil {
				return err
			}

			correct := scoring.Grade(keyAnswers, submitted)
			n := scoring.CountCorrect(correct)
			theta := scoring.EstimateAbility(correct, diff)
			fmt.Fprintf(cmd.OutOrStdout(), "correct: %d/%d (%d%%)\nability: %.4f\nscore: %.2f\n",
				n, items, scoring.Percentage(n, items), theta, scoring.DisplayScore(theta))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "answer key, e.g. 1a2b3c...")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "comma-separated item difficulties (default linear -2..2)")
	cmd.Flags().IntVar(&items, "items", 10, "number of items")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func parseDifficulty(raw string, items int) ([]float64, error) {
	if raw == "" {
		return scoring.DefaultDifficulties(items), nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != items {
		return nil, fmt.Errorf("expected %d difficulties, got %d", items, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("difficulty %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
