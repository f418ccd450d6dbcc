// Package scoring parses compact answer strings and turns graded answers into
// ability estimates under a one-parameter logistic model.
package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mock-test-service/internal/domain"
)

// Delimiter separates the test id from the answer payload.
const Delimiter = "*"

var tokenPattern = regexp.MustCompile(`(\d+)([a-dA-D])`)

// ParseCommand splits "<command> <id>*<answers>" into the test id and the
// ordered answers. Choices are normalized to lower case.
func ParseCommand(raw string, itemCount int) (int64, []domain.Answer, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, nil, domain.ErrMalformedInput
	}
	segments := strings.Split(fields[1], Delimiter)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return 0, nil, domain.ErrMalformedInput
	}

	testID, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil || testID <= 0 {
		return 0, nil, domain.ErrInvalidTestID
	}

	answers, err := ParseAnswers(segments[1], itemCount)
	if err != nil {
		return 0, nil, err
	}
	return testID, answers, nil
}

// ParseAnswers extracts item/choice tokens from payload and checks their count.
func ParseAnswers(payload string, itemCount int) ([]domain.Answer, error) {
	matches := tokenPattern.FindAllStringSubmatch(payload, -1)
	if len(matches) != itemCount {
		return nil, &domain.AnswerCountError{Got: len(matches), Want: itemCount}
	}

	answers := make([]domain.Answer, 0, len(matches))
	for _, m := range matches {
		item, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: item %q", domain.ErrMalformedInput, m[1])
		}
		answers = append(answers, domain.Answer{
			Item:   item,
			Choice: domain.Choice(strings.ToLower(m[2])[0]),
		})
	}
	return answers, nil
}

// ParseAnswerKey parses a test's stored key with the submission grammar.
func ParseAnswerKey(key string, itemCount int) ([]domain.Answer, error) {
	answers, err := ParseAnswers(key, itemCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAnswerKey, err)
	}
	return answers, nil
}

// EncodeAnswers renders answers back into the compact token form.
func EncodeAnswers(answers []domain.Answer) string {
	var b strings.Builder
	for _, a := range answers {
		b.WriteString(strconv.Itoa(a.Item))
		b.WriteByte(byte(a.Choice))
	}
	return b.String()
}

// Grade marks each key item as answered correctly or not. Submitted answers
// are matched by item number; the first answer for a repeated item counts.
func Grade(key, submitted []domain.Answer) []bool {
	chosen := make(map[int]domain.Choice, len(submitted))
	for _, a := range submitted {
		if _, seen := chosen[a.Item]; !seen {
			chosen[a.Item] = a.Choice
		}
	}

	correct := make([]bool, len(key))
	for i, k := range key {
		c, ok := chosen[k.Item]
		correct[i] = ok && c == k.Choice
	}
	return correct
}

// CountCorrect returns the number of true entries.
func CountCorrect(correct []bool) int {
	n := 0
	for _, ok := range correct {
		if ok {
			n++
		}
	}
	return n
}
