package scoring

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mock-test-service/internal/domain"
)

func TestParseCommand(t *testing.T) {
	id, answers, err := ParseCommand("/answer 5*1a2B3c4D5a6b7c8d9a10b", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.Len(t, answers, 10)
	assert.Equal(t, domain.Answer{Item: 2, Choice: 'b'}, answers[1])
	assert.Equal(t, domain.Answer{Item: 10, Choice: 'b'}, answers[9])
}

func TestParseCommandErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"no payload", "/answer", domain.ErrMalformedInput},
		{"three fields", "/answer 5*1a 2b", domain.ErrMalformedInput},
		{"no delimiter", "/answer 51a2b3c4d5a6b7c8d9a10b", domain.ErrMalformedInput},
		{"empty id", "/answer *1a2b3c4d5a6b7c8d9a10b", domain.ErrMalformedInput},
		{"empty answers", "/answer 5*", domain.ErrMalformedInput},
		{"two delimiters", "/answer 5*1a*2b", domain.ErrMalformedInput},
		{"non numeric id", "/answer x*1a2b3c4d5a6b7c8d9a10b", domain.ErrInvalidTestID},
		{"zero id", "/answer 0*1a2b3c4d5a6b7c8d9a10b", domain.ErrInvalidTestID},
		{"negative id", "/answer -3*1a2b3c4d5a6b7c8d9a10b", domain.ErrInvalidTestID},
		{"short", "/answer 5*1a2b3c", domain.ErrWrongAnswerCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseCommand(tc.raw, 10)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWrongAnswerCountOnlyWhenCountDiffers(t *testing.T) {
	for _, n := range []int{9, 10, 11} {
		payload := EncodeAnswers(sequentialAnswers(n))
		_, err := ParseAnswers(payload, 10)
		if n == 10 {
			assert.NoError(t, err, "tokens=%d", n)
			continue
		}
		require.ErrorIs(t, err, domain.ErrWrongAnswerCount, "tokens=%d", n)
		var countErr *domain.AnswerCountError
		require.True(t, errors.As(err, &countErr))
		assert.Equal(t, n, countErr.Got)
		assert.Equal(t, 10, countErr.Want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	answers := sequentialAnswers(10)
	encoded := EncodeAnswers(answers)

	for _, payload := range []string{encoded, strings.ToUpper(encoded)} {
		decoded, err := ParseAnswers(payload, 10)
		require.NoError(t, err)
		assert.Equal(t, answers, decoded)
	}
}

func TestParseAnswerKeyMalformed(t *testing.T) {
	_, err := ParseAnswerKey("1a2b3e", 10)
	assert.ErrorIs(t, err, domain.ErrMalformedAnswerKey)
}

func TestGradeMatchesByItemNumber(t *testing.T) {
	key, err := ParseAnswerKey("1a2b3c4d5a6b7c8d9a10b", 10)
	require.NoError(t, err)

	// 11a must not count as 1a, and order in the submission does not matter.
	submitted, err := ParseAnswers("10b9a8d7c6b5a4d3c2b11a", 10)
	require.NoError(t, err)

	correct := Grade(key, submitted)
	assert.Equal(t, 9, CountCorrect(correct))
	assert.False(t, correct[0])
}

func sequentialAnswers(n int) []domain.Answer {
	letters := "abcd"
	out := make([]domain.Answer, n)
	for i := range out {
		out[i] = domain.Answer{Item: i + 1, Choice: domain.Choice(letters[i%4])}
	}
	return out
}
