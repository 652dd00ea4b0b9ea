package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome records how a round concluded.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeCorrect Outcome = "CORRECT"
	OutcomeWrong   Outcome = "WRONG"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// MessageCorrect is shown after a correct submission.
const MessageCorrect = "correct answer"

func wrongMessage(solution int) string {
	return fmt.Sprintf("wrong answer, the answer was %d", solution)
}

func timeUpMessage(solution int) string {
	return fmt.Sprintf("time's up, the answer was %d", solution)
}

// ParseAnswer reads the integer prefix of raw: leading whitespace is skipped,
// one optional sign is accepted, and digits are consumed until the first
// non-digit. "7abc" and "7.9" both read as 7. It reports false when no digit
// follows, or when the value does not fit in an int.
func ParseAnswer(raw string) (int, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
