package matchmaking

import (
	"testing"
)

func TestSampleQuestionLimitStaysInRange(t *testing.T) {
	rng := createLocalRandGenerator()
	for i := 0; i < 200; i++ {
		limit := sampleQuestionLimit(rng, QuestionLimitMin, QuestionLimitMax)
		if limit < QuestionLimitMin || limit > QuestionLimitMax {
			t.Fatalf("limit out of range: %d", limit)
		}
	}
}

func TestGenerateRoomCodeIsFourDigits(t *testing.T) {
	rng := createLocalRandGenerator()
	for i := 0; i < 200; i++ {
		code := generateRoomCode(rng)
		if len(code) != 4 {
			t.Fatalf("expected 4 characters, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
