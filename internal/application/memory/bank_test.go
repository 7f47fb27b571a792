package memory

import (
	"testing"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

func TestInferMemoryBank(t *testing.T) {
	cases := []struct {
		factKey  string
		factText string
		want     models.MemoryBank
	}{
		{"birthday", "User's birthday is on March 4th", models.BankEvents},
		{"allergy", "User is allergic to peanuts", models.BankHealth},
		{"spouse", "User's wife is named Claire", models.BankRelationships},
		{"hobby", "User's favorite hobby is rock climbing", models.BankInterests},
		{"job", "User works as a software engineer at Acme Corp", models.BankWork},
		{"name", "User's name is Alex", models.BankPersonal},
		{"random", "User mentioned liking the color teal once", models.BankGeneral},
	}
	for _, c := range cases {
		if got := inferMemoryBank(c.factKey, c.factText); got != c.want {
			t.Errorf("inferMemoryBank(%q, %q) = %v, want %v", c.factKey, c.factText, got, c.want)
		}
	}
}

func TestInferMemoryBank_EvaluationOrderEventsBeforeHealth(t *testing.T) {
	// "birthday" matches Events; even if a fact text also loosely resembles
	// a health-tier keyword, Events must win since it's evaluated first.
	got := inferMemoryBank("", "User's birthday party is next week")
	if got != models.BankEvents {
		t.Errorf("expected Events to win the tier ordering, got %v", got)
	}
}
