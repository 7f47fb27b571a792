package memory

import "testing"

func TestInferFactCategory(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"User's favorite color is blue", "favorite"},
		{"User lives in Seattle", "location"},
		{"User likes jazz music", "preference"},
		{"User hates cilantro", "dislike"},
		{"User wants to run a marathon next year", "goal"},
		{"User works as a nurse", "work"},
		{"User's sister visits every summer", "family"},
		{"User is 34 years old", "personal_attribute"},
		{"User studied computer science at MIT", "education"},
		{"User's hobby is painting", "hobby"},
		{"User is allergic to shellfish", "health"},
		{"User believes in daily meditation", "belief"},
	}
	for _, c := range cases {
		if got := inferFactCategory(c.text); got != c.want {
			t.Errorf("inferFactCategory(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestInferFactCategory_FallsBackToJoinedTokens(t *testing.T) {
	got := inferFactCategory("User mentioned owning a vintage typewriter")
	if got == "fact" {
		t.Fatal("expected a joined-token fallback, not the bare default")
	}
}

func TestInferFactCategory_EmptyTextFallsBackToFact(t *testing.T) {
	if got := inferFactCategory("the a an"); got != "fact" {
		t.Errorf("expected 'fact' when every token is a stopword, got %q", got)
	}
}
