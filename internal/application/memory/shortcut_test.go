package memory

import "testing"

func TestIsSimplePreference(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"I love sushi", true},
		{"I hate mondays", true},
		{"my favorite color is blue", true},
		{"I'm allergic to peanuts", true},
		{"I can't stand loud music", true},
		{"I always walk to work", true},
		{"I never eat breakfast", true},
		{"can you tell me about the weather forecast for tomorrow", false},
		{"I think we should meet at noon to discuss the quarterly roadmap", false},
	}
	for _, c := range cases {
		if got := isSimplePreference(c.text, 100); got != c.want {
			t.Errorf("isSimplePreference(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestIsSimplePreference_RejectsOverMaxLength(t *testing.T) {
	if isSimplePreference("I love sushi", 5) {
		t.Fatal("expected rejection when text exceeds maxLength")
	}
}

func TestConvertToThirdPerson(t *testing.T) {
	// convertToThirdPerson only swaps pronouns; it never conjugates verbs.
	cases := []struct {
		in   string
		want string
	}{
		{"I love sushi", "User love sushi"},
		{"I'm allergic to peanuts", "User is allergic to peanuts"},
		{"I have a dog", "User has a dog"},
		{"My favorite color is blue", "User's favorite color is blue"},
		{"Can you remind me later", "Can you remind User later"},
	}
	for _, c := range cases {
		if got := convertToThirdPerson(c.in); got != c.want {
			t.Errorf("convertToThirdPerson(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractPreferenceShortcut(t *testing.T) {
	key, value, text := extractPreferenceShortcut("I love sushi")
	if key != "preference" {
		t.Errorf("expected fact_key 'preference', got %q", key)
	}
	if value != "I love sushi" {
		t.Errorf("expected fact_value to be the raw utterance, got %q", value)
	}
	if text != "User love sushi" {
		t.Errorf("expected third-person fact_text, got %q", text)
	}
}
