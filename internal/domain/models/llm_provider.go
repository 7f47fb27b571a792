package models

// LLMProvider is a configured OpenAI-compatible endpoint. APIKey is the
// __encrypted__:-tagged ciphertext at rest; it is decrypted by the vault
// only at call time, never persisted in plaintext.
type LLMProvider struct {
	ID            string
	Name          string
	BaseURL       string
	APIKey        string
	ProviderType  string
	Models        []string
	DefaultModel  string
	IsActive      bool
}
