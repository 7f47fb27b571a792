package vault

import "testing"

func TestEncryptDecryptValueRoundTrip(t *testing.T) {
	v := New("test-secret-key")

	ciphertext, err := v.EncryptValue("sk-abc123")
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	if ciphertext == "sk-abc123" {
		t.Fatal("expected ciphertext to differ from plaintext")
	}

	plaintext, err := v.DecryptValue(ciphertext)
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if plaintext != "sk-abc123" {
		t.Errorf("expected sk-abc123, got %s", plaintext)
	}
}

func TestEncryptValueNoKeyConfigured(t *testing.T) {
	v := New("")

	if _, err := v.EncryptValue("secret"); err == nil {
		t.Fatal("expected error with no key configured")
	}
}

func TestDecryptValueWrongKey(t *testing.T) {
	v1 := New("key-one")
	v2 := New("key-two")

	ciphertext, err := v1.EncryptValue("secret")
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}

	if _, err := v2.DecryptValue(ciphertext); err == nil {
		t.Fatal("expected decryption to fail under the wrong key")
	}
}

func TestEncryptFieldsTagsSensitiveFieldsOnly(t *testing.T) {
	v := New("test-secret-key")

	config := map[string]any{
		"bot_token": "xoxb-12345",
		"channel":   "#general",
	}

	out, err := v.EncryptFields("discord", config)
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	got, ok := out["bot_token"].(string)
	if !ok || got[:len(EncryptedMarker)] != EncryptedMarker {
		t.Errorf("expected bot_token to be marker-tagged, got %v", out["bot_token"])
	}
	if out["channel"] != "#general" {
		t.Errorf("expected non-sensitive field untouched, got %v", out["channel"])
	}
}

func TestEncryptFieldsSkipsAlreadyEncrypted(t *testing.T) {
	v := New("test-secret-key")
	tagged := EncryptedMarker + "already-ciphertext"

	out, err := v.EncryptFields("discord", map[string]any{"bot_token": tagged})
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}
	if out["bot_token"] != tagged {
		t.Errorf("expected already-encrypted value unchanged, got %v", out["bot_token"])
	}
}

func TestEncryptDecryptFieldsRoundTrip(t *testing.T) {
	v := New("test-secret-key")

	encrypted, err := v.EncryptFields("slack", map[string]any{
		"bot_token":      "xoxb-12345",
		"signing_secret": "sig-abc",
		"workspace":      "acme",
	})
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	decrypted, err := v.DecryptFields("slack", encrypted)
	if err != nil {
		t.Fatalf("DecryptFields: %v", err)
	}

	if decrypted["bot_token"] != "xoxb-12345" {
		t.Errorf("expected bot_token decrypted, got %v", decrypted["bot_token"])
	}
	if decrypted["signing_secret"] != "sig-abc" {
		t.Errorf("expected signing_secret decrypted, got %v", decrypted["signing_secret"])
	}
	if decrypted["workspace"] != "acme" {
		t.Errorf("expected non-sensitive field untouched, got %v", decrypted["workspace"])
	}
}

func TestEncryptFieldsNoKeyPassesThrough(t *testing.T) {
	v := New("")

	config := map[string]any{"bot_token": "xoxb-12345"}
	out, err := v.EncryptFields("discord", config)
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}
	if out["bot_token"] != "xoxb-12345" {
		t.Errorf("expected plaintext passthrough with no key configured, got %v", out["bot_token"])
	}
}

func TestIsFieldEncrypted(t *testing.T) {
	v := New("test-secret-key")

	if v.IsFieldEncrypted("discord", "bot_token", "plaintext-token") {
		t.Error("expected plaintext value to report not encrypted")
	}
	if !v.IsFieldEncrypted("discord", "bot_token", EncryptedMarker+"xyz") {
		t.Error("expected marker-tagged value to report encrypted")
	}
	if v.IsFieldEncrypted("discord", "channel_name", EncryptedMarker+"xyz") {
		t.Error("expected non-sensitive field to report not encrypted regardless of marker")
	}
}

func TestRegisterSensitiveFieldsExtendsRegistry(t *testing.T) {
	v := New("test-secret-key")
	v.RegisterSensitiveFields("custom_plugin", []string{"api_token"})

	out, err := v.EncryptFields("custom_plugin", map[string]any{"api_token": "tok-1"})
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	got, ok := out["api_token"].(string)
	if !ok || got[:len(EncryptedMarker)] != EncryptedMarker {
		t.Errorf("expected newly-registered field to be encrypted, got %v", out["api_token"])
	}
}
