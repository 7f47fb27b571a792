// Package vault implements the credential vault (C1): encryption of
// sensitive plugin-config fields and LLM provider API keys at rest, tagged
// with the "__encrypted__:" marker so double-encryption and plaintext
// values are both recognisable.
//
// Grounded on _examples/original_source/src/plugins/encryption.py for the
// per-plugin-type sensitive-field registry, the marker scheme and the
// runtime-extension API, and on
// _examples/original_source/src/utils/encryption.py for the PBKDF2-HMAC-
// SHA256 key derivation (100,000 iterations, fixed salt). Fernet itself
// isn't available from the pack's Go dependencies; ciphertext here is
// AES-256-GCM under the PBKDF2-derived key instead, the closest
// authenticated-encryption equivalent, still base64-encoded and
// marker-tagged the same way.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/johnbuck/voxbridge/internal/domain"
)

const (
	// EncryptedMarker prefixes every ciphertext value produced by this
	// vault, so DecryptFields can tell tagged values from plaintext.
	EncryptedMarker = "__encrypted__:"

	keySalt       = "voxbridge_encryption_salt_v1"
	kdfIterations = 100_000
	keyLength     = 32
)

// Vault encrypts/decrypts sensitive fields within per-plugin-type configs
// and raw values such as LLMProvider API keys.
type Vault struct {
	key []byte // nil => encryption disabled (no-op passthrough)

	mu       sync.RWMutex
	registry map[string]map[string]struct{} // plugin_type -> sensitive field set
}

// defaultSensitiveFields mirrors plugins/encryption.py's SENSITIVE_FIELDS.
func defaultSensitiveFields() map[string]map[string]struct{} {
	mk := func(fields ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			set[f] = struct{}{}
		}
		return set
	}
	return map[string]map[string]struct{}{
		"discord":  mk("bot_token"),
		"n8n":      mk("webhook_url"),
		"slack":    mk("bot_token", "signing_secret", "app_token"),
		"telegram": mk("bot_token"),
		"whatsapp": mk("api_key", "phone_number"),
		"api":      mk("api_key", "api_secret", "oauth_token"),
	}
}

// New builds a Vault from the PLUGIN_ENCRYPTION_KEY environment value. An
// empty key disables encryption: New logs a warning once, EncryptFields and
// DecryptFields copy configs through unchanged (the Python
// no-op-on-missing-key policy), and EncryptValue/DecryptValue return
// domain.ErrEncryptionKeyUnset.
func New(envKey string) *Vault {
	v := &Vault{registry: defaultSensitiveFields()}
	if envKey == "" {
		slog.Warn("vault: PLUGIN_ENCRYPTION_KEY not set, storing sensitive fields in plaintext")
		return v
	}
	derived := pbkdf2.Key([]byte(envKey), []byte(keySalt), kdfIterations, keyLength, sha256.New)
	v.key = derived
	return v
}

func (v *Vault) RegisterSensitiveFields(pluginType string, fields []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	set, ok := v.registry[pluginType]
	if !ok {
		set = make(map[string]struct{})
	}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	v.registry[pluginType] = set
}

func (v *Vault) sensitiveFields(pluginType string) map[string]struct{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.registry[pluginType]
}

// IsFieldEncrypted reports whether field is sensitive for pluginType and
// value is an already-tagged string.
func (v *Vault) IsFieldEncrypted(pluginType, field string, value any) bool {
	fields := v.sensitiveFields(pluginType)
	if fields == nil {
		return false
	}
	if _, sensitive := fields[field]; !sensitive {
		return false
	}
	s, ok := value.(string)
	return ok && strings.HasPrefix(s, EncryptedMarker)
}

// EncryptFields returns a copy of config with every sensitive, non-empty,
// not-already-encrypted field replaced by its marker-tagged ciphertext.
// Fields that aren't in the registry, are empty/nil, or already tagged are
// copied through unchanged. With no key configured, the whole config is
// copied through unchanged (a warning was already logged by New).
func (v *Vault) EncryptFields(pluginType string, config map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(config))
	for k, val := range config {
		out[k] = val
	}

	fields := v.sensitiveFields(pluginType)
	if len(fields) == 0 || v.key == nil {
		return out, nil
	}

	for field := range fields {
		raw, present := config[field]
		if !present || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			continue
		}
		if strings.HasPrefix(s, EncryptedMarker) {
			continue
		}
		ciphertext, err := v.EncryptValue(s)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %q: %w", field, err)
		}
		out[field] = EncryptedMarker + ciphertext
	}
	return out, nil
}

// DecryptFields mirrors EncryptFields: every sensitive field tagged with the
// marker is decrypted in place; anything else is passed through unchanged.
// With no key configured, tagged values are returned as-is (can't decrypt).
func (v *Vault) DecryptFields(pluginType string, config map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(config))
	for k, val := range config {
		out[k] = val
	}

	fields := v.sensitiveFields(pluginType)
	if len(fields) == 0 {
		return out, nil
	}

	for field := range fields {
		raw, present := config[field]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok || !strings.HasPrefix(s, EncryptedMarker) {
			continue
		}
		if v.key == nil {
			continue
		}
		tagged := strings.TrimPrefix(s, EncryptedMarker)
		plaintext, err := v.DecryptValue(tagged)
		if err != nil {
			return nil, fmt.Errorf("decrypt field %q: %w", field, domain.ErrDecryptionFailed)
		}
		out[field] = plaintext
	}
	return out, nil
}

// EncryptValue AES-256-GCM-encrypts plaintext under the derived key,
// returning base64(nonce || ciphertext). It does not add the marker prefix;
// callers that need the tagged form (e.g. LLMProvider.APIKey at rest)
// should prepend EncryptedMarker themselves.
func (v *Vault) EncryptValue(plaintext string) (string, error) {
	if v.key == nil {
		return "", domain.ErrEncryptionKeyUnset
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptValue reverses EncryptValue, taking the untagged base64 form.
// Invalid base64, truncated ciphertext, a wrong key or tampering come back
// wrapping domain.ErrDecryptionFailed; DecryptFields reports every failure
// as domain.ErrDecryptionFailed.
func (v *Vault) DecryptValue(encoded string) (string, error) {
	if v.key == nil {
		return "", domain.ErrEncryptionKeyUnset
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", domain.ErrDecryptionFailed)
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", domain.ErrDecryptionFailed
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
