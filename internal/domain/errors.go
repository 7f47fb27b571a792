package domain

import "errors"

// Sentinel errors returned by repositories and domain-level validation.
// External failures on the real-time path are never propagated this way —
// see internal/ports.ErrorEvent — these are for programmer errors and
// repository-layer failures that calling code decides how to react to.
var (
	ErrAgentNotFound           = errors.New("agent not found")
	ErrSessionNotFound         = errors.New("session not found")
	ErrMessageNotFound         = errors.New("message not found")
	ErrUserFactNotFound        = errors.New("user fact not found")
	ErrExtractionTaskNotFound  = errors.New("extraction task not found")
	ErrLLMProviderNotFound     = errors.New("llm provider not found")

	ErrInvalidSessionState = errors.New("invalid session state transition")
	ErrSessionDegraded     = errors.New("session is degraded")

	ErrDecryptionFailed = errors.New("decryption failed: wrong encryption key?")
	ErrEncryptionKeyUnset = errors.New("encryption key not configured")

	ErrCacheEntryExpired = errors.New("cached context expired")

	ErrCircuitOpen = errors.New("memory error guard is open")

	ErrPluginNotRegistered = errors.New("plugin type not registered")
	ErrPluginDisabled      = errors.New("plugin is disabled")
	ErrPluginNotFound      = errors.New("plugin not active for this agent")
)

// Error wraps a lower-level error with a stable code and human-readable
// message, the way the teacher's DomainError does.
type Error struct {
	Err     error
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}
