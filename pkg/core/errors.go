package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrStreamClosed     = errors.New("stream closed")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNoResponseStream = errors.New("runtime returned no response stream")
)

// credentialExpiredMarker is the substring the upstream runtime embeds in
// failure text when the caller's security token has lapsed. The runtime
// exposes no structured code for it, so substring matching is the only way
// to tell a refreshable auth failure from a generic transport failure.
const credentialExpiredMarker = "expiredtoken"

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is lets callers match any configuration failure with
// errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// TransportError represents a failure of the underlying stream transport.
// It is fatal to the current invocation; the engine surfaces exactly one
// error event followed by a completion event and never retries internally.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error in %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CredentialError represents an expired-credential condition, distinguished
// from a generic TransportError because the caller must prompt
// re-authentication rather than retry.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials expired: %v", e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// IsCredentialExpired reports whether err carries the upstream
// expired-credential marker in its failure text.
func IsCredentialExpired(err error) bool {
	if err == nil {
		return false
	}
	var credErr *CredentialError
	if errors.As(err, &credErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), credentialExpiredMarker)
}
