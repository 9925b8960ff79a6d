package kraken

import (
	"fmt"
	"strings"
)

// ConfigError reports a credential or client setting that can never produce a
// valid request. It is always returned before any network I/O.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kraken config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("kraken config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError covers network failures, timeouts, non-2xx statuses and
// bodies that are not a valid response envelope.
type TransportError struct {
	Method     string
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("kraken %s %s status %d: %v", e.Method, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("kraken %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SemanticError is an exchange-level rejection: the envelope carried a
// non-empty error array, regardless of the HTTP status.
type SemanticError struct {
	Endpoint string
	Messages []string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("kraken %s rejected: %s", e.Endpoint, strings.Join(e.Messages, "; "))
}

// FormatError means the envelope was accepted but the result did not have the
// shape a typed helper expects.
type FormatError struct {
	Endpoint string
	Detail   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("kraken %s: unexpected result: %s", e.Endpoint, e.Detail)
}
