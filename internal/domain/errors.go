package domain

import (
	"errors"
	"fmt"
)

// Category sentinels — use with NewDomainError for operation-scoped errors.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrProviderError    = fmt.Errorf("provider error")
)

// Sentinel errors for the routing and session layers.
var (
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrAgentNotFound    = fmt.Errorf("agent not found")
	ErrEmptyMessage     = fmt.Errorf("message text is empty")
	ErrMessageTooLong   = fmt.Errorf("message text exceeds size limit")
	ErrInferenceFailed  = fmt.Errorf("inference call failed")
	ErrStoreUnavailable = fmt.Errorf("session store unavailable")
	ErrNotifyFailed     = fmt.Errorf("notification publish failed")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Orchestrator.Route")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionExpired   ErrorCode = "SESSION_EXPIRED"
	CodeAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	CodeEmptyMessage     ErrorCode = "EMPTY_MESSAGE"
	CodeMessageTooLong   ErrorCode = "MESSAGE_TOO_LONG"
	CodeInferenceFailed  ErrorCode = "INFERENCE_FAILED"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	CodeNotifyFailed     ErrorCode = "NOTIFY_FAILED"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrInvalidInput:     CodeInvalidInput,
	ErrTimeout:          CodeTimeout,
	ErrPermissionDenied: CodePermissionDenied,
	ErrProviderError:    CodeProviderError,
	ErrSessionNotFound:  CodeSessionNotFound,
	ErrSessionExpired:   CodeSessionExpired,
	ErrAgentNotFound:    CodeAgentNotFound,
	ErrEmptyMessage:     CodeEmptyMessage,
	ErrMessageTooLong:   CodeMessageTooLong,
	ErrInferenceFailed:  CodeInferenceFailed,
	ErrStoreUnavailable: CodeStoreUnavailable,
	ErrNotifyFailed:     CodeNotifyFailed,
	ErrConfigLoad:       CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and walks the chain with errors.Is.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// IsValidationError reports whether err should surface to the caller as a
// client-facing validation error rather than an internal failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAgentNotFound)
}
