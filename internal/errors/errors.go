package errors

import (
	"errors"
	"fmt"
)

// RecdexError is the structured error type for recdex.
// It carries a stable code so callers can branch on failure kind without
// string matching, plus context for logging and user presentation.
type RecdexError struct {
	// Code is the unique error code (e.g., "ERR_401_FLATTEN_UNSUPPORTED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *RecdexError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RecdexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work against the sentinel values below.
func (e *RecdexError) Is(target error) bool {
	if t, ok := target.(*RecdexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RecdexError) WithDetail(key, value string) *RecdexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *RecdexError) WithSuggestion(suggestion string) *RecdexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RecdexError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *RecdexError {
	return &RecdexError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a RecdexError from an existing error.
// The error's message becomes the RecdexError message.
func Wrap(code string, err error) *RecdexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrFlatten        = &RecdexError{Code: ErrCodeFlatten}
	ErrSchemaConflict = &RecdexError{Code: ErrCodeSchemaConflict}
	ErrEngine         = &RecdexError{Code: ErrCodeEngine}
	ErrQuerySetup     = &RecdexError{Code: ErrCodeInvalidQuery}
	ErrInvalidLimit   = &RecdexError{Code: ErrCodeInvalidLimit}
	ErrStoreClosed    = &RecdexError{Code: ErrCodeStoreClosed}
	ErrDataDirLocked  = &RecdexError{Code: ErrCodeDataDirLocked}
)

// FlattenError reports a record shape the flattener cannot represent.
func FlattenError(path, message string) *RecdexError {
	return New(ErrCodeFlatten, message, nil).WithDetail("path", path)
}

// SchemaConflictError reports a path observed with two kinds under one fingerprint.
func SchemaConflictError(path, message string) *RecdexError {
	return New(ErrCodeSchemaConflict, message, nil).WithDetail("path", path)
}

// EngineError wraps a failure from the index engine verbatim.
func EngineError(op string, cause error) *RecdexError {
	if cause == nil {
		return nil
	}
	return New(ErrCodeEngine, op+" failed", cause).WithDetail("op", op)
}

// QuerySetupError reports a query string the engine could not parse.
func QuerySetupError(query string, cause error) *RecdexError {
	return New(ErrCodeInvalidQuery, "invalid query", cause).
		WithDetail("query", query).
		WithSuggestion("check the query syntax, e.g. 'msg:hello' or 'props.id:>=2'")
}

// CorruptIndexError reports an on-disk index that cannot be trusted.
func CorruptIndexError(path string, cause error) *RecdexError {
	return New(ErrCodeCorruptIndex, "index is corrupt", cause).
		WithDetail("path", path).
		WithSuggestion("move the index directory aside and re-ingest the records")
}

// DataDirError reports a data directory that cannot be created or read.
func DataDirError(dir string, cause error) *RecdexError {
	return New(ErrCodeDataDir, "data directory unavailable", cause).WithDetail("dir", dir)
}

// DataDirLockedError reports a data directory owned by another process.
func DataDirLockedError(dir string) *RecdexError {
	return New(ErrCodeDataDirLocked, "data directory is in use by another process", nil).
		WithDetail("dir", dir).
		WithSuggestion("stop the other recdex process or pass a different --data-dir")
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RecdexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *RecdexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RecdexError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var re *RecdexError
	if errors.As(err, &re) {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first RecdexError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var re *RecdexError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from the first RecdexError in the chain.
func GetCategory(err error) Category {
	var re *RecdexError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}
