// Package errors provides structured error handling for recdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (data directory, on-disk indexes)
//   - 4XX: Input errors (records that cannot be flattened, bad queries)
//   - 5XX: Internal and engine errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates data directory and on-disk index errors.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates engine failures and integrity violations.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates a data-integrity problem; the operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeDataDir       = "ERR_201_DATA_DIR"
	ErrCodeCorruptIndex  = "ERR_205_CORRUPT_INDEX"
	ErrCodeDataDirLocked = "ERR_207_DATA_DIR_LOCKED"

	// Validation errors (400-499)
	ErrCodeFlatten      = "ERR_401_FLATTEN_UNSUPPORTED"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidLimit = "ERR_404_INVALID_LIMIT"
	ErrCodeInvalidInput = "ERR_405_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeSchemaConflict = "ERR_502_SCHEMA_CONFLICT"
	ErrCodeEngine         = "ERR_503_ENGINE"
	ErrCodeStoreClosed    = "ERR_504_STORE_CLOSED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeSchemaConflict:
		return SeverityFatal
	case ErrCodeDataDirLocked:
		return SeverityWarning
	}
	return SeverityError
}
