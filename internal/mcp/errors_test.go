package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	// Given: an MCP error wrapped by a caller
	orig := NewInvalidParamsError("bad limit")
	err := fmt.Errorf("tool failed: %w", orig)

	// When: mapping the error
	result := MapError(err)

	// Then: the original is returned unchanged
	assert.Same(t, orig, result)
}

func TestMapError_ContextErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"canceled", context.Canceled, "canceled"},
		{"wrapped deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, ErrCodeTimeout, result.Code)
			assert.Contains(t, result.Message, tt.want)
		})
	}
}

func TestMapError_RecdexErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"query syntax", rxerrors.QuerySetupError("msg:(", errors.New("unexpected end")), ErrCodeInvalidParams},
		{"limit", rxerrors.New(rxerrors.ErrCodeInvalidLimit, "limit must be at least 1, got 0", nil), ErrCodeInvalidParams},
		{"input", rxerrors.ValidationError("record must be a JSON object", nil), ErrCodeInvalidParams},
		{"flatten", rxerrors.FlattenError("a", "unsupported kind chan"), ErrCodeRecordRejected},
		{"schema conflict", rxerrors.SchemaConflictError("a", "kind numeric_signed conflicts with text"), ErrCodeRecordRejected},
		{"closed", rxerrors.ErrStoreClosed, ErrCodeIndexUnavailable},
		{"corrupt", rxerrors.CorruptIndexError("/data/x.bleve", errors.New("no meta")), ErrCodeIndexUnavailable},
		{"engine", rxerrors.EngineError("search", errors.New("boom")), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(fmt.Errorf("wrapped: %w", tt.err))
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Code)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestMapError_IncludesCause(t *testing.T) {
	// Given: an engine error with a cause
	err := rxerrors.EngineError("search", errors.New("segment read failed"))

	// When: mapping the error
	result := MapError(err)

	// Then: the cause is visible to the client
	require.NotNil(t, result)
	assert.Contains(t, result.Message, "segment read failed")
}

func TestMapError_UnknownError(t *testing.T) {
	result := MapError(errors.New("something odd"))
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Equal(t, "Internal server error.", result.Message)
}

func TestMapError_ToolNotFound(t *testing.T) {
	result := MapError(ErrToolNotFound)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("grep")
	assert.Equal(t, "MCP error -32601: Tool 'grep' not found.", err.Error())
}
