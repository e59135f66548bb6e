// Package mcp implements the Model Context Protocol (MCP) server for recdex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// Custom MCP error codes for recdex.
const (
	// ErrCodeIndexUnavailable indicates an index is corrupt or closed.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeRecordRejected indicates a record could not be indexed.
	ErrCodeRecordRejected = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var re *rxerrors.RecdexError
	if errors.As(err, &re) {
		return mapRecdexError(re)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapRecdexError(re *rxerrors.RecdexError) *MCPError {
	message := re.Message
	if message == "" {
		message = re.Code
	}
	if re.Cause != nil && re.Cause.Error() != re.Message {
		message = fmt.Sprintf("%s: %v", message, re.Cause)
	}
	if re.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", message, re.Suggestion)
	}

	switch re.Code {
	case rxerrors.ErrCodeInvalidQuery, rxerrors.ErrCodeInvalidLimit, rxerrors.ErrCodeInvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case rxerrors.ErrCodeFlatten, rxerrors.ErrCodeSchemaConflict:
		return &MCPError{Code: ErrCodeRecordRejected, Message: message}
	case rxerrors.ErrCodeCorruptIndex, rxerrors.ErrCodeStoreClosed:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	}

	if re.Category == rxerrors.CategoryValidation {
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}
