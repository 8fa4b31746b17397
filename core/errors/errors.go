// Package errors provides standardized error types and helpers for the xats-go codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidDocument indicates a structurally invalid canonical document
	ErrInvalidDocument = errors.New("invalid document")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// DocumentStructureError reports a canonical document missing a required
// top-level field. It is fatal on render: producing output for a
// structurally invalid document is meaningless.
type DocumentStructureError struct {
	Field   string // Missing or malformed field (e.g., "bodyMatter")
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *DocumentStructureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid document: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid document: missing required field %q", e.Field)
}

func (e *DocumentStructureError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidDocument
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "html", "docx")
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// FormatValidationError reports that external content does not conform to
// its own format's structural rules (e.g., a .docx that is not a zip).
type FormatValidationError struct {
	Format  string // Target format name
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *FormatValidationError) Error() string {
	return fmt.Sprintf("invalid %s content: %s", e.Format, e.Message)
}

func (e *FormatValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// PluginError represents a plugin lifecycle failure. It is scoped to the
// offending plugin and never corrupts other plugins' state.
type PluginError struct {
	PluginID  string // Plugin identifier
	Operation string // Operation that failed (e.g., "register", "initialize")
	Message   string // Error details
	Err       error  // Underlying error, if any
}

func (e *PluginError) Error() string {
	if e.PluginID != "" {
		return fmt.Sprintf("plugin %s: %s failed: %s", e.PluginID, e.Operation, e.Message)
	}
	return fmt.Sprintf("plugin %s failed: %s", e.Operation, e.Message)
}

func (e *PluginError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "plugin", "renderer", "format")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewDocumentStructure creates a DocumentStructureError for a missing field
func NewDocumentStructure(field string) *DocumentStructureError {
	return &DocumentStructureError{Field: field}
}

// NewParse creates a ParseError
func NewParse(format, message string) *ParseError {
	return &ParseError{Format: format, Message: message}
}

// NewFormatValidation creates a FormatValidationError
func NewFormatValidation(format, message string) *FormatValidationError {
	return &FormatValidationError{Format: format, Message: message}
}

// NewPlugin creates a PluginError
func NewPlugin(pluginID, operation, message string) *PluginError {
	return &PluginError{PluginID: pluginID, Operation: operation, Message: message}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
