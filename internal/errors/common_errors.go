package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeExport     ErrorType = "EXPORT"
)

// AppError is a classified failure inside the pipeline or its exporters
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a diagnostic key, such as the file path, and returns e
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// SchemaError reports a missing or malformed required field of an input table.
// It is fatal for a pipeline run.
type SchemaError struct {
	Table  string
	Column string
	Row    int // 1-based data row, 0 when the column itself is missing
	Value  string
	Cause  error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("[%s] table %q: missing required column %q", ErrTypeSchema, e.Table, e.Column)
	}
	msg := fmt.Sprintf("[%s] table %q: row %d: malformed %q value %q", ErrTypeSchema, e.Table, e.Row, e.Column, e.Value)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the parse failure behind a malformed value
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// NewMissingColumnError reports a required column absent from a table header
func NewMissingColumnError(table, column string) *SchemaError {
	return &SchemaError{Table: table, Column: column}
}

// NewMalformedValueError reports a value that could not be parsed
func NewMalformedValueError(table, column string, row int, value string, cause error) *SchemaError {
	return &SchemaError{Table: table, Column: column, Row: row, Value: value, Cause: cause}
}

// Constructors used across the pipeline. Only NotFound and Validation map to 4xx
// responses; the rest surface as 500 when they reach a handler.

func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, resource+" not found", nil)
}

func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewExportError wraps a failure writing the CSV, workbook or sheet
func NewExportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeExport, message, cause)
}
