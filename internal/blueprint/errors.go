package blueprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed marks raw output that is not a JSON document.
	ErrMalformed = errors.New("malformed document")
	// ErrInvalid marks a well-formed document that breaks a model invariant.
	ErrInvalid = errors.New("invalid document")
)

// Code classifies a single violation.
type Code string

const (
	CodeUnknownBlockType    Code = "unknown_block_type"
	CodeMissingField        Code = "missing_field"
	CodeInvalidValue        Code = "invalid_value"
	CodeTitleCount          Code = "title_count"
	CodeNumberFormat        Code = "number_format"
	CodeMissingOptions      Code = "missing_options"
	CodeNotAllowed          Code = "not_allowed"
	CodeDegenerate          Code = "degenerate_document"
	CodeEmptyColumn         Code = "empty_column"
	CodeTooFewColumns       Code = "too_few_columns"
	CodeUnsupportedProperty Code = "unsupported_property_type"
)

// Violation is one broken invariant at a location in the document.
type Violation struct {
	Path    string `json:"path"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid document (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Has reports whether any violation carries the given code.
func (e *ValidationError) Has(code Code) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// MalformedDocumentError reports raw text that could not be decoded as JSON.
type MalformedDocumentError struct {
	Offset int64
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("malformed document at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() []error { return []error{ErrMalformed, e.Err} }

// Describe renders a parse or validation error as the compact JSON payload
// handed back to the generation service on retry.
func Describe(err error) string {
	var payload struct {
		Error      string      `json:"error"`
		Message    string      `json:"message"`
		Violations []Violation `json:"violations,omitempty"`
	}
	payload.Message = err.Error()

	var verr *ValidationError
	var merr *MalformedDocumentError
	switch {
	case errors.As(err, &verr):
		payload.Error = "validation_error"
		payload.Violations = verr.Violations
	case errors.As(err, &merr):
		payload.Error = "malformed_document"
	default:
		payload.Error = "error"
	}

	out, mErr := json.Marshal(payload)
	if mErr != nil {
		return err.Error()
	}
	return string(out)
}
