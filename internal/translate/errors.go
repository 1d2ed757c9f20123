package translate

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// QueryError is a query failure surfaced to the caller.
//
// Validation codes abort translation immediately and are never retried;
// CodeStorage wraps a failure of the storage layer during execution.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is the caller-facing description.
	Message string

	// Resource names the resource involved, when there is one.
	Resource string

	// Details contains additional context.
	Details map[string]string

	cause error
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// CodeSchemaValidation: the document does not match the query schema.
	CodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION"

	// CodeInvalidCondition: a condition names a missing column or uses an
	// operator or value the column's type does not support.
	CodeInvalidCondition ErrorCode = "INVALID_CONDITION"

	// CodeTooManyResources: more resources than the configured maximum.
	CodeTooManyResources ErrorCode = "TOO_MANY_RESOURCES"

	// CodeUnknownResource: a resource has no datastore table.
	CodeUnknownResource ErrorCode = "UNKNOWN_RESOURCE"

	// CodeInvalidProperty: a projected property does not resolve.
	CodeInvalidProperty ErrorCode = "INVALID_PROPERTY"

	// CodeInvalidSort: a sort property does not resolve.
	CodeInvalidSort ErrorCode = "INVALID_SORT"

	// CodeInvalidJoin: a join is missing, duplicated or unresolvable.
	CodeInvalidJoin ErrorCode = "INVALID_JOIN"

	// CodeStorage: the storage layer failed.
	CodeStorage ErrorCode = "STORAGE"
)

// TooManyResourcesMessage is the message of every CodeTooManyResources error.
const TooManyResourcesMessage = "Too many resources specified."

// Error returns the caller-facing message.
func (e *QueryError) Error() string {
	return e.Message
}

// Unwrap returns the underlying storage error, if any.
func (e *QueryError) Unwrap() error {
	return e.cause
}

// IsValidation reports whether the error was caused by the request rather
// than the storage layer.
func (e *QueryError) IsValidation() bool {
	return e.Code != CodeStorage
}

// CodeOf returns the code of a QueryError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsInvalidCondition returns true if err is an invalid-condition error.
func IsInvalidCondition(err error) bool {
	return CodeOf(err) == CodeInvalidCondition
}

// IsTooManyResources returns true if err is a too-many-resources error.
func IsTooManyResources(err error) bool {
	return CodeOf(err) == CodeTooManyResources
}

// NewTooManyResourcesError creates the error for a document over the limit.
func NewTooManyResourcesError(count, max int) *QueryError {
	return &QueryError{
		Code:    CodeTooManyResources,
		Message: TooManyResourcesMessage,
		Details: map[string]string{
			"resources":     fmt.Sprintf("%d", count),
			"max_resources": fmt.Sprintf("%d", max),
		},
	}
}

// NewSchemaValidationError creates the error for a document rejected by
// the query schema. Violations are joined into Details["errors"].
func NewSchemaValidationError(violations []string) *QueryError {
	return &QueryError{
		Code:    CodeSchemaValidation,
		Message: "JSON Schema validation failed.",
		Details: map[string]string{"errors": strings.Join(violations, "; ")},
	}
}

// NewInvalidConditionError creates an invalid-condition error. The message
// always starts with "Invalid condition".
func NewInvalidConditionError(resource, format string, args ...any) *QueryError {
	return &QueryError{
		Code:     CodeInvalidCondition,
		Message:  "Invalid condition: " + fmt.Sprintf(format, args...),
		Resource: resource,
	}
}

// NewStorageError wraps a storage failure.
func NewStorageError(resource string, err error) *QueryError {
	return &QueryError{
		Code:     CodeStorage,
		Message:  fmt.Sprintf("Storage error: %v", err),
		Resource: resource,
		cause:    err,
	}
}

func newError(code ErrorCode, resource, format string, args ...any) *QueryError {
	return &QueryError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Resource: resource,
	}
}
