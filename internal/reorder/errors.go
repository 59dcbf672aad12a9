package reorder

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorizes engine errors.
type Code string

const (
	// CodeInvalidArgument indicates a missing or malformed parameter.
	// Detected before the store is touched.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeUnsupportedResource indicates a table name absent from the registry.
	CodeUnsupportedResource Code = "UNSUPPORTED_RESOURCE"

	// CodeNotFound indicates the source or target record does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStoreFailure indicates the store or its transaction failed.
	CodeStoreFailure Code = "STORE_FAILURE"

	// CodeRebalanceRequired indicates no integer gap is left at the requested
	// position. The scope must be rebalanced before the move can succeed.
	CodeRebalanceRequired Code = "REBALANCE_REQUIRED"
)

// Error is the structured error returned by every engine operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Table is the requested table name, if known.
	Table string

	// ID is the record involved (NotFound, RebalanceRequired), or 0.
	ID int64

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" && e.ID != 0 {
		msg = fmt.Sprintf("%s (table=%s, id=%d)", msg, e.Table, e.ID)
	} else if e.Table != "" {
		msg = fmt.Sprintf("%s (table=%s)", msg, e.Table)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsClientError reports whether err was caused by the request rather than
// the store. Client errors are not worth retrying unchanged.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeUnsupportedResource, CodeNotFound, CodeRebalanceRequired:
		return true
	}
	return false
}

// IsNotFound reports whether err is a NotFound engine error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsRebalanceRequired reports whether err asks the caller to rebalance.
func IsRebalanceRequired(err error) bool {
	return CodeOf(err) == CodeRebalanceRequired
}

// HTTPStatus maps err to a response status. Errors that are not engine
// errors map to 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnsupportedResource, CodeNotFound:
		return http.StatusNotFound
	case CodeRebalanceRequired:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func invalidArgument(table, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...), Table: table}
}

func invalidField(table string, err error) *Error {
	return &Error{Code: CodeInvalidArgument, Message: "invalid field", Table: table, Err: err}
}

func unsupportedResource(table string, err error) *Error {
	return &Error{Code: CodeUnsupportedResource, Message: "table is not orderable", Table: table, Err: err}
}

func notFound(table, role string, id int64) *Error {
	return &Error{Code: CodeNotFound, Message: role + " record not found", Table: table, ID: id}
}

func storeFailure(table, step string, err error) *Error {
	return &Error{Code: CodeStoreFailure, Message: step, Table: table, Err: err}
}

func rebalanceRequired(table string, id int64, format string, args ...any) *Error {
	return &Error{Code: CodeRebalanceRequired, Message: fmt.Sprintf(format, args...), Table: table, ID: id}
}

// InvalidArgumentf builds an INVALID_ARGUMENT error for callers that parse
// requests before handing them to the engine.
func InvalidArgumentf(format string, args ...any) *Error {
	return invalidArgument("", format, args...)
}
