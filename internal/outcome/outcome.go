// Package outcome carries typed business-rule failures between the service
// layer and its callers. Expected violations (missing rows, stock gates,
// illegal state transitions) are returned as *Error values and inspected by
// kind; infrastructure failures keep flowing as ordinary wrapped errors.
package outcome

import (
	"errors"
	"fmt"
)

// Kind identifies a class of business failure.
type Kind string

const (
	NotFound            Kind = "NOT_FOUND"
	DataIsNull          Kind = "DATA_IS_NULL"
	IdMismatch          Kind = "ID_MISMATCH"
	IncorrectFormatData Kind = "INCORRECT_FORMAT_DATA"
	DuplicateData       Kind = "DUPLICATE_DATA"
	StockUnavailable    Kind = "STOCK_UNAVAILABLE"
	NoRowsAffected      Kind = "NO_ROWS_AFFECTED"
	OrderFinishedOrSent Kind = "ORDER_FINISHED_OR_SENT"
	OrderNotSent        Kind = "ORDER_NOT_SENT"
	ProductNotFound     Kind = "PRODUCT_NOT_FOUND"
	ProductsNotFound    Kind = "PRODUCTS_NOT_FOUND"
	ConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
)

// Error is a business outcome, not an infrastructure failure. Fields holds
// field-level detail for validation kinds.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an outcome error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalid creates an IncorrectFormatData error carrying field-level details.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: IncorrectFormatData, Message: "validation failed", Fields: fields}
}

// KindOf returns the outcome kind of err, or "" when err is not a business
// outcome.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}

// Is reports whether err is a business outcome of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
