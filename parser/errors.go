package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrNotProductPage reports a detail page without the product container.
	ErrNotProductPage = errors.New("parser: product container not found")
	// ErrMissingField reports a required block absent from the product container.
	ErrMissingField = errors.New("parser: required field missing")
	// ErrMalformedPageMarker reports a last-page marker that is not an integer.
	ErrMalformedPageMarker = errors.New("parser: malformed last page marker")
	// ErrMalformedPrice reports price text that is neither empty nor an integer.
	ErrMalformedPrice = errors.New("parser: malformed price")
)

// FieldError names the field whose extraction failed.
type FieldError struct {
	Field    string
	Selector string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (%s): %v", e.Field, e.Selector, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PriceError carries the price text that failed to parse.
type PriceError struct {
	Text string
	Err  error
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("%v: %q: %v", ErrMalformedPrice, e.Text, e.Err)
}

func (e *PriceError) Unwrap() []error {
	return []error{ErrMalformedPrice, e.Err}
}

// IsDiscard reports whether err only voids the current record.
// Any other extraction error is fatal for the run.
func IsDiscard(err error) bool {
	return errors.Is(err, ErrNotProductPage) || errors.Is(err, ErrMissingField)
}

// DiscardReason maps a discard error to a short label for logs and metrics.
func DiscardReason(err error) string {
	if errors.Is(err, ErrNotProductPage) {
		return "not_product_page"
	}
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return "missing_" + fieldErr.Field
	}
	return "other"
}
