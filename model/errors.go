package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violated")
	ErrTransaction  = errors.New("transaction failed")
)

// Validationf returns an ErrValidation carrying a caller-facing message.
func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an ErrNotFound carrying a caller-facing message.
func NotFoundf(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflictf returns an ErrConflict carrying a caller-facing message.
func Conflictf(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

const (
	ReasonUnavailable       = "not found or inactive"
	ReasonInsufficientStock = "insufficient stock"
)

// ProductError reports a purchase line that cannot be fulfilled.
type ProductError struct {
	ProductID int64
	Reason    string
}

func (e *ProductError) Error() string {
	if e.Reason == ReasonInsufficientStock {
		return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
	}
	return fmt.Sprintf("product %d %s", e.ProductID, e.Reason)
}

func (e *ProductError) Unwrap() error { return ErrBusinessRule }
