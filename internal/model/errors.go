package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConflictingRegularisation indicates an expense line regularised by more
	// than one active reconciliation.
	ErrConflictingRegularisation = errors.New("expense line regularised by more than one active reconciliation")
	// ErrInvalidTransition indicates a wizard action that is not allowed in its
	// current state.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// ValidationError reports a missing or malformed input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientBalanceError is returned by admission control when a requested
// amount exceeds the available balance.
type InsufficientBalanceError struct {
	BudgetLineID int64
	Available    int64
	Requested    int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on budget line %d: available %d, requested %d",
		e.BudgetLineID, e.Available, e.Requested)
}

// NotFoundError reports a referenced entity that is missing or no longer active.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// NotFound is shorthand for a *NotFoundError keyed by an integer id.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("#%d", id)}
}

// TxError wraps a store failure during a multi-step commit. The whole
// transaction was rolled back.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string { return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err) }

func (e *TxError) Unwrap() error { return e.Err }

// IsValidation, IsNotFound and IsInsufficient classify workflow errors.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInsufficient(err error) bool {
	var ib *InsufficientBalanceError
	return errors.As(err, &ib)
}
