package services

import (
	"errors"
	"fmt"
)

var ErrInvoiceNotFound = errors.New("vendor invoice not found")

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Advisory is a failed reconciliation step that does not fail the save it belongs to.
type Advisory struct {
	Step        string
	InvoiceUUID string
	Err         error
}

func (a *Advisory) Error() string {
	return fmt.Sprintf("%s (invoice %s): %v", a.Step, a.InvoiceUUID, a.Err)
}

func (a *Advisory) Unwrap() error {
	return a.Err
}

// Advisory steps.
const (
	StepAllocate           = "allocate_advance_payments"
	StepReleaseAllocations = "release_advance_payments"
	StepClearFamily        = "clear_child_family"
	StepClearAdjustments   = "clear_adjusted_cost_codes"
	StepAllocationLock     = "allocation_lock"
	StepCacheInvalidate    = "cache_invalidate"
)
