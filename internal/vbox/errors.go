package vbox

import (
	"errors"
	"fmt"
)

// NotFoundError reports a VM name absent from the hypervisor inventory.
// This is distinct from a VM that exists and is powered off: the name is
// unknown to VirtualBox (or the tool itself failed to list anything), so
// retrying without operator intervention cannot succeed.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("VM %q not found in VBoxManage inventory", e.Name)
}

// RetryableError wraps a transient failure: the tool could not be
// launched, timed out, or exited nonzero for a reason that may clear on a
// later attempt (VM locked, session busy).
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err classifies as a missing-VM failure.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether err classifies as transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
