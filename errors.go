// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"fmt"
)

// Common device errors.
var (
	// ErrBackendUnavailable is returned when no backend could be constructed
	// and initialized.
	ErrBackendUnavailable = errors.New("gfx: no backend available")

	// ErrNotInitialized is returned when an object is used before Initialize.
	ErrNotInitialized = errors.New("gfx: object not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("gfx: object already initialized")

	// ErrDestroyed is returned when an object is used or destroyed after Destroy.
	ErrDestroyed = errors.New("gfx: object already destroyed")

	// ErrTypeMismatch is returned when an object of the wrong kind, or from
	// the wrong decoration layer, is passed to a call.
	ErrTypeMismatch = errors.New("gfx: object type mismatch")

	// ErrNotOwner is returned when destroying an object owned by another object.
	ErrNotOwner = errors.New("gfx: object is owned by another object")

	// ErrInvalidArgument is returned for malformed call arguments.
	ErrInvalidArgument = errors.New("gfx: invalid argument")

	// ErrDeviceLost is returned when the backend device stopped working.
	// Recovery (recreating the device) is left to the caller.
	ErrDeviceLost = errors.New("gfx: device lost")

	// ErrContractViolation marks every misuse detected by the validator.
	ErrContractViolation = errors.New("gfx: contract violation")
)

// ContractError reports a violated usage invariant together with the
// offending object.
type ContractError struct {
	Op     string
	Object ObjectType
	ID     uint32
	Err    error
}

func (e *ContractError) Error() string {
	if e.Object == ObjectUnknown {
		return fmt.Sprintf("gfx: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gfx: %s on %s #%d: %v", e.Op, e.Object, e.ID, e.Err)
}

// Unwrap lets errors.Is match both ErrContractViolation and the specific cause.
func (e *ContractError) Unwrap() []error {
	return []error{ErrContractViolation, e.Err}
}

// Violation builds a ContractError for obj. obj may be nil.
func Violation(op string, obj Handle, err error) *ContractError {
	ce := &ContractError{Op: op, Err: err}
	if obj != nil {
		ce.Object = obj.ObjectType()
		ce.ID = obj.TypedID()
	}
	return ce
}
