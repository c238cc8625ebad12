// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"strings"
)

// Render graph errors.
var (
	// ErrState is returned when a call is made in the wrong frame state.
	ErrState = errors.New("render: invalid pipeline state")

	// ErrDuplicateResource is returned when a resource name is registered twice.
	ErrDuplicateResource = errors.New("render: duplicate resource")

	// ErrUnknownResource is returned when a view or pair names a resource
	// that was not declared.
	ErrUnknownResource = errors.New("render: unknown resource")

	// ErrInvalidView is returned for a view that cannot be used as declared.
	ErrInvalidView = errors.New("render: invalid view")

	// ErrIncompatible is returned when two resources of a move or copy do
	// not match.
	ErrIncompatible = errors.New("render: incompatible resources")

	// ErrCycle is matched by every *CycleError.
	ErrCycle = errors.New("render: dependency cycle")

	// ErrNoLayout is returned when no descriptor set layout exists for a
	// shader and frequency.
	ErrNoLayout = errors.New("render: no descriptor set layout")
)

// CycleError reports passes that depend on each other.
type CycleError struct {
	// Passes lists the cycle in dependency order; the first pass depends on
	// the last.
	Passes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("render: dependency cycle: %s -> %s", strings.Join(e.Passes, " -> "), e.Passes[0])
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// PassError wraps a declaration error with the pass it was made on.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string { return fmt.Sprintf("render: pass %q: %v", e.Pass, e.Err) }

func (e *PassError) Unwrap() error { return e.Err }
