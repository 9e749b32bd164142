package types

import (
	"errors"
	"fmt"
)

// Config validation errors.
var (
	ErrBackendEmpty          = errors.New("backend must not be empty")
	ErrBackendUnknown        = errors.New("unknown backend")
	ErrDriverUnknown         = errors.New("unknown sqlite driver")
	ErrRepresentationUnknown = errors.New("unknown tree representation")
)

// Lookup errors. The specific errors wrap ErrNotFound so callers can test
// for either.
var (
	ErrNotFound       = errors.New("not found")
	ErrNodeNotFound   = fmt.Errorf("node %w", ErrNotFound)
	ErrParentNotFound = fmt.Errorf("parent node %w", ErrNotFound)
	ErrTitleNotFound  = fmt.Errorf("title %w", ErrNotFound)
)

// Structural precondition errors. Both wrap ErrInvariantViolation.
var (
	ErrInvariantViolation = errors.New("closure invariant violation")
	ErrNotDetached        = fmt.Errorf("node is not the root of a detached subtree: %w", ErrInvariantViolation)
	ErrCycle              = fmt.Errorf("new parent lies inside the subtree: %w", ErrInvariantViolation)
)

// Lifecycle and storage errors.
var (
	ErrStorage         = errors.New("storage failure")
	ErrClosed          = errors.New("tree is closed")
	ErrNotEmpty        = errors.New("tree is not empty")
	ErrAlreadyAttached = errors.New("backend already attached")

	// ErrTxnTooLarge reports a mutation whose writes exceed what the storage
	// engine accepts in one transaction. Nothing is written.
	ErrTxnTooLarge = fmt.Errorf("transaction too large: %w", ErrStorage)
)
