package common

import "errors"

var (
	// ErrNilArguments is a common error response to highlight that nils were
	// passed in when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrInvalidOrder occurs when a malformed order is submitted. The order is
	// rejected synchronously and never enters any book
	ErrInvalidOrder = errors.New("invalid order")
	// ErrConfiguration occurs when a plugin is constructed with bad
	// parameters. It is raised before any order flows, never mid-simulation
	ErrConfiguration = errors.New("invalid configuration")
	// ErrIllegalState occurs on engine misuse, such as submitting an order
	// before Start or calling Start twice
	ErrIllegalState = errors.New("illegal engine state")
)
