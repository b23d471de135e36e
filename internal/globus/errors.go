package globus

import "errors"

// Sentinel errors for session failures.
var (
	// ErrInteractiveRequired means a login is needed but stdout is not a
	// terminal, so no flow can be driven. The user must re-run interactively.
	ErrInteractiveRequired = errors.New("globus: interactive session required for login")

	// ErrAuthFailure means the provider-side login flow failed. Deliberately
	// generic: provider detail is logged at debug level, never surfaced.
	ErrAuthFailure = errors.New("globus: authentication failed")

	// ErrNotLoggedIn means no usable session exists in the store.
	ErrNotLoggedIn = errors.New("globus: not logged in")
)
