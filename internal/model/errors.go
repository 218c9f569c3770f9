// Package model holds the client's data types and the error taxonomy shared
// by every controller.
//
// Errors are sentinels wrapped with context using fmt.Errorf("%w") and
// matched with errors.Is:
//
//	if err := catalog.Select(ctx, id); errors.Is(err, model.ErrNotFound) {
//	    _ = catalog.Refresh(ctx)
//	}
package model

import "errors"

var (
	// ErrAuthFailure indicates the backend rejected a login or registration.
	// The auth flow is left in a retryable state.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrFetchFailure indicates a request to the backend failed, either at
	// the transport level or with a non-success status. Caches keep their
	// previous value.
	ErrFetchFailure = errors.New("fetch failed")

	// ErrNotFound indicates a course id that is not in the current cache.
	// Refreshing the catalog is the expected recovery.
	ErrNotFound = errors.New("not found")

	// ErrAuthorizationDenied indicates a write attempted by a session whose
	// role is not allowed to make it. No request is issued.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrNoSelection indicates a module operation with no course selected.
	ErrNoSelection = errors.New("no course selected")

	// ErrInvalidDraft indicates a draft missing a required field.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrBusy indicates the auth flow is submitting and cannot change mode or
	// accept another submission.
	ErrBusy = errors.New("submission in progress")
)
