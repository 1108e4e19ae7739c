// Package services defines the business logic for the intake pipeline:
// draft lifecycle, step progression, and submission. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. Pipeline outcomes (missing field, invalid
// format, store failure) are NOT errors: they travel in the
// domain.SubmissionOutcome envelope, because each of them is a legitimate
// result the UI must render.
package services

import "errors"

var (
	// ErrDraftNotFound indicates that the requested draft does not exist or
	// is not accessible to the current user.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrAlreadySubmitted is returned when an operation requires a draft
	// that is still in the draft status but the row has moved on.
	ErrAlreadySubmitted = errors.New("draft already submitted")

	// ErrSubmitInFlight is returned when a second submit arrives for a
	// draft whose pipeline run has not finished yet. The second attempt is
	// refused before the critical write; exactly one write proceeds.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrStepOutOfRange is returned when a step update targets a step the
	// applicant has not legitimately reached, which would skip validation
	// gates.
	ErrStepOutOfRange = errors.New("step not reachable")

	// ErrCorruptDraft is returned when a stored draft payload cannot be
	// decoded.
	ErrCorruptDraft = errors.New("draft payload corrupted")
)
