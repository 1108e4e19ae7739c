// Package domain – submission outcome and error taxonomy.
//
// The pipeline reports exactly one SubmissionOutcome per attempt. A failed
// best-effort notification never flips the outcome to a failure; it only
// downgrades a success. Store failures are translated into the taxonomy here
// before they reach the transport layer, so raw backend errors are never
// shown to applicants.
package domain

import "fmt"

// OutcomeStatus is the tri-state result surfaced to the caller.
type OutcomeStatus string

const (
	// OutcomeSuccess: critical write and notification both succeeded.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeDegraded: critical write succeeded, notification failed.
	OutcomeDegraded OutcomeStatus = "success_degraded"
	// OutcomeFailure: validation, sanitization, or the critical write failed.
	OutcomeFailure OutcomeStatus = "failure"
)

// FailureKind classifies why a submission attempt failed.
type FailureKind string

const (
	// FailureMissingField: a required field for some step was empty.
	FailureMissingField FailureKind = "missing_field"
	// FailureInvalidFormat: the sanitizer rejected a field's shape.
	FailureInvalidFormat FailureKind = "invalid_format"
	// FailureStore: the critical write failed.
	FailureStore FailureKind = "store_error"
)

// SubmissionOutcome is the single result envelope for one submit attempt.
type SubmissionOutcome struct {
	Status           OutcomeStatus `json:"status"`
	ApplicationID    string        `json:"application_id,omitempty"`
	NotificationSent bool          `json:"notification_sent"`
	FailureKind      FailureKind   `json:"failure_kind,omitempty"`
	Field            string        `json:"field,omitempty"`
	Message          string        `json:"message"`
}

// SubmissionError is the typed failure threaded through the pipeline stages.
// Kind drives the user-facing message; Field names the offending field for
// the locally recoverable kinds; the wrapped cause carries full diagnostic
// detail for operators and never reaches the applicant.
type SubmissionError struct {
	Kind  FailureKind
	Field string
	Cause error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("submission failed: %s (%s)", e.Kind, e.Field)
	}
	return fmt.Sprintf("submission failed: %s", e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *SubmissionError) Unwrap() error { return e.Cause }
