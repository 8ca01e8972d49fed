// Package sentinel defines the error taxonomy shared by the stores,
// the services and the HTTP layer. Callers compare against these
// values with errors.Is to map failures to HTTP responses, so every
// store implementation must return them unchanged.
package sentinel

import "errors"

// ErrPolicyViolation is returned when an operation would break the
// event's participation policy: too many candidate selections at
// intake, or a second confirmed date under a single-confirmation
// policy.
var ErrPolicyViolation = errors.New("participation policy violation")

// ErrNotASelectedDate is returned when a confirmation targets a date
// the applicant never declared as a candidate.
var ErrNotASelectedDate = errors.New("date is not among the applicant's selections")

// ErrCrossEventEdit is returned when an administrator edit would move a
// selection to a date slot belonging to a different event.
var ErrCrossEventEdit = errors.New("edit crosses event boundary")

// ErrNotFound is returned when the target of an operation does not
// exist, e.g. unconfirming an applicant that holds no confirmation.
var ErrNotFound = errors.New("not found")

// ErrInvariantViolation signals that a counter would drift from
// reality, such as a decrement below zero. It indicates a bug
// elsewhere and is logged for operational alerting, never shown to
// end users as a routine failure.
var ErrInvariantViolation = errors.New("capacity counter invariant violation")

// ErrCapacityExceeded is returned by increments when strict capacity
// enforcement is enabled and the slot is already full.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrMalformedBatch is returned when a reconciliation batch is
// structurally unusable: no data rows or an unexpected header shape.
var ErrMalformedBatch = errors.New("malformed reconciliation batch")

// ErrApplicantNotFound is returned when a batch row references an
// applicant that does not exist within the target event.
var ErrApplicantNotFound = errors.New("applicant not found")

// ErrDateNotFound is returned when a batch row's date does not resolve
// to any date slot of the target event.
var ErrDateNotFound = errors.New("date not found in event")

// ErrMissingField is returned when a batch row lacks its applicant
// reference or date string.
var ErrMissingField = errors.New("required field missing")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as confirming a course that is not offered
// on the requested date.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they may not touch. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when an admin account registration reuses
// an existing email address.
var ErrEmailExists = errors.New("email already exists")
