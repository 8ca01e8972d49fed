// Package service implements the registration core: the confirmation
// engine, the registration store orchestration, the event policy
// resolver and the bulk reconciliation processor. Persistence is
// reached only through the narrow store contracts declared here, so the
// same services run against MySQL in production and the in-memory
// stores in tests.
package service

import (
	"context"

	"github.com/iliyamo/event-registration/internal/model"
)

// EventStore provides read access to the event catalog: events, date
// slots and course offerings. The catalog is populated by the event
// admin UI, an external collaborator; this core never creates events.
type EventStore interface {
	// GetByID returns the event or sentinel.ErrNotFound.
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	// DateSlots returns every date slot of the event ordered by date.
	DateSlots(ctx context.Context, eventID uint64) ([]model.DateSlot, error)
	// GetDateSlot returns one date slot or sentinel.ErrNotFound.
	GetDateSlot(ctx context.Context, dateID uint64) (*model.DateSlot, error)
	// GetCourse returns one course or sentinel.ErrNotFound.
	GetCourse(ctx context.Context, courseID uint64) (*model.Course, error)
	// CourseByName resolves a course name within an event. Returns
	// sentinel.ErrNotFound when no course carries the name.
	CourseByName(ctx context.Context, eventID uint64, name string) (*model.Course, error)
	// CourseOfferedOn reports whether a course_dates row links the
	// course to the date slot.
	CourseOfferedOn(ctx context.Context, courseID, dateID uint64) (bool, error)
}

// ApplicantStore persists applicants and their candidate selections.
// Selections are replaced by administrator edits, never appended to.
type ApplicantStore interface {
	// Create persists the applicant and all selections together. The
	// generated IDs are written back into the passed structs.
	Create(ctx context.Context, a *model.Applicant, sels []model.CandidateSelection) error
	// GetByID returns the applicant or sentinel.ErrNotFound.
	GetByID(ctx context.Context, id uint64) (*model.Applicant, error)
	// Selections returns the applicant's selections ordered by priority.
	Selections(ctx context.Context, applicantID uint64) ([]model.CandidateSelection, error)
	// UpdateSelection repoints one selection at a new date and course.
	UpdateSelection(ctx context.Context, selectionID, dateID uint64, courseID *uint64) error
	// SetStatus updates the denormalized status flag.
	SetStatus(ctx context.Context, applicantID uint64, status string) error
	// Delete removes the applicant; selections and confirmations
	// cascade. Counters must have been released by the caller first.
	Delete(ctx context.Context, applicantID uint64) error
}

// ConfirmationStore persists capacity-consuming confirmation records.
// Every mutation here is paired with a ledger mutation by the
// confirmation engine inside one transaction.
type ConfirmationStore interface {
	// ListByApplicant returns all confirmations held by the applicant.
	ListByApplicant(ctx context.Context, applicantID uint64) ([]model.Confirmation, error)
	// Create persists a new confirmation and writes back its ID.
	Create(ctx context.Context, cf *model.Confirmation) error
	// UpdateCourse changes only the course reference, bumping
	// updated_at. Used by the course-change transition.
	UpdateCourse(ctx context.Context, id uint64, courseID *uint64) error
	// UpdateTarget repoints the confirmation at a new date and course.
	// Used when an administrator edit migrates a confirmed selection.
	UpdateTarget(ctx context.Context, id uint64, dateID uint64, courseID *uint64) error
	// Delete removes one confirmation or returns sentinel.ErrNotFound.
	Delete(ctx context.Context, id uint64) error
}

// CapacityLedger is the sole owner of counter mutation. Every operation
// is atomic with respect to concurrent callers: implementations must
// use a single conditional update per counter, never a read-then-write
// round trip. The course-scoped operations adjust the paired date-level
// counter as part of the same unit, so a course confirmation moves both
// counters together or not at all.
type CapacityLedger interface {
	// IncrementDate adds one confirmation to the date slot counter.
	// When strict capacity enforcement is configured it fails with
	// sentinel.ErrCapacityExceeded on a full slot; otherwise an
	// over-capacity increment succeeds and is surfaced through logs
	// and metrics.
	IncrementDate(ctx context.Context, dateID uint64) error
	// DecrementDate removes one confirmation from the date slot
	// counter. Dropping below zero fails with
	// sentinel.ErrInvariantViolation.
	DecrementDate(ctx context.Context, dateID uint64) error
	// IncrementCourseDate adds one confirmation to the (course, date)
	// counter and to the date slot counter, as one unit.
	IncrementCourseDate(ctx context.Context, courseID, dateID uint64) error
	// DecrementCourseDate removes one confirmation from the
	// (course, date) counter and from the date slot counter, as one
	// unit.
	DecrementCourseDate(ctx context.Context, courseID, dateID uint64) error
	// DateCounts returns current per-date capacity and counts.
	DateCounts(ctx context.Context, eventID uint64) ([]model.DateSlot, error)
	// CourseDateCounts returns current per-(course,date) capacity and
	// counts across the event.
	CourseDateCounts(ctx context.Context, eventID uint64) ([]model.CourseDate, error)
}

// Stores bundles the persistence contracts the services operate on. A
// Stores value obtained inside RunInTx is scoped to that transaction;
// the top-level Stores serves plain reads.
type Stores interface {
	Events() EventStore
	Applicants() ApplicantStore
	Confirmations() ConfirmationStore
	Ledger() CapacityLedger
}

// StoreTx provides the transactional boundary for multi-step mutations.
// Implementations may wrap a database transaction or, in-memory, a
// coarse lock with snapshot rollback. If fn returns an error every
// change made through the passed Stores is rolled back.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(s Stores) error) error
}
