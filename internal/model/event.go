package model

import "time"

// Policy identifies how many confirmed participations an applicant may
// hold for an event and how candidate selections are interpreted.
type Policy string

const (
	// PolicySingle allows exactly one candidate date per applicant and at
	// most one confirmation.
	PolicySingle Policy = "single"
	// PolicyMultiDate allows an applicant to attend several dates; every
	// candidate selection may be confirmed independently.
	PolicyMultiDate Policy = "multi_date"
	// PolicyMultiCandidate allows several ranked candidate dates but only
	// one of them may ever be confirmed.
	PolicyMultiCandidate Policy = "multi_candidate"
)

// Event represents a multi-date activity that applicants register for.
// The participation policy and the selection limit are fixed at creation
// time by the event admin; the two "multi" policies are mutually
// exclusive by construction.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name of the event.
//  Description   – free-form description shown to applicants.
//  Policy        – participation policy (single, multi_date,
//                  multi_candidate).
//  MaxSelections – upper bound on candidate selections per applicant;
//                  meaningful only for the two multi policies.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Event struct {
	ID            uint64    // events.id
	Name          string    // events.name
	Description   string    // events.description
	Policy        Policy    // events.policy
	MaxSelections int       // events.max_selections
	CreatedAt     time.Time // events.created_at
	UpdatedAt     time.Time // events.updated_at
}

// SelectionLimit returns the maximum number of candidate selections an
// applicant may register under this event's policy.
func (e *Event) SelectionLimit() int {
	if e.Policy == PolicySingle {
		return 1
	}
	if e.MaxSelections < 1 {
		return 1
	}
	return e.MaxSelections
}

// MultiConfirm reports whether more than one confirmation may exist for
// the same applicant. Only the multi_date policy permits it.
func (e *Event) MultiConfirm() bool {
	return e.Policy == PolicyMultiDate
}
