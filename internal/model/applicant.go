package model

import "time"

// Applicant status values. The status column is a denormalized
// convenience flag for external collaborators; the confirmations table
// remains the source of truth.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
)

// Applicant is a registrant of an event together with contact fields
// collected by the intake form. Field format validation (email, phone)
// happens at intake, not here.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event the applicant registered for.
//  Name      – display name.
//  Email     – contact email, already validated by the intake form.
//  Phone     – contact phone number, may be empty.
//  Status    – PENDING until at least one confirmation exists.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Applicant struct {
	ID        uint64    // applicants.id
	EventID   uint64    // applicants.event_id
	Name      string    // applicants.name
	Email     string    // applicants.email
	Phone     string    // applicants.phone
	Status    string    // applicants.status
	CreatedAt time.Time // applicants.created_at
	UpdatedAt time.Time // applicants.updated_at
}

// CandidateSelection is an applicant's declared interest in one
// (date, course) pair. It consumes no capacity until confirmed.
// Selections are ordered by Priority (lower = more preferred); the
// ordering is advisory metadata for the administrator, never applied
// automatically.
type CandidateSelection struct {
	ID          uint64  // candidate_selections.id
	ApplicantID uint64  // candidate_selections.applicant_id
	DateSlotID  uint64  // candidate_selections.date_slot_id
	CourseID    *uint64 // candidate_selections.course_id (nullable)
	Priority    int     // candidate_selections.priority
}
