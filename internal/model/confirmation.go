package model

import "time"

// Confirmation locks one of an applicant's candidate selections as
// actually attending, consuming capacity on the referenced date slot
// and, when a course is set, on the (course, date) pair. Creation and
// deletion always happen together with the paired ledger mutation in
// one transaction.
//
// Fields:
//  ID          – primary key identifier.
//  ApplicantID – applicant being confirmed.
//  DateSlotID  – confirmed date; must be one of the applicant's
//                candidate selections.
//  CourseID    – confirmed course on that date, may be nil.
//  ConfirmedBy – admin user who performed the confirmation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – bumped when only the course changes on an already
//                confirmed date.
type Confirmation struct {
	ID          uint64    // confirmations.id
	ApplicantID uint64    // confirmations.applicant_id
	DateSlotID  uint64    // confirmations.date_slot_id
	CourseID    *uint64   // confirmations.course_id (nullable)
	ConfirmedBy uint64    // confirmations.confirmed_by
	CreatedAt   time.Time // confirmations.created_at
	UpdatedAt   time.Time // confirmations.updated_at
}

// SameCourse reports whether the confirmation's course equals the given
// one, treating two nils as equal.
func (c *Confirmation) SameCourse(courseID *uint64) bool {
	if c.CourseID == nil && courseID == nil {
		return true
	}
	if c.CourseID == nil || courseID == nil {
		return false
	}
	return *c.CourseID == *courseID
}
