// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer for them.
package queue

// StatusChangedEvent is published whenever the confirmation engine
// changes an applicant's standing: a confirmation created, moved to a
// different course, or removed. It carries enough for downstream
// consumers to log or notify without querying the primary database.
type StatusChangedEvent struct {
	ApplicantID   uint64  `json:"applicant_id"`
	ApplicantName string  `json:"applicant_name"`
	EventID       uint64  `json:"event_id"`
	DateSlotID    uint64  `json:"date_slot_id"`
	Date          string  `json:"date"`
	CourseID      *uint64 `json:"course_id,omitempty"`
	CourseName    string  `json:"course_name,omitempty"`
	Status        string  `json:"status"`
	Action        string  `json:"action"`
	ConfirmedBy   uint64  `json:"confirmed_by"`
	OccurredAt    string  `json:"occurred_at"`
}
