package model

import "time"

// Course is an optional sub-track of an event, offered on a subset of
// the event's date slots. The offering itself is recorded as a
// CourseDate row which doubles as the per-(course,date) capacity.
type Course struct {
	ID        uint64    // courses.id
	EventID   uint64    // courses.event_id
	Name      string    // courses.name
	CreatedAt time.Time // courses.created_at
	UpdatedAt time.Time // courses.updated_at
}

// CourseDate links a course to one date slot it is offered on and
// carries that pair's own capacity. Its confirmed_count is independent
// of the date slot's counter and, like it, owned by the capacity ledger.
//
// Fields:
//  ID             – primary key identifier.
//  CourseID       – course being offered.
//  DateSlotID     – date the course runs on.
//  Capacity       – maximum confirmations for this course on this date.
//  ConfirmedCount – current confirmations for this course on this date.
type CourseDate struct {
	ID             uint64 // course_dates.id
	CourseID       uint64 // course_dates.course_id
	DateSlotID     uint64 // course_dates.date_slot_id
	Capacity       int    // course_dates.capacity
	ConfirmedCount int    // course_dates.confirmed_count
}

// Remaining returns the seats left for the course on its date.
func (cd *CourseDate) Remaining() int {
	return cd.Capacity - cd.ConfirmedCount
}
