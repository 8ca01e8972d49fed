package model

import "time"

// DateSlot is a single calendar date an event runs on. Each slot has an
// overall capacity and a confirmed_count that is maintained exclusively
// by the capacity ledger; no other component mutates it.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event the slot belongs to.
//  Date           – calendar date (time portion is always midnight UTC).
//  Capacity       – maximum number of confirmed participations.
//  ConfirmedCount – current number of confirmations referencing the slot.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type DateSlot struct {
	ID             uint64    // date_slots.id
	EventID        uint64    // date_slots.event_id
	Date           time.Time // date_slots.slot_date
	Capacity       int       // date_slots.capacity
	ConfirmedCount int       // date_slots.confirmed_count
	CreatedAt      time.Time // date_slots.created_at
	UpdatedAt      time.Time // date_slots.updated_at
}

// DateKey is the canonical YYYY-MM-DD form of the slot's date. Bulk
// reconciliation keys its date lookup table on this value.
func (d *DateSlot) DateKey() string {
	return d.Date.Format("2006-01-02")
}

// Remaining returns the number of seats left on the date. It can be
// negative when confirmations were pushed past capacity by an
// administrator override.
func (d *DateSlot) Remaining() int {
	return d.Capacity - d.ConfirmedCount
}

// IsFull returns true when no seats remain.
func (d *DateSlot) IsFull() bool {
	return d.ConfirmedCount >= d.Capacity
}
