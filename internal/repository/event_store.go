package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// EventSQL reads the event catalog: events, date slots, courses and
// course-date offerings. The catalog is written by the event admin UI;
// this service only ever reads it, so the store is query-only.
type EventSQL struct {
	db dbtx
}

// GetByID returns the event or sentinel.ErrNotFound.
func (r *EventSQL) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, description, policy, max_selections, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	var policy string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Name, &ev.Description, &policy, &ev.MaxSelections, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.Policy = model.Policy(policy)
	return &ev, nil
}

// DateSlots returns every date slot of the event ordered by calendar
// date.
func (r *EventSQL) DateSlots(ctx context.Context, eventID uint64) ([]model.DateSlot, error) {
	const q = `SELECT id, event_id, slot_date, capacity, confirmed_count, created_at, updated_at
	           FROM date_slots WHERE event_id = ? ORDER BY slot_date`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.DateSlot, 0)
	for rows.Next() {
		var d model.DateSlot
		if err := rows.Scan(&d.ID, &d.EventID, &d.Date, &d.Capacity, &d.ConfirmedCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, d)
	}
	return slots, rows.Err()
}

// GetDateSlot returns one date slot or sentinel.ErrNotFound.
func (r *EventSQL) GetDateSlot(ctx context.Context, dateID uint64) (*model.DateSlot, error) {
	const q = `SELECT id, event_id, slot_date, capacity, confirmed_count, created_at, updated_at
	           FROM date_slots WHERE id = ?`
	var d model.DateSlot
	err := r.db.QueryRowContext(ctx, q, dateID).Scan(
		&d.ID, &d.EventID, &d.Date, &d.Capacity, &d.ConfirmedCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetCourse returns one course or sentinel.ErrNotFound.
func (r *EventSQL) GetCourse(ctx context.Context, courseID uint64) (*model.Course, error) {
	const q = `SELECT id, event_id, name, created_at, updated_at FROM courses WHERE id = ?`
	var c model.Course
	err := r.db.QueryRowContext(ctx, q, courseID).Scan(&c.ID, &c.EventID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CourseByName resolves a course name within an event. Matching is
// exact after trimming surrounding whitespace; fuzzy fallback behavior
// is the bulk processor's concern, not the store's.
func (r *EventSQL) CourseByName(ctx context.Context, eventID uint64, name string) (*model.Course, error) {
	const q = `SELECT id, event_id, name, created_at, updated_at
	           FROM courses WHERE event_id = ? AND name = ? LIMIT 1`
	var c model.Course
	err := r.db.QueryRowContext(ctx, q, eventID, strings.TrimSpace(name)).Scan(
		&c.ID, &c.EventID, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CourseOfferedOn reports whether a course_dates row links the course
// to the date slot.
func (r *EventSQL) CourseOfferedOn(ctx context.Context, courseID, dateID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM course_dates WHERE course_id = ? AND date_slot_id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, courseID, dateID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
