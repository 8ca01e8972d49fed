package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/iliyamo/event-registration/internal/metrics"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// LedgerSQL owns the confirmed_count columns on date_slots and
// course_dates. Every mutation is a single conditional UPDATE, so two
// concurrent confirmations can never both read the same count and write
// back a lost update. The strict flag selects whether a full slot
// rejects the increment or merely records the overbooking.
type LedgerSQL struct {
	db     dbtx
	strict bool
}

// IncrementDate adds one confirmation to the date slot counter.
func (r *LedgerSQL) IncrementDate(ctx context.Context, dateID uint64) error {
	if r.strict {
		const q = `UPDATE date_slots SET confirmed_count = confirmed_count + 1
		           WHERE id = ? AND confirmed_count < capacity`
		res, err := r.db.ExecContext(ctx, q, dateID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if exists, err := r.dateSlotExists(ctx, dateID); err != nil {
				return err
			} else if !exists {
				return sentinel.ErrNotFound
			}
			return sentinel.ErrCapacityExceeded
		}
		return nil
	}

	const q = `UPDATE date_slots SET confirmed_count = confirmed_count + 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, dateID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	r.noteDateOverbook(ctx, dateID)
	return nil
}

// DecrementDate removes one confirmation from the date slot counter.
// The zero floor is enforced unconditionally: a decrement that finds
// nothing to release means a counter drifted from the confirmation
// records, which is a bug, not a user error.
func (r *LedgerSQL) DecrementDate(ctx context.Context, dateID uint64) error {
	const q = `UPDATE date_slots SET confirmed_count = confirmed_count - 1
	           WHERE id = ? AND confirmed_count > 0`
	res, err := r.db.ExecContext(ctx, q, dateID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if exists, err := r.dateSlotExists(ctx, dateID); err != nil {
			return err
		} else if !exists {
			return sentinel.ErrNotFound
		}
		metrics.InvariantViolationsTotal.Inc()
		log.Printf("ALERT ledger: decrement on date slot %d would drop below zero", dateID)
		return sentinel.ErrInvariantViolation
	}
	return nil
}

// IncrementCourseDate adds one confirmation to the (course, date)
// counter and to the date slot counter. Both updates run in the
// caller's transaction, so they land together or roll back together.
func (r *LedgerSQL) IncrementCourseDate(ctx context.Context, courseID, dateID uint64) error {
	if r.strict {
		const q = `UPDATE course_dates SET confirmed_count = confirmed_count + 1
		           WHERE course_id = ? AND date_slot_id = ? AND confirmed_count < capacity`
		res, err := r.db.ExecContext(ctx, q, courseID, dateID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if exists, err := r.courseDateExists(ctx, courseID, dateID); err != nil {
				return err
			} else if !exists {
				return sentinel.ErrNotFound
			}
			return sentinel.ErrCapacityExceeded
		}
		return r.IncrementDate(ctx, dateID)
	}

	const q = `UPDATE course_dates SET confirmed_count = confirmed_count + 1
	           WHERE course_id = ? AND date_slot_id = ?`
	res, err := r.db.ExecContext(ctx, q, courseID, dateID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	r.noteCourseDateOverbook(ctx, courseID, dateID)
	return r.IncrementDate(ctx, dateID)
}

// DecrementCourseDate removes one confirmation from the (course, date)
// counter and from the date slot counter.
func (r *LedgerSQL) DecrementCourseDate(ctx context.Context, courseID, dateID uint64) error {
	const q = `UPDATE course_dates SET confirmed_count = confirmed_count - 1
	           WHERE course_id = ? AND date_slot_id = ? AND confirmed_count > 0`
	res, err := r.db.ExecContext(ctx, q, courseID, dateID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if exists, err := r.courseDateExists(ctx, courseID, dateID); err != nil {
			return err
		} else if !exists {
			return sentinel.ErrNotFound
		}
		metrics.InvariantViolationsTotal.Inc()
		log.Printf("ALERT ledger: decrement on course %d date slot %d would drop below zero", courseID, dateID)
		return sentinel.ErrInvariantViolation
	}
	return r.DecrementDate(ctx, dateID)
}

// DateCounts returns current per-date capacity and counts for an event.
func (r *LedgerSQL) DateCounts(ctx context.Context, eventID uint64) ([]model.DateSlot, error) {
	return (&EventSQL{db: r.db}).DateSlots(ctx, eventID)
}

// CourseDateCounts returns current per-(course,date) capacity and
// counts across an event.
func (r *LedgerSQL) CourseDateCounts(ctx context.Context, eventID uint64) ([]model.CourseDate, error) {
	const q = `SELECT cd.id, cd.course_id, cd.date_slot_id, cd.capacity, cd.confirmed_count
	           FROM course_dates cd
	           JOIN courses c ON c.id = cd.course_id
	           WHERE c.event_id = ?
	           ORDER BY cd.course_id, cd.date_slot_id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CourseDate, 0)
	for rows.Next() {
		var cd model.CourseDate
		if err := rows.Scan(&cd.ID, &cd.CourseID, &cd.DateSlotID, &cd.Capacity, &cd.ConfirmedCount); err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, rows.Err()
}

func (r *LedgerSQL) dateSlotExists(ctx context.Context, dateID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM date_slots WHERE id = ?)`, dateID).Scan(&exists)
	return exists, err
}

func (r *LedgerSQL) courseDateExists(ctx context.Context, courseID, dateID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM course_dates WHERE course_id = ? AND date_slot_id = ?)`,
		courseID, dateID).Scan(&exists)
	return exists, err
}

// noteDateOverbook records an increment that pushed a date slot past
// its capacity under lenient enforcement. Best effort only: a failed
// read here must not fail the confirmation.
func (r *LedgerSQL) noteDateOverbook(ctx context.Context, dateID uint64) {
	const q = `SELECT capacity, confirmed_count FROM date_slots WHERE id = ?`
	var capacity, count int
	if err := r.db.QueryRowContext(ctx, q, dateID).Scan(&capacity, &count); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("ledger: overbook check on date slot %d: %v", dateID, err)
		}
		return
	}
	if count > capacity {
		metrics.OverbookedConfirmationsTotal.Inc()
		log.Printf("ledger: date slot %d overbooked (%d/%d)", dateID, count, capacity)
	}
}

func (r *LedgerSQL) noteCourseDateOverbook(ctx context.Context, courseID, dateID uint64) {
	const q = `SELECT capacity, confirmed_count FROM course_dates WHERE course_id = ? AND date_slot_id = ?`
	var capacity, count int
	if err := r.db.QueryRowContext(ctx, q, courseID, dateID).Scan(&capacity, &count); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("ledger: overbook check on course %d date slot %d: %v", courseID, dateID, err)
		}
		return
	}
	if count > capacity {
		metrics.OverbookedConfirmationsTotal.Inc()
		log.Printf("ledger: course %d date slot %d overbooked (%d/%d)", courseID, dateID, count, capacity)
	}
}
