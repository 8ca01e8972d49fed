package repository

import (
	"context"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// ConfirmationSQL persists confirmation records. The engine always
// calls it inside RunInTx alongside the matching ledger mutation.
type ConfirmationSQL struct {
	db dbtx
}

// ListByApplicant returns all confirmations held by the applicant,
// oldest first.
func (r *ConfirmationSQL) ListByApplicant(ctx context.Context, applicantID uint64) ([]model.Confirmation, error) {
	const q = `SELECT id, applicant_id, date_slot_id, course_id, confirmed_by, created_at, updated_at
	           FROM confirmations WHERE applicant_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	confs := make([]model.Confirmation, 0)
	for rows.Next() {
		var c model.Confirmation
		if err := rows.Scan(&c.ID, &c.ApplicantID, &c.DateSlotID, &c.CourseID, &c.ConfirmedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		confs = append(confs, c)
	}
	return confs, rows.Err()
}

// Create inserts a new confirmation and writes back its ID.
func (r *ConfirmationSQL) Create(ctx context.Context, cf *model.Confirmation) error {
	const q = `INSERT INTO confirmations (applicant_id, date_slot_id, course_id, confirmed_by)
	           VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, cf.ApplicantID, cf.DateSlotID, cf.CourseID, cf.ConfirmedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cf.ID = uint64(id)
	return nil
}

// UpdateCourse changes only the course reference of a confirmation.
func (r *ConfirmationSQL) UpdateCourse(ctx context.Context, id uint64, courseID *uint64) error {
	const q = `UPDATE confirmations SET course_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, courseID, id)
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
	return nil
}

// UpdateTarget repoints the confirmation at a new date and course.
func (r *ConfirmationSQL) UpdateTarget(ctx context.Context, id uint64, dateID uint64, courseID *uint64) error {
	const q = `UPDATE confirmations SET date_slot_id = ?, course_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, dateID, courseID, id)
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
	return nil
}

// Delete removes one confirmation or returns sentinel.ErrNotFound.
func (r *ConfirmationSQL) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM confirmations WHERE id = ?`, id)
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
	return nil
}
