package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// ApplicantSQL persists applicants and their candidate selections.
type ApplicantSQL struct {
	db dbtx
}

// Create inserts the applicant row and all selection rows. Generated
// IDs are written back into the passed structs. Callers run this inside
// RunInTx so a failed selection insert rolls the applicant back too.
func (r *ApplicantSQL) Create(ctx context.Context, a *model.Applicant, sels []model.CandidateSelection) error {
	const q = `INSERT INTO applicants (event_id, name, email, phone, status)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.EventID, a.Name, a.Email, a.Phone, a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	if len(sels) == 0 {
		return nil
	}

	// Multi-row insert, one placeholder group per selection.
	var sb strings.Builder
	sb.WriteString(`INSERT INTO candidate_selections (applicant_id, date_slot_id, course_id, priority) VALUES `)
	args := make([]any, 0, len(sels)*4)
	for i := range sels {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		sels[i].ApplicantID = a.ID
		args = append(args, sels[i].ApplicantID, sels[i].DateSlotID, sels[i].CourseID, sels[i].Priority)
	}
	res, err = r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}
	// MySQL reports the first auto id of a multi-row insert; with the
	// default consecutive autoinc mode the rest follow in order.
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range sels {
		sels[i].ID = uint64(first) + uint64(i)
	}
	return nil
}

// GetByID returns the applicant or sentinel.ErrNotFound.
func (r *ApplicantSQL) GetByID(ctx context.Context, id uint64) (*model.Applicant, error) {
	const q = `SELECT id, event_id, name, email, phone, status, created_at, updated_at
	           FROM applicants WHERE id = ?`
	var a model.Applicant
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.EventID, &a.Name, &a.Email, &a.Phone, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Selections returns the applicant's candidate selections ordered by
// priority, most preferred first.
func (r *ApplicantSQL) Selections(ctx context.Context, applicantID uint64) ([]model.CandidateSelection, error) {
	const q = `SELECT id, applicant_id, date_slot_id, course_id, priority
	           FROM candidate_selections WHERE applicant_id = ? ORDER BY priority, id`
	rows, err := r.db.QueryContext(ctx, q, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sels := make([]model.CandidateSelection, 0)
	for rows.Next() {
		var s model.CandidateSelection
		if err := rows.Scan(&s.ID, &s.ApplicantID, &s.DateSlotID, &s.CourseID, &s.Priority); err != nil {
			return nil, err
		}
		sels = append(sels, s)
	}
	return sels, rows.Err()
}

// UpdateSelection repoints one selection at a new date and course.
func (r *ApplicantSQL) UpdateSelection(ctx context.Context, selectionID, dateID uint64, courseID *uint64) error {
	const q = `UPDATE candidate_selections SET date_slot_id = ?, course_id = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, dateID, courseID, selectionID)
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

// SetStatus updates the denormalized status flag.
func (r *ApplicantSQL) SetStatus(ctx context.Context, applicantID uint64, status string) error {
	const q = `UPDATE applicants SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, applicantID)
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

// Delete removes the applicant. Selections and confirmations cascade
// via foreign keys; the caller must have released counters first.
func (r *ApplicantSQL) Delete(ctx context.Context, applicantID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applicants WHERE id = ?`, applicantID)
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
