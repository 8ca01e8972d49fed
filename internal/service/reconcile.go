package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-registration/internal/metrics"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// ReconcileRow is one unit of bulk input, already split out of the raw
// CSV by the transport layer. Date and course are the human-entered
// strings from the file; resolution to internal identifiers happens
// here.
type ReconcileRow struct {
	Line         int    // 1-based data row number, for reporting
	ApplicantRef string // applicant id column, as written in the file
	Name         string // display name column, informational only
	CourseName   string // course column, may be empty
	DateText     string // date column in any accepted format
	Confirm      bool   // confirm flag column
}

// Row outcomes. A row is either applied (created/updated), skipped
// because its confirm flag was unset, or failed with a reason; a
// failing row never aborts the batch.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// RowResult is the per-row verdict returned to the caller.
type RowResult struct {
	Line    int    `json:"line"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// ReconcileReport summarises a processed batch.
type ReconcileReport struct {
	BatchID string      `json:"batch_id"`
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Errors  int         `json:"errors"`
	Rows    []RowResult `json:"rows"`
}

// Reconciler applies an externally supplied batch of confirmations. It
// resolves human-readable dates and course names to internal ids and
// drives the confirmation engine row by row, each row independently
// atomic. Only the structural checks can fail the whole call; a
// 500-row import with 3 bad rows commits the other 497.
type Reconciler struct {
	stores Stores
	engine *ConfirmationEngine
}

// NewReconciler returns a Reconciler reading through stores and
// confirming through engine.
func NewReconciler(stores Stores, engine *ConfirmationEngine) *Reconciler {
	if stores == nil || engine == nil {
		panic("nil dependency passed to NewReconciler")
	}
	return &Reconciler{stores: stores, engine: engine}
}

// ReconcileBatch processes the rows against the target event. A batch
// with zero data rows fails up front with ErrMalformedBatch (the header
// shape is the transport layer's check). Every other failure is
// recorded on its row and processing continues.
func (r *Reconciler) ReconcileBatch(ctx context.Context, confirmedBy, eventID uint64, rows []ReconcileRow) (*ReconcileReport, error) {
	if len(rows) == 0 {
		return nil, sentinel.ErrMalformedBatch
	}
	if _, err := r.stores.Events().GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	// One date lookup table per batch: every slot of the target event
	// keyed by its canonical YYYY-MM-DD string.
	slots, err := r.stores.Events().DateSlots(ctx, eventID)
	if err != nil {
		return nil, err
	}
	dates := make(map[string]uint64, len(slots))
	for _, slot := range slots {
		dates[slot.DateKey()] = slot.ID
	}

	report := &ReconcileReport{
		BatchID: uuid.New().String(),
		Rows:    make([]RowResult, 0, len(rows)),
	}
	for _, row := range rows {
		res := r.applyRow(ctx, confirmedBy, eventID, dates, row)
		switch res.Outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeUpdated:
			report.Updated++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Errors++
		}
		metrics.ReconcileRowsTotal.WithLabelValues(res.Outcome).Inc()
		report.Rows = append(report.Rows, res)
	}
	return report, nil
}

// applyRow resolves and confirms a single row. It never returns an
// error; failures become the row's outcome.
func (r *Reconciler) applyRow(ctx context.Context, confirmedBy, eventID uint64, dates map[string]uint64, row ReconcileRow) RowResult {
	if !row.Confirm {
		return RowResult{Line: row.Line, Outcome: OutcomeSkipped}
	}
	ref := strings.TrimSpace(row.ApplicantRef)
	dateText := strings.TrimSpace(row.DateText)
	if ref == "" || dateText == "" {
		return rowError(row.Line, sentinel.ErrMissingField)
	}
	applicantID, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return rowError(row.Line, sentinel.ErrApplicantNotFound)
	}
	applicant, err := r.stores.Applicants().GetByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return rowError(row.Line, sentinel.ErrApplicantNotFound)
		}
		return rowError(row.Line, err)
	}
	if applicant.EventID != eventID {
		return rowError(row.Line, sentinel.ErrApplicantNotFound)
	}

	canonical, ok := NormalizeDate(dateText)
	if !ok {
		return rowError(row.Line, sentinel.ErrDateNotFound)
	}
	dateID, ok := dates[canonical]
	if !ok {
		// Also covers well-formed dates outside the target event.
		return rowError(row.Line, sentinel.ErrDateNotFound)
	}

	sels, err := r.stores.Applicants().Selections(ctx, applicantID)
	if err != nil {
		return rowError(row.Line, err)
	}
	var selected *model.CandidateSelection
	for i := range sels {
		if sels[i].DateSlotID == dateID {
			selected = &sels[i]
			break
		}
	}
	if selected == nil {
		return rowError(row.Line, sentinel.ErrNotASelectedDate)
	}

	// Course resolution is forgiving: an unknown or empty course name
	// falls back to whatever course the applicant selected for that
	// date rather than hard-failing the row.
	courseID := selected.CourseID
	if name := strings.TrimSpace(row.CourseName); name != "" {
		course, err := r.stores.Events().CourseByName(ctx, eventID, name)
		switch {
		case err == nil:
			courseID = &course.ID
		case errors.Is(err, sentinel.ErrNotFound):
			// keep the selection's course
		default:
			return rowError(row.Line, err)
		}
	}

	change, err := r.engine.Confirm(ctx, confirmedBy, applicantID, dateID, courseID)
	if err != nil {
		return rowError(row.Line, err)
	}
	if change.Action == ActionCreated {
		return RowResult{Line: row.Line, Outcome: OutcomeCreated}
	}
	return RowResult{Line: row.Line, Outcome: OutcomeUpdated}
}

// rowError converts a failure into the row's error outcome with a
// stable machine-readable reason.
func rowError(line int, err error) RowResult {
	return RowResult{Line: line, Outcome: OutcomeError, Reason: errorReason(err)}
}

// errorReason maps the error taxonomy to stable reason tokens surfaced
// in batch reports.
func errorReason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrMissingField):
		return "missing_field"
	case errors.Is(err, sentinel.ErrApplicantNotFound):
		return "applicant_not_found"
	case errors.Is(err, sentinel.ErrDateNotFound):
		return "date_not_found"
	case errors.Is(err, sentinel.ErrNotASelectedDate):
		return "not_a_selected_date"
	case errors.Is(err, sentinel.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, sentinel.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, sentinel.ErrConflict):
		return "conflict"
	case errors.Is(err, sentinel.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "internal_error"
	}
}

// dateLayouts are the accepted human-entered date formats. The "01"
// layout verbs demand zero-padded values, so each separator style also
// carries its unpadded form to admit 2026/8/5 and 2026年8月5日.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006年01月02日",
	"2006年1月2日",
}

// NormalizeDate converts a human-entered date string to the canonical
// YYYY-MM-DD form used by the batch date lookup table. The second
// return value is false when no accepted layout matches.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
