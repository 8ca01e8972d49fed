package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// SelectionInput is one candidate (date, course) pair supplied at
// intake or by an administrator edit.
type SelectionInput struct {
	DateSlotID uint64  `json:"date_slot_id"`
	CourseID   *uint64 `json:"course_id,omitempty"`
	Priority   int     `json:"priority"`
}

// ApplicantInput carries the intake fields for a new applicant. Email
// and phone format checking is the intake collaborator's job; this core
// only requires a non-empty name.
type ApplicantInput struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	Selections []SelectionInput `json:"selections"`
}

// Registrar maintains applicants and their candidate selections. It
// validates every selection against the owning event's policy and
// course-date links before persisting, and keeps administrator edits
// inside the original event.
type Registrar struct {
	tx StoreTx
}

// NewRegistrar returns a Registrar bound to the given transactional
// store boundary.
func NewRegistrar(tx StoreTx) *Registrar {
	if tx == nil {
		panic("nil StoreTx passed to NewRegistrar")
	}
	return &Registrar{tx: tx}
}

// CreateApplicant persists an applicant and all candidate selections as
// one unit. Selections must target distinct date slots of the event,
// respect the policy's selection limit, and reference only courses
// linked to their date; otherwise the call fails with
// ErrPolicyViolation and nothing is written.
func (r *Registrar) CreateApplicant(ctx context.Context, eventID uint64, in ApplicantInput) (*model.Applicant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: applicant name", sentinel.ErrMissingField)
	}
	var applicant *model.Applicant
	err := r.tx.RunInTx(ctx, func(s Stores) error {
		event, err := s.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		rule := ResolvePolicy(event)
		if len(in.Selections) == 0 {
			return fmt.Errorf("%w: at least one candidate selection required", sentinel.ErrPolicyViolation)
		}
		if len(in.Selections) > rule.Limit {
			return fmt.Errorf("%w: %d selections exceed limit %d for %s policy",
				sentinel.ErrPolicyViolation, len(in.Selections), rule.Limit, rule.Mode)
		}

		seen := make(map[uint64]struct{}, len(in.Selections))
		sels := make([]model.CandidateSelection, 0, len(in.Selections))
		for _, sel := range in.Selections {
			if _, dup := seen[sel.DateSlotID]; dup {
				return fmt.Errorf("%w: duplicate candidate date %d", sentinel.ErrPolicyViolation, sel.DateSlotID)
			}
			seen[sel.DateSlotID] = struct{}{}
			if err := r.validateSelection(ctx, s, eventID, sel.DateSlotID, sel.CourseID, sentinel.ErrPolicyViolation); err != nil {
				return err
			}
			sels = append(sels, model.CandidateSelection{
				DateSlotID: sel.DateSlotID,
				CourseID:   sel.CourseID,
				Priority:   sel.Priority,
			})
		}

		applicant = &model.Applicant{
			EventID: eventID,
			Name:    strings.TrimSpace(in.Name),
			Email:   strings.ToLower(strings.TrimSpace(in.Email)),
			Phone:   strings.TrimSpace(in.Phone),
			Status:  model.StatusPending,
		}
		return s.Applicants().Create(ctx, applicant, sels)
	})
	if err != nil {
		return nil, err
	}
	return applicant, nil
}

// ReplaceSelection is an administrator edit that repoints one candidate
// selection from oldDateID to newDateID (optionally with a new course).
// The new date must belong to the same event as the applicant, else the
// edit fails with ErrCrossEventEdit. When the applicant already holds a
// confirmation on the old date, the confirmation is migrated to the new
// target in the same transaction and the capacity counters move with
// it; an edit never silently orphans a confirmation.
func (r *Registrar) ReplaceSelection(ctx context.Context, applicantID, oldDateID, newDateID uint64, newCourseID *uint64) error {
	return r.tx.RunInTx(ctx, func(s Stores) error {
		applicant, err := s.Applicants().GetByID(ctx, applicantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return sentinel.ErrApplicantNotFound
			}
			return err
		}
		sels, err := s.Applicants().Selections(ctx, applicantID)
		if err != nil {
			return err
		}
		var target *model.CandidateSelection
		for i := range sels {
			if sels[i].DateSlotID == oldDateID {
				target = &sels[i]
				continue
			}
			if sels[i].DateSlotID == newDateID {
				return fmt.Errorf("%w: date %d already selected", sentinel.ErrConflict, newDateID)
			}
		}
		if target == nil {
			return fmt.Errorf("%w: no selection on date %d", sentinel.ErrNotFound, oldDateID)
		}

		newSlot, err := s.Events().GetDateSlot(ctx, newDateID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return sentinel.ErrDateNotFound
			}
			return err
		}
		if newSlot.EventID != applicant.EventID {
			return sentinel.ErrCrossEventEdit
		}
		if newCourseID != nil {
			if err := r.validateSelection(ctx, s, applicant.EventID, newDateID, newCourseID, sentinel.ErrConflict); err != nil {
				return err
			}
		}

		if err := s.Applicants().UpdateSelection(ctx, target.ID, newDateID, newCourseID); err != nil {
			return err
		}

		// Migrate a confirmation sitting on the old date: release the
		// old counters, consume the new ones, repoint the row. All in
		// this transaction so the edit and the migration land together.
		confs, err := s.Confirmations().ListByApplicant(ctx, applicantID)
		if err != nil {
			return err
		}
		for _, cf := range confs {
			if cf.DateSlotID != oldDateID {
				continue
			}
			if cf.CourseID != nil {
				err = s.Ledger().DecrementCourseDate(ctx, *cf.CourseID, oldDateID)
			} else {
				err = s.Ledger().DecrementDate(ctx, oldDateID)
			}
			if err != nil {
				return err
			}
			if newCourseID != nil {
				err = s.Ledger().IncrementCourseDate(ctx, *newCourseID, newDateID)
			} else {
				err = s.Ledger().IncrementDate(ctx, newDateID)
			}
			if err != nil {
				return err
			}
			if err := s.Confirmations().UpdateTarget(ctx, cf.ID, newDateID, newCourseID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteApplicant removes an applicant entirely. Any confirmations the
// applicant holds are released through the ledger first so the counters
// stay in step with the remaining records.
func (r *Registrar) DeleteApplicant(ctx context.Context, applicantID uint64) error {
	return r.tx.RunInTx(ctx, func(s Stores) error {
		if _, err := s.Applicants().GetByID(ctx, applicantID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return sentinel.ErrApplicantNotFound
			}
			return err
		}
		confs, err := s.Confirmations().ListByApplicant(ctx, applicantID)
		if err != nil {
			return err
		}
		for _, cf := range confs {
			if cf.CourseID != nil {
				err = s.Ledger().DecrementCourseDate(ctx, *cf.CourseID, cf.DateSlotID)
			} else {
				err = s.Ledger().DecrementDate(ctx, cf.DateSlotID)
			}
			if err != nil {
				return err
			}
		}
		return s.Applicants().Delete(ctx, applicantID)
	})
}

// validateSelection checks that the date slot belongs to the event and
// that the course, when present, belongs to the event and is offered on
// that date. Violations are wrapped around wrapErr so intake failures
// surface as policy violations and edit failures as conflicts.
func (r *Registrar) validateSelection(ctx context.Context, s Stores, eventID, dateID uint64, courseID *uint64, wrapErr error) error {
	slot, err := s.Events().GetDateSlot(ctx, dateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%w: unknown date slot %d", wrapErr, dateID)
		}
		return err
	}
	if slot.EventID != eventID {
		return fmt.Errorf("%w: date slot %d belongs to another event", wrapErr, dateID)
	}
	if courseID == nil {
		return nil
	}
	course, err := s.Events().GetCourse(ctx, *courseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%w: unknown course %d", wrapErr, *courseID)
		}
		return err
	}
	if course.EventID != eventID {
		return fmt.Errorf("%w: course %d belongs to another event", wrapErr, *courseID)
	}
	offered, err := s.Events().CourseOfferedOn(ctx, *courseID, dateID)
	if err != nil {
		return err
	}
	if !offered {
		return fmt.Errorf("%w: course %q not offered on date slot %d", wrapErr, course.Name, dateID)
	}
	return nil
}
