package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/event-registration/internal/metrics"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
)

// Action names a confirmation engine transition outcome.
type Action string

const (
	ActionCreated   Action = "created"   // first confirmation for this applicant/date
	ActionUpdated   Action = "updated"   // course changed on an already confirmed date
	ActionUnchanged Action = "unchanged" // idempotent re-confirm, counters untouched
	ActionRemoved   Action = "removed"   // confirmation reverted
)

// StatusChange describes the state resulting from a confirm or
// unconfirm call. It carries everything a caller needs to trigger a
// notification to the applicant without another lookup.
type StatusChange struct {
	ApplicantID   uint64  `json:"applicant_id"`
	ApplicantName string  `json:"applicant_name"`
	EventID       uint64  `json:"event_id"`
	DateSlotID    uint64  `json:"date_slot_id"`
	Date          string  `json:"date"`
	CourseID      *uint64 `json:"course_id,omitempty"`
	CourseName    string  `json:"course_name,omitempty"`
	Status        string  `json:"status"`
	Action        Action  `json:"action"`
	ConfirmedBy   uint64  `json:"confirmed_by"`
}

// ConfirmationEngine converts candidate selections into confirmed,
// capacity-consuming participations and reverts them. It is the only
// component that creates or deletes confirmation records, and every
// record mutation travels with its ledger mutation inside one
// transaction: partial application is treated as a bug, not a degraded
// mode.
//
// Per (applicant, date) the states are Unconfirmed -> Confirmed ->
// Unconfirmed; re-confirming the same (date, course) pair is a no-op.
// Which candidate an administrator confirms is their decision; the
// engine never auto-picks by priority.
type ConfirmationEngine struct {
	tx StoreTx
}

// NewConfirmationEngine returns an engine bound to the given
// transactional store boundary.
func NewConfirmationEngine(tx StoreTx) *ConfirmationEngine {
	if tx == nil {
		panic("nil StoreTx passed to NewConfirmationEngine")
	}
	return &ConfirmationEngine{tx: tx}
}

// Confirm locks the applicant's candidate selection for dateID,
// optionally under a course. confirmedBy is the acting admin and is
// recorded on the confirmation row.
//
// Failure modes: ErrApplicantNotFound, ErrNotASelectedDate when the
// date was never selected, ErrConflict when the course is not offered
// on the date, ErrPolicyViolation when a confirmation on a different
// date already exists under a non-multi_date policy, and
// ErrCapacityExceeded when strict enforcement is on and the slot is
// full.
func (e *ConfirmationEngine) Confirm(ctx context.Context, confirmedBy, applicantID, dateID uint64, courseID *uint64) (*StatusChange, error) {
	var change *StatusChange
	err := e.tx.RunInTx(ctx, func(s Stores) error {
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
		if !selectsDate(sels, dateID) {
			return sentinel.ErrNotASelectedDate
		}
		slot, err := s.Events().GetDateSlot(ctx, dateID)
		if err != nil {
			return err
		}
		if courseID != nil {
			offered, err := s.Events().CourseOfferedOn(ctx, *courseID, dateID)
			if err != nil {
				return err
			}
			if !offered {
				return fmt.Errorf("%w: course %d not offered on date %d", sentinel.ErrConflict, *courseID, dateID)
			}
		}
		event, err := s.Events().GetByID(ctx, applicant.EventID)
		if err != nil {
			return err
		}
		rule := ResolvePolicy(event)

		confs, err := s.Confirmations().ListByApplicant(ctx, applicantID)
		if err != nil {
			return err
		}
		var onDate *model.Confirmation
		for i := range confs {
			if confs[i].DateSlotID == dateID {
				onDate = &confs[i]
				continue
			}
			if rule.Mode != model.PolicyMultiDate {
				return fmt.Errorf("%w: %s policy, already confirmed on another date", sentinel.ErrPolicyViolation, rule.Mode)
			}
		}

		var action Action
		switch {
		case onDate != nil && onDate.SameCourse(courseID):
			// Idempotent re-confirm: identical target, counters stay put.
			action = ActionUnchanged
		case onDate != nil:
			if err := e.moveCourse(ctx, s, onDate, dateID, courseID); err != nil {
				return err
			}
			if err := s.Confirmations().UpdateCourse(ctx, onDate.ID, courseID); err != nil {
				return err
			}
			action = ActionUpdated
		default:
			cf := &model.Confirmation{
				ApplicantID: applicantID,
				DateSlotID:  dateID,
				CourseID:    courseID,
				ConfirmedBy: confirmedBy,
			}
			if err := s.Confirmations().Create(ctx, cf); err != nil {
				return err
			}
			if courseID != nil {
				err = s.Ledger().IncrementCourseDate(ctx, *courseID, dateID)
			} else {
				err = s.Ledger().IncrementDate(ctx, dateID)
			}
			if err != nil {
				return err
			}
			if applicant.Status != model.StatusConfirmed {
				if err := s.Applicants().SetStatus(ctx, applicantID, model.StatusConfirmed); err != nil {
					return err
				}
			}
			action = ActionCreated
		}

		courseName := ""
		if courseID != nil {
			course, err := s.Events().GetCourse(ctx, *courseID)
			if err != nil {
				return err
			}
			courseName = course.Name
		}
		change = &StatusChange{
			ApplicantID:   applicantID,
			ApplicantName: applicant.Name,
			EventID:       applicant.EventID,
			DateSlotID:    dateID,
			Date:          slot.DateKey(),
			CourseID:      courseID,
			CourseName:    courseName,
			Status:        model.StatusConfirmed,
			Action:        action,
			ConfirmedBy:   confirmedBy,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ConfirmationsTotal.WithLabelValues(string(change.Action)).Inc()
	return change, nil
}

// moveCourse shifts the course-scoped counters for a course change
// without double-counting the date-level counter. The course-scoped
// ledger operations each carry a paired date-level adjustment, so the
// transitions compose to a net zero on the date slot:
//
//	A  -> B  : decrement (A,date), increment (B,date)
//	A  -> ∅  : decrement (A,date), increment date
//	∅  -> B  : decrement date,     increment (B,date)
func (e *ConfirmationEngine) moveCourse(ctx context.Context, s Stores, cur *model.Confirmation, dateID uint64, courseID *uint64) error {
	led := s.Ledger()
	switch {
	case cur.CourseID != nil && courseID != nil:
		if err := led.DecrementCourseDate(ctx, *cur.CourseID, dateID); err != nil {
			return err
		}
		return led.IncrementCourseDate(ctx, *courseID, dateID)
	case cur.CourseID != nil:
		if err := led.DecrementCourseDate(ctx, *cur.CourseID, dateID); err != nil {
			return err
		}
		return led.IncrementDate(ctx, dateID)
	default:
		if err := led.DecrementDate(ctx, dateID); err != nil {
			return err
		}
		return led.IncrementCourseDate(ctx, *courseID, dateID)
	}
}

// Unconfirm reverts confirmations for an applicant. With a dateID it
// removes only that date's confirmation; with nil it removes all of
// them (full status revert). Each removal releases its counters. When
// no confirmation matches, ErrNotFound is returned rather than a
// silent success. Once the applicant holds no confirmations the
// denormalized status flips back to pending.
func (e *ConfirmationEngine) Unconfirm(ctx context.Context, applicantID uint64, dateID *uint64) ([]StatusChange, error) {
	var removed []StatusChange
	err := e.tx.RunInTx(ctx, func(s Stores) error {
		removed = removed[:0]
		applicant, err := s.Applicants().GetByID(ctx, applicantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return sentinel.ErrApplicantNotFound
			}
			return err
		}
		confs, err := s.Confirmations().ListByApplicant(ctx, applicantID)
		if err != nil {
			return err
		}
		targets := confs
		if dateID != nil {
			targets = targets[:0:0]
			for _, cf := range confs {
				if cf.DateSlotID == *dateID {
					targets = append(targets, cf)
				}
			}
		}
		if len(targets) == 0 {
			return sentinel.ErrNotFound
		}

		status := applicant.Status
		if len(targets) == len(confs) {
			status = model.StatusPending
		}
		for _, cf := range targets {
			if err := s.Confirmations().Delete(ctx, cf.ID); err != nil {
				return err
			}
			if cf.CourseID != nil {
				err = s.Ledger().DecrementCourseDate(ctx, *cf.CourseID, cf.DateSlotID)
			} else {
				err = s.Ledger().DecrementDate(ctx, cf.DateSlotID)
			}
			if err != nil {
				return err
			}
			slot, err := s.Events().GetDateSlot(ctx, cf.DateSlotID)
			if err != nil {
				return err
			}
			courseName := ""
			if cf.CourseID != nil {
				course, err := s.Events().GetCourse(ctx, *cf.CourseID)
				if err != nil {
					return err
				}
				courseName = course.Name
			}
			removed = append(removed, StatusChange{
				ApplicantID:   applicantID,
				ApplicantName: applicant.Name,
				EventID:       applicant.EventID,
				DateSlotID:    cf.DateSlotID,
				Date:          slot.DateKey(),
				CourseID:      cf.CourseID,
				CourseName:    courseName,
				Status:        status,
				Action:        ActionRemoved,
			})
		}
		if status == model.StatusPending && applicant.Status != model.StatusPending {
			if err := s.Applicants().SetStatus(ctx, applicantID, model.StatusPending); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for range removed {
		metrics.ConfirmationsTotal.WithLabelValues(string(ActionRemoved)).Inc()
	}
	return removed, nil
}

// selectsDate reports whether any candidate selection targets dateID.
func selectsDate(sels []model.CandidateSelection, dateID uint64) bool {
	for _, sel := range sels {
		if sel.DateSlotID == dateID {
			return true
		}
	}
	return false
}
