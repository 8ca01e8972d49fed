package service_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

type ReconcilerSuite struct {
	suite.Suite
	ctx        context.Context
	mem        *repository.MemoryStores
	engine     *service.ConfirmationEngine
	registrar  *service.Registrar
	reconciler *service.Reconciler

	eventID uint64
	dateA   uint64 // 2026-10-03
	dateB   uint64 // 2026-10-04
	courseX uint64 // "Beginner", offered on dateA

	applicantA uint64 // selects dateA with courseX
	applicantB uint64 // selects dateB without a course
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = repository.NewMemoryStores(false)
	s.engine = service.NewConfirmationEngine(s.mem)
	s.registrar = service.NewRegistrar(s.mem)
	s.reconciler = service.NewReconciler(s.mem, s.engine)

	s.eventID = s.mem.SeedEvent("harvest festival", model.PolicyMultiCandidate, 3)
	s.dateA = s.mem.SeedDateSlot(s.eventID, "2026-10-03", 10)
	s.dateB = s.mem.SeedDateSlot(s.eventID, "2026-10-04", 10)
	s.courseX = s.mem.SeedCourse(s.eventID, "Beginner")
	s.mem.SeedCourseDate(s.courseX, s.dateA, 5)

	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Applicant A",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1}},
	})
	s.Require().NoError(err)
	s.applicantA = a.ID

	b, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Applicant B",
		Selections: []service.SelectionInput{{DateSlotID: s.dateB, Priority: 1}},
	})
	s.Require().NoError(err)
	s.applicantB = b.ID
}

func ref(id uint64) string { return strconv.FormatUint(id, 10) }

func (s *ReconcilerSuite) TestBatchMixedOutcomes() {
	rows := []service.ReconcileRow{
		{Line: 1, ApplicantRef: ref(s.applicantA), Name: "Applicant A", CourseName: "Beginner", DateText: "2026-10-03", Confirm: true},
		{Line: 2, ApplicantRef: ref(s.applicantB), Name: "Applicant B", DateText: "2026-10-04", Confirm: false},
		{Line: 3, ApplicantRef: "999999", Name: "Ghost", DateText: "2026-10-03", Confirm: true},
		{Line: 4, ApplicantRef: ref(s.applicantA), Name: "Applicant A", DateText: "2026-10-04", Confirm: true},
	}

	report, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, rows)
	s.Require().NoError(err)
	s.NotEmpty(report.BatchID)
	s.Equal(1, report.Created)
	s.Equal(0, report.Updated)
	s.Equal(1, report.Skipped)
	s.Equal(2, report.Errors)
	s.Require().Len(report.Rows, 4)
	s.Equal(service.OutcomeCreated, report.Rows[0].Outcome)
	s.Equal(service.OutcomeSkipped, report.Rows[1].Outcome)
	s.Equal(service.OutcomeError, report.Rows[2].Outcome)
	s.Equal("applicant_not_found", report.Rows[2].Reason)
	s.Equal(service.OutcomeError, report.Rows[3].Outcome)
	s.Equal("not_a_selected_date", report.Rows[3].Reason)

	// The failing rows did not poison the good one.
	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, s.applicantA)
	s.Require().NoError(err)
	s.Require().Len(confs, 1)
	s.Equal(s.dateA, confs[0].DateSlotID)
}

func (s *ReconcilerSuite) TestAcceptsHumanDateFormats() {
	rows := []service.ReconcileRow{
		{Line: 1, ApplicantRef: ref(s.applicantA), DateText: "2026/10/03", Confirm: true},
		{Line: 2, ApplicantRef: ref(s.applicantB), DateText: "2026年10月4日", Confirm: true},
	}
	report, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, rows)
	s.Require().NoError(err)
	s.Equal(2, report.Created)
	s.Equal(0, report.Errors)
}

func (s *ReconcilerSuite) TestUnknownCourseFallsBackToSelection() {
	rows := []service.ReconcileRow{
		{Line: 1, ApplicantRef: ref(s.applicantA), CourseName: "No Such Course", DateText: "2026-10-03", Confirm: true},
	}
	report, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, rows)
	s.Require().NoError(err)
	s.Equal(1, report.Created)

	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, s.applicantA)
	s.Require().NoError(err)
	s.Require().Len(confs, 1)
	s.Require().NotNil(confs[0].CourseID)
	s.Equal(s.courseX, *confs[0].CourseID)
}

func (s *ReconcilerSuite) TestRepeatedRowIsUpdateNotDouble() {
	row := service.ReconcileRow{Line: 1, ApplicantRef: ref(s.applicantA), DateText: "2026-10-03", Confirm: true}

	first, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, []service.ReconcileRow{row})
	s.Require().NoError(err)
	s.Equal(1, first.Created)

	second, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, []service.ReconcileRow{row})
	s.Require().NoError(err)
	s.Equal(0, second.Created)
	s.Equal(1, second.Updated)

	slots, err := s.mem.Ledger().DateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	for _, d := range slots {
		if d.ID == s.dateA {
			s.Equal(1, d.ConfirmedCount)
		}
	}
}

func (s *ReconcilerSuite) TestEmptyBatchIsMalformed() {
	_, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, nil)
	s.ErrorIs(err, sentinel.ErrMalformedBatch)
}

func (s *ReconcilerSuite) TestUnknownEventFails() {
	rows := []service.ReconcileRow{{Line: 1, ApplicantRef: ref(s.applicantA), DateText: "2026-10-03", Confirm: true}}
	_, err := s.reconciler.ReconcileBatch(s.ctx, adminID, 987654, rows)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ReconcilerSuite) TestApplicantFromAnotherEventRejected() {
	otherEvent := s.mem.SeedEvent("other", model.PolicySingle, 1)
	otherDate := s.mem.SeedDateSlot(otherEvent, "2026-10-03", 10)
	other, err := s.registrar.CreateApplicant(s.ctx, otherEvent, service.ApplicantInput{
		Name:       "Stranger",
		Selections: []service.SelectionInput{{DateSlotID: otherDate, Priority: 1}},
	})
	s.Require().NoError(err)

	rows := []service.ReconcileRow{{Line: 1, ApplicantRef: ref(other.ID), DateText: "2026-10-03", Confirm: true}}
	report, err := s.reconciler.ReconcileBatch(s.ctx, adminID, s.eventID, rows)
	s.Require().NoError(err)
	s.Equal(1, report.Errors)
	s.Equal("applicant_not_found", report.Rows[0].Reason)
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-10-03", "2026-10-03", true},
		{"2026-8-5", "2026-08-05", true},
		{"2026/10/03", "2026-10-03", true},
		{"2026/8/5", "2026-08-05", true},
		{"2026年10月03日", "2026-10-03", true},
		{"2026年8月5日", "2026-08-05", true},
		{" 2026-10-03 ", "2026-10-03", true},
		{"10/03/2026", "", false},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := service.NormalizeDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizeDate(%q) = (%q, %t), want (%q, %t)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
