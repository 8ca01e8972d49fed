package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

type RegistrarSuite struct {
	suite.Suite
	ctx       context.Context
	mem       *repository.MemoryStores
	registrar *service.Registrar
	engine    *service.ConfirmationEngine

	eventID uint64
	dateA   uint64
	dateB   uint64
	courseX uint64

	otherEventID uint64
	otherDate    uint64
}

func TestRegistrarSuite(t *testing.T) {
	suite.Run(t, new(RegistrarSuite))
}

func (s *RegistrarSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = repository.NewMemoryStores(false)
	s.registrar = service.NewRegistrar(s.mem)
	s.engine = service.NewConfirmationEngine(s.mem)

	s.eventID = s.mem.SeedEvent("spring seminar", model.PolicyMultiCandidate, 2)
	s.dateA = s.mem.SeedDateSlot(s.eventID, "2026-04-11", 10)
	s.dateB = s.mem.SeedDateSlot(s.eventID, "2026-04-12", 10)
	s.courseX = s.mem.SeedCourse(s.eventID, "Morning")
	s.mem.SeedCourseDate(s.courseX, s.dateA, 5)

	s.otherEventID = s.mem.SeedEvent("unrelated event", model.PolicySingle, 1)
	s.otherDate = s.mem.SeedDateSlot(s.otherEventID, "2026-04-11", 10)
}

func (s *RegistrarSuite) TestCreateApplicantPersistsSelections() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:  "  Tanaka Ichiro ",
		Email: "Tanaka@Example.COM",
		Selections: []service.SelectionInput{
			{DateSlotID: s.dateB, Priority: 2},
			{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1},
		},
	})
	s.Require().NoError(err)
	s.Equal("Tanaka Ichiro", a.Name)
	s.Equal("tanaka@example.com", a.Email)
	s.Equal(model.StatusPending, a.Status)

	sels, err := s.mem.Applicants().Selections(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(sels, 2)
	s.Equal(s.dateA, sels[0].DateSlotID) // priority 1 first
	s.Require().NotNil(sels[0].CourseID)
	s.Equal(s.courseX, *sels[0].CourseID)
	s.Equal(s.dateB, sels[1].DateSlotID)
}

func (s *RegistrarSuite) TestCreateRejectsEmptyName() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "   ",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, Priority: 1}},
	})
	s.ErrorIs(err, sentinel.ErrMissingField)
}

func (s *RegistrarSuite) TestCreateRejectsNoSelections() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{Name: "Tanaka"})
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
}

func (s *RegistrarSuite) TestCreateRejectsOverSelectionLimit() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.otherEventID, service.ApplicantInput{
		Name: "Tanaka",
		Selections: []service.SelectionInput{
			{DateSlotID: s.otherDate, Priority: 1},
			{DateSlotID: s.otherDate, Priority: 2},
		},
	})
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
}

func (s *RegistrarSuite) TestCreateRejectsDuplicateDates() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name: "Tanaka",
		Selections: []service.SelectionInput{
			{DateSlotID: s.dateA, Priority: 1},
			{DateSlotID: s.dateA, Priority: 2},
		},
	})
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
}

func (s *RegistrarSuite) TestCreateRejectsForeignDateSlot() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.otherDate, Priority: 1}},
	})
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
}

func (s *RegistrarSuite) TestCreateRejectsCourseNotOfferedOnDate() {
	_, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.dateB, CourseID: &s.courseX, Priority: 1}},
	})
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
}

func (s *RegistrarSuite) TestReplaceSelectionRepoints() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, Priority: 1}},
	})
	s.Require().NoError(err)

	err = s.registrar.ReplaceSelection(s.ctx, a.ID, s.dateA, s.dateB, nil)
	s.Require().NoError(err)

	sels, err := s.mem.Applicants().Selections(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(sels, 1)
	s.Equal(s.dateB, sels[0].DateSlotID)
}

func (s *RegistrarSuite) TestReplaceSelectionMigratesConfirmation() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1}},
	})
	s.Require().NoError(err)
	_, err = s.engine.Confirm(s.ctx, adminID, a.ID, s.dateA, &s.courseX)
	s.Require().NoError(err)

	err = s.registrar.ReplaceSelection(s.ctx, a.ID, s.dateA, s.dateB, nil)
	s.Require().NoError(err)

	slots, err := s.mem.Ledger().DateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	counts := map[uint64]int{}
	for _, d := range slots {
		counts[d.ID] = d.ConfirmedCount
	}
	s.Equal(0, counts[s.dateA])
	s.Equal(1, counts[s.dateB])

	cds, err := s.mem.Ledger().CourseDateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(0, cds[0].ConfirmedCount)

	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(confs, 1)
	s.Equal(s.dateB, confs[0].DateSlotID)
	s.Nil(confs[0].CourseID)
}

func (s *RegistrarSuite) TestReplaceSelectionRejectsCrossEvent() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, Priority: 1}},
	})
	s.Require().NoError(err)

	err = s.registrar.ReplaceSelection(s.ctx, a.ID, s.dateA, s.otherDate, nil)
	s.ErrorIs(err, sentinel.ErrCrossEventEdit)

	sels, err := s.mem.Applicants().Selections(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(s.dateA, sels[0].DateSlotID)
}

func (s *RegistrarSuite) TestReplaceSelectionRejectsDuplicateTarget() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name: "Tanaka",
		Selections: []service.SelectionInput{
			{DateSlotID: s.dateA, Priority: 1},
			{DateSlotID: s.dateB, Priority: 2},
		},
	})
	s.Require().NoError(err)

	err = s.registrar.ReplaceSelection(s.ctx, a.ID, s.dateA, s.dateB, nil)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *RegistrarSuite) TestDeleteApplicantReleasesCounters() {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Tanaka",
		Selections: []service.SelectionInput{{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1}},
	})
	s.Require().NoError(err)
	_, err = s.engine.Confirm(s.ctx, adminID, a.ID, s.dateA, &s.courseX)
	s.Require().NoError(err)

	err = s.registrar.DeleteApplicant(s.ctx, a.ID)
	s.Require().NoError(err)

	_, err = s.mem.Applicants().GetByID(s.ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	slots, err := s.mem.Ledger().DateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	for _, d := range slots {
		s.Equal(0, d.ConfirmedCount)
	}
	cds, err := s.mem.Ledger().CourseDateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(0, cds[0].ConfirmedCount)
}

func (s *RegistrarSuite) TestDeleteUnknownApplicant() {
	err := s.registrar.DeleteApplicant(s.ctx, 777777)
	s.ErrorIs(err, sentinel.ErrApplicantNotFound)
}
