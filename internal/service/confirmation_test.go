package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

const adminID = uint64(99)

type ConfirmationEngineSuite struct {
	suite.Suite
	ctx       context.Context
	mem       *repository.MemoryStores
	engine    *service.ConfirmationEngine
	registrar *service.Registrar

	eventID uint64
	dateA   uint64
	dateB   uint64
	courseX uint64
	courseY uint64
}

func TestConfirmationEngineSuite(t *testing.T) {
	suite.Run(t, new(ConfirmationEngineSuite))
}

func (s *ConfirmationEngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = repository.NewMemoryStores(false)
	s.engine = service.NewConfirmationEngine(s.mem)
	s.registrar = service.NewRegistrar(s.mem)

	s.eventID = s.mem.SeedEvent("autumn training camp", model.PolicyMultiCandidate, 3)
	s.dateA = s.mem.SeedDateSlot(s.eventID, "2026-10-03", 5)
	s.dateB = s.mem.SeedDateSlot(s.eventID, "2026-10-04", 5)
	s.courseX = s.mem.SeedCourse(s.eventID, "Beginner")
	s.courseY = s.mem.SeedCourse(s.eventID, "Advanced")
	s.mem.SeedCourseDate(s.courseX, s.dateA, 3)
	s.mem.SeedCourseDate(s.courseY, s.dateA, 3)
}

func (s *ConfirmationEngineSuite) newApplicant(sels ...service.SelectionInput) uint64 {
	a, err := s.registrar.CreateApplicant(s.ctx, s.eventID, service.ApplicantInput{
		Name:       "Sato Hanako",
		Selections: sels,
	})
	s.Require().NoError(err)
	return a.ID
}

func (s *ConfirmationEngineSuite) dateCount(dateID uint64) int {
	slots, err := s.mem.Ledger().DateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	for _, d := range slots {
		if d.ID == dateID {
			return d.ConfirmedCount
		}
	}
	s.FailNow("date slot not found")
	return -1
}

func (s *ConfirmationEngineSuite) courseCount(courseID, dateID uint64) int {
	cds, err := s.mem.Ledger().CourseDateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	for _, cd := range cds {
		if cd.CourseID == courseID && cd.DateSlotID == dateID {
			return cd.ConfirmedCount
		}
	}
	s.FailNow("course date not found")
	return -1
}

func (s *ConfirmationEngineSuite) status(applicantID uint64) string {
	a, err := s.mem.Applicants().GetByID(s.ctx, applicantID)
	s.Require().NoError(err)
	return a.Status
}

func (s *ConfirmationEngineSuite) TestConfirmCreatesAndCounts() {
	id := s.newApplicant(
		service.SelectionInput{DateSlotID: s.dateA, Priority: 1},
		service.SelectionInput{DateSlotID: s.dateB, Priority: 2},
	)
	s.Equal(model.StatusPending, s.status(id))

	change, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, nil)
	s.Require().NoError(err)
	s.Equal(service.ActionCreated, change.Action)
	s.Equal("2026-10-03", change.Date)
	s.Equal(adminID, change.ConfirmedBy)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(model.StatusConfirmed, s.status(id))
}

func (s *ConfirmationEngineSuite) TestReconfirmSameTargetIsNoop() {
	id := s.newApplicant(service.SelectionInput{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1})

	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseX)
	s.Require().NoError(err)
	change, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseX)
	s.Require().NoError(err)
	s.Equal(service.ActionUnchanged, change.Action)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(1, s.courseCount(s.courseX, s.dateA))
}

func (s *ConfirmationEngineSuite) TestCourseChangeKeepsDateCountSteady() {
	id := s.newApplicant(service.SelectionInput{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1})

	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseX)
	s.Require().NoError(err)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(1, s.courseCount(s.courseX, s.dateA))

	// X -> Y
	change, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseY)
	s.Require().NoError(err)
	s.Equal(service.ActionUpdated, change.Action)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(0, s.courseCount(s.courseX, s.dateA))
	s.Equal(1, s.courseCount(s.courseY, s.dateA))

	// Y -> no course
	change, err = s.engine.Confirm(s.ctx, adminID, id, s.dateA, nil)
	s.Require().NoError(err)
	s.Equal(service.ActionUpdated, change.Action)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(0, s.courseCount(s.courseY, s.dateA))

	// no course -> X
	change, err = s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseX)
	s.Require().NoError(err)
	s.Equal(service.ActionUpdated, change.Action)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(1, s.courseCount(s.courseX, s.dateA))
}

func (s *ConfirmationEngineSuite) TestSecondDateRejectedUnderSingleConfirm() {
	id := s.newApplicant(
		service.SelectionInput{DateSlotID: s.dateA, Priority: 1},
		service.SelectionInput{DateSlotID: s.dateB, Priority: 2},
	)
	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, nil)
	s.Require().NoError(err)

	_, err = s.engine.Confirm(s.ctx, adminID, id, s.dateB, nil)
	s.ErrorIs(err, sentinel.ErrPolicyViolation)
	s.Equal(1, s.dateCount(s.dateA))
	s.Equal(0, s.dateCount(s.dateB))
}

func (s *ConfirmationEngineSuite) TestMultiDateConfirmsIndependently() {
	evID := s.mem.SeedEvent("weekly lecture series", model.PolicyMultiDate, 4)
	d1 := s.mem.SeedDateSlot(evID, "2026-11-01", 5)
	d2 := s.mem.SeedDateSlot(evID, "2026-11-08", 5)
	a, err := s.registrar.CreateApplicant(s.ctx, evID, service.ApplicantInput{
		Name: "Yamada Jiro",
		Selections: []service.SelectionInput{
			{DateSlotID: d1, Priority: 1},
			{DateSlotID: d2, Priority: 2},
		},
	})
	s.Require().NoError(err)

	_, err = s.engine.Confirm(s.ctx, adminID, a.ID, d1, nil)
	s.Require().NoError(err)
	change, err := s.engine.Confirm(s.ctx, adminID, a.ID, d2, nil)
	s.Require().NoError(err)
	s.Equal(service.ActionCreated, change.Action)

	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Len(confs, 2)
}

func (s *ConfirmationEngineSuite) TestConfirmUnselectedDateFails() {
	id := s.newApplicant(service.SelectionInput{DateSlotID: s.dateA, Priority: 1})

	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateB, nil)
	s.ErrorIs(err, sentinel.ErrNotASelectedDate)
	s.Equal(0, s.dateCount(s.dateB))
}

func (s *ConfirmationEngineSuite) TestConfirmUnknownApplicantFails() {
	_, err := s.engine.Confirm(s.ctx, adminID, 424242, s.dateA, nil)
	s.ErrorIs(err, sentinel.ErrApplicantNotFound)
}

func (s *ConfirmationEngineSuite) TestConfirmCourseNotOfferedFails() {
	// Neither course is offered on dateB.
	id := s.newApplicant(service.SelectionInput{DateSlotID: s.dateB, Priority: 1})

	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateB, &s.courseY)
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(0, s.dateCount(s.dateB))
}

func (s *ConfirmationEngineSuite) TestUnconfirmReleasesAndRevertsStatus() {
	id := s.newApplicant(service.SelectionInput{DateSlotID: s.dateA, CourseID: &s.courseX, Priority: 1})
	_, err := s.engine.Confirm(s.ctx, adminID, id, s.dateA, &s.courseX)
	s.Require().NoError(err)

	removed, err := s.engine.Unconfirm(s.ctx, id, &s.dateA)
	s.Require().NoError(err)
	s.Len(removed, 1)
	s.Equal(service.ActionRemoved, removed[0].Action)
	s.Equal(0, s.dateCount(s.dateA))
	s.Equal(0, s.courseCount(s.courseX, s.dateA))
	s.Equal(model.StatusPending, s.status(id))

	_, err = s.engine.Unconfirm(s.ctx, id, &s.dateA)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ConfirmationEngineSuite) TestUnconfirmAllRemovesEverything() {
	evID := s.mem.SeedEvent("two day workshop", model.PolicyMultiDate, 2)
	d1 := s.mem.SeedDateSlot(evID, "2026-12-05", 5)
	d2 := s.mem.SeedDateSlot(evID, "2026-12-06", 5)
	a, err := s.registrar.CreateApplicant(s.ctx, evID, service.ApplicantInput{
		Name: "Suzuki Kenta",
		Selections: []service.SelectionInput{
			{DateSlotID: d1, Priority: 1},
			{DateSlotID: d2, Priority: 2},
		},
	})
	s.Require().NoError(err)
	_, err = s.engine.Confirm(s.ctx, adminID, a.ID, d1, nil)
	s.Require().NoError(err)
	_, err = s.engine.Confirm(s.ctx, adminID, a.ID, d2, nil)
	s.Require().NoError(err)

	removed, err := s.engine.Unconfirm(s.ctx, a.ID, nil)
	s.Require().NoError(err)
	s.Len(removed, 2)

	got, err := s.mem.Applicants().GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, got.Status)
	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Empty(confs)
}

func (s *ConfirmationEngineSuite) TestStrictCapacityRejectsAndRollsBack() {
	mem := repository.NewMemoryStores(true)
	engine := service.NewConfirmationEngine(mem)
	registrar := service.NewRegistrar(mem)
	evID := mem.SeedEvent("tiny venue", model.PolicySingle, 1)
	d := mem.SeedDateSlot(evID, "2026-09-01", 1)

	first, err := registrar.CreateApplicant(s.ctx, evID, service.ApplicantInput{
		Name:       "First",
		Selections: []service.SelectionInput{{DateSlotID: d, Priority: 1}},
	})
	s.Require().NoError(err)
	second, err := registrar.CreateApplicant(s.ctx, evID, service.ApplicantInput{
		Name:       "Second",
		Selections: []service.SelectionInput{{DateSlotID: d, Priority: 1}},
	})
	s.Require().NoError(err)

	_, err = engine.Confirm(s.ctx, adminID, first.ID, d, nil)
	s.Require().NoError(err)
	_, err = engine.Confirm(s.ctx, adminID, second.ID, d, nil)
	s.ErrorIs(err, sentinel.ErrCapacityExceeded)

	// The rejected confirmation left nothing behind.
	confs, err := mem.Confirmations().ListByApplicant(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Empty(confs)
	got, err := mem.Applicants().GetByID(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, got.Status)
}

func (s *ConfirmationEngineSuite) TestLenientModeAdmitsOverbook() {
	mem := repository.NewMemoryStores(false)
	engine := service.NewConfirmationEngine(mem)
	registrar := service.NewRegistrar(mem)
	evID := mem.SeedEvent("overbookable", model.PolicySingle, 1)
	d := mem.SeedDateSlot(evID, "2026-09-02", 1)

	for _, name := range []string{"First", "Second"} {
		a, err := registrar.CreateApplicant(s.ctx, evID, service.ApplicantInput{
			Name:       name,
			Selections: []service.SelectionInput{{DateSlotID: d, Priority: 1}},
		})
		s.Require().NoError(err)
		_, err = engine.Confirm(s.ctx, adminID, a.ID, d, nil)
		s.Require().NoError(err)
	}

	slots, err := mem.Ledger().DateCounts(s.ctx, evID)
	s.Require().NoError(err)
	s.Equal(2, slots[0].ConfirmedCount)
}

func (s *ConfirmationEngineSuite) TestConcurrentConfirmsCountExactly() {
	const n = 24
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = s.newApplicant(service.SelectionInput{DateSlotID: s.dateA, Priority: 1})
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.engine.Confirm(s.ctx, adminID, ids[i], s.dateA, nil)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		s.NoError(errs[i])
	}
	s.Equal(n, s.dateCount(s.dateA))
}
