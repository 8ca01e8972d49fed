package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

type MemoryLedgerSuite struct {
	suite.Suite
	ctx     context.Context
	mem     *MemoryStores
	eventID uint64
	dateID  uint64
	course  uint64
}

func TestMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(MemoryLedgerSuite))
}

func (s *MemoryLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = NewMemoryStores(false)
	s.eventID = s.mem.SeedEvent("ledger test", model.PolicySingle, 1)
	s.dateID = s.mem.SeedDateSlot(s.eventID, "2026-06-01", 2)
	s.course = s.mem.SeedCourse(s.eventID, "Track 1")
	s.mem.SeedCourseDate(s.course, s.dateID, 1)
}

func (s *MemoryLedgerSuite) dateCount() int {
	slots, err := s.mem.Ledger().DateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	return slots[0].ConfirmedCount
}

func (s *MemoryLedgerSuite) courseCount() int {
	cds, err := s.mem.Ledger().CourseDateCounts(s.ctx, s.eventID)
	s.Require().NoError(err)
	return cds[0].ConfirmedCount
}

func (s *MemoryLedgerSuite) TestDecrementBelowZeroViolatesInvariant() {
	err := s.mem.Ledger().DecrementDate(s.ctx, s.dateID)
	s.ErrorIs(err, sentinel.ErrInvariantViolation)
	s.Equal(0, s.dateCount())
}

func (s *MemoryLedgerSuite) TestCourseIncrementMovesBothCounters() {
	err := s.mem.Ledger().IncrementCourseDate(s.ctx, s.course, s.dateID)
	s.Require().NoError(err)
	s.Equal(1, s.dateCount())
	s.Equal(1, s.courseCount())

	err = s.mem.Ledger().DecrementCourseDate(s.ctx, s.course, s.dateID)
	s.Require().NoError(err)
	s.Equal(0, s.dateCount())
	s.Equal(0, s.courseCount())
}

func (s *MemoryLedgerSuite) TestUnknownTargetsAreNotFound() {
	s.ErrorIs(s.mem.Ledger().IncrementDate(s.ctx, 404), sentinel.ErrNotFound)
	s.ErrorIs(s.mem.Ledger().DecrementDate(s.ctx, 404), sentinel.ErrNotFound)
	s.ErrorIs(s.mem.Ledger().IncrementCourseDate(s.ctx, s.course, 404), sentinel.ErrNotFound)
	s.ErrorIs(s.mem.Ledger().IncrementCourseDate(s.ctx, 404, s.dateID), sentinel.ErrNotFound)
}

func (s *MemoryLedgerSuite) TestStrictIncrementStopsAtCapacity() {
	strict := NewMemoryStores(true)
	evID := strict.SeedEvent("strict", model.PolicySingle, 1)
	dateID := strict.SeedDateSlot(evID, "2026-06-02", 1)

	s.Require().NoError(strict.Ledger().IncrementDate(s.ctx, dateID))
	s.ErrorIs(strict.Ledger().IncrementDate(s.ctx, dateID), sentinel.ErrCapacityExceeded)

	slots, err := strict.Ledger().DateCounts(s.ctx, evID)
	s.Require().NoError(err)
	s.Equal(1, slots[0].ConfirmedCount)
}

func (s *MemoryLedgerSuite) TestLenientIncrementOverbooks() {
	s.Require().NoError(s.mem.Ledger().IncrementDate(s.ctx, s.dateID))
	s.Require().NoError(s.mem.Ledger().IncrementDate(s.ctx, s.dateID))
	s.Require().NoError(s.mem.Ledger().IncrementDate(s.ctx, s.dateID))
	s.Equal(3, s.dateCount()) // capacity is 2
}

func (s *MemoryLedgerSuite) TestRunInTxRollsBackOnError() {
	boom := errors.New("boom")
	err := s.mem.RunInTx(s.ctx, func(st service.Stores) error {
		if err := st.Ledger().IncrementDate(s.ctx, s.dateID); err != nil {
			return err
		}
		if err := st.Ledger().IncrementCourseDate(s.ctx, s.course, s.dateID); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(0, s.dateCount())
	s.Equal(0, s.courseCount())
}

func (s *MemoryLedgerSuite) TestRunInTxCommitsOnSuccess() {
	err := s.mem.RunInTx(s.ctx, func(st service.Stores) error {
		return st.Ledger().IncrementDate(s.ctx, s.dateID)
	})
	s.Require().NoError(err)
	s.Equal(1, s.dateCount())
}

func (s *MemoryLedgerSuite) TestConfirmationUpdatesBumpTimestamp() {
	a := &model.Applicant{EventID: s.eventID, Name: "Aoki", Status: model.StatusPending}
	err := s.mem.Applicants().Create(s.ctx, a, []model.CandidateSelection{{DateSlotID: s.dateID, Priority: 1}})
	s.Require().NoError(err)

	cf := &model.Confirmation{ApplicantID: a.ID, DateSlotID: s.dateID, ConfirmedBy: 1}
	s.Require().NoError(s.mem.Confirmations().Create(s.ctx, cf))
	s.False(cf.CreatedAt.IsZero())

	created := cf.UpdatedAt
	s.Require().NoError(s.mem.Confirmations().UpdateCourse(s.ctx, cf.ID, &s.course))
	confs, err := s.mem.Confirmations().ListByApplicant(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(confs, 1)
	s.False(confs[0].UpdatedAt.IsZero())
	s.False(confs[0].UpdatedAt.Before(created))

	afterCourse := confs[0].UpdatedAt
	s.Require().NoError(s.mem.Confirmations().UpdateTarget(s.ctx, cf.ID, s.dateID, nil))
	confs, err = s.mem.Confirmations().ListByApplicant(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(confs[0].UpdatedAt.Before(afterCourse))
}

func (s *MemoryLedgerSuite) TestRunInTxRollsBackRecords() {
	boom := errors.New("boom")
	var createdID uint64
	err := s.mem.RunInTx(s.ctx, func(st service.Stores) error {
		a := &model.Applicant{EventID: s.eventID, Name: "Ghost", Status: model.StatusPending}
		if err := st.Applicants().Create(s.ctx, a, []model.CandidateSelection{{DateSlotID: s.dateID, Priority: 1}}); err != nil {
			return err
		}
		createdID = a.ID
		return boom
	})
	s.ErrorIs(err, boom)
	_, err = s.mem.Applicants().GetByID(s.ctx, createdID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
