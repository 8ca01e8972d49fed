package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/sentinel"
	"github.com/iliyamo/event-registration/internal/service"
)

// memState holds every table as a map of values. Keeping values rather
// than pointers makes snapshotting a matter of copying maps.
type memState struct {
	nextID        uint64
	events        map[uint64]model.Event
	dateSlots     map[uint64]model.DateSlot
	courses       map[uint64]model.Course
	courseDates   map[uint64]model.CourseDate
	applicants    map[uint64]model.Applicant
	selections    map[uint64]model.CandidateSelection
	confirmations map[uint64]model.Confirmation
}

func newMemState() *memState {
	return &memState{
		events:        make(map[uint64]model.Event),
		dateSlots:     make(map[uint64]model.DateSlot),
		courses:       make(map[uint64]model.Course),
		courseDates:   make(map[uint64]model.CourseDate),
		applicants:    make(map[uint64]model.Applicant),
		selections:    make(map[uint64]model.CandidateSelection),
		confirmations: make(map[uint64]model.Confirmation),
	}
}

// mustDate parses a 2006-01-02 calendar date for seed data.
func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("bad seed date " + s)
	}
	return t
}

func cloneID(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (st *memState) clone() *memState {
	c := &memState{
		nextID:        st.nextID,
		events:        make(map[uint64]model.Event, len(st.events)),
		dateSlots:     make(map[uint64]model.DateSlot, len(st.dateSlots)),
		courses:       make(map[uint64]model.Course, len(st.courses)),
		courseDates:   make(map[uint64]model.CourseDate, len(st.courseDates)),
		applicants:    make(map[uint64]model.Applicant, len(st.applicants)),
		selections:    make(map[uint64]model.CandidateSelection, len(st.selections)),
		confirmations: make(map[uint64]model.Confirmation, len(st.confirmations)),
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.dateSlots {
		c.dateSlots[k] = v
	}
	for k, v := range st.courses {
		c.courses[k] = v
	}
	for k, v := range st.courseDates {
		c.courseDates[k] = v
	}
	for k, v := range st.applicants {
		c.applicants[k] = v
	}
	for k, v := range st.selections {
		v.CourseID = cloneID(v.CourseID)
		c.selections[k] = v
	}
	for k, v := range st.confirmations {
		v.CourseID = cloneID(v.CourseID)
		c.confirmations[k] = v
	}
	return c
}

func (st *memState) id() uint64 {
	st.nextID++
	return st.nextID
}

// MemoryStores is an in-memory implementation of service.Stores and
// service.StoreTx used by the test suites and local development. Direct
// store access locks per call; RunInTx holds the lock for the whole
// callback and restores a snapshot if it fails, mirroring the rollback
// behavior of the MySQL transaction.
type MemoryStores struct {
	mu     sync.Mutex
	strict bool
	st     *memState
}

// NewMemoryStores returns an empty in-memory store set. strictCapacity
// selects hard capacity enforcement, like its MySQL counterpart.
func NewMemoryStores(strictCapacity bool) *MemoryStores {
	return &MemoryStores{strict: strictCapacity, st: newMemState()}
}

// acquire locks the store when lock is true and returns the matching
// release. Transaction-scoped views pass false because RunInTx already
// holds the lock.
func (m *MemoryStores) acquire(lock bool) func() {
	if !lock {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStores) Events() service.EventStore {
	return &memEvents{m: m, lock: true}
}

func (m *MemoryStores) Applicants() service.ApplicantStore {
	return &memApplicants{m: m, lock: true}
}

func (m *MemoryStores) Confirmations() service.ConfirmationStore {
	return &memConfirmations{m: m, lock: true}
}

func (m *MemoryStores) Ledger() service.CapacityLedger {
	return &memLedger{m: m, lock: true}
}

// RunInTx serializes the callback under the store lock and rolls the
// whole state back to a pre-call snapshot when fn fails.
func (m *MemoryStores) RunInTx(ctx context.Context, fn func(s service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.st.clone()
	if err := fn(&txStores{m: m}); err != nil {
		m.st = snap
		return err
	}
	return nil
}

// txStores is the transaction-scoped view handed to RunInTx callbacks.
type txStores struct {
	m *MemoryStores
}

func (t *txStores) Events() service.EventStore               { return &memEvents{m: t.m} }
func (t *txStores) Applicants() service.ApplicantStore       { return &memApplicants{m: t.m} }
func (t *txStores) Confirmations() service.ConfirmationStore { return &memConfirmations{m: t.m} }
func (t *txStores) Ledger() service.CapacityLedger           { return &memLedger{m: t.m} }

// Seed helpers populate the catalog, which in production is written by
// the external event admin UI.

// SeedEvent inserts an event and returns its ID.
func (m *MemoryStores) SeedEvent(name string, policy model.Policy, maxSelections int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.st.id()
	m.st.events[id] = model.Event{ID: id, Name: name, Policy: policy, MaxSelections: maxSelections}
	return id
}

// SeedDateSlot inserts a date slot for an event and returns its ID.
// date is a calendar date in 2006-01-02 form.
func (m *MemoryStores) SeedDateSlot(eventID uint64, date string, capacity int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.st.id()
	m.st.dateSlots[id] = model.DateSlot{ID: id, EventID: eventID, Date: mustDate(date), Capacity: capacity}
	return id
}

// SeedCourse inserts a course for an event and returns its ID.
func (m *MemoryStores) SeedCourse(eventID uint64, name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.st.id()
	m.st.courses[id] = model.Course{ID: id, EventID: eventID, Name: name}
	return id
}

// SeedCourseDate offers a course on a date slot with its own capacity
// and returns the link's ID.
func (m *MemoryStores) SeedCourseDate(courseID, dateID uint64, capacity int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.st.id()
	m.st.courseDates[id] = model.CourseDate{ID: id, CourseID: courseID, DateSlotID: dateID, Capacity: capacity}
	return id
}

// memEvents implements service.EventStore over memState.
type memEvents struct {
	m    *MemoryStores
	lock bool
}

func (e *memEvents) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	defer e.m.acquire(e.lock)()
	ev, ok := e.m.st.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ev, nil
}

func (e *memEvents) DateSlots(ctx context.Context, eventID uint64) ([]model.DateSlot, error) {
	defer e.m.acquire(e.lock)()
	slots := make([]model.DateSlot, 0)
	for _, d := range e.m.st.dateSlots {
		if d.EventID == eventID {
			slots = append(slots, d)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Date.Before(slots[j].Date) })
	return slots, nil
}

func (e *memEvents) GetDateSlot(ctx context.Context, dateID uint64) (*model.DateSlot, error) {
	defer e.m.acquire(e.lock)()
	d, ok := e.m.st.dateSlots[dateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (e *memEvents) GetCourse(ctx context.Context, courseID uint64) (*model.Course, error) {
	defer e.m.acquire(e.lock)()
	c, ok := e.m.st.courses[courseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (e *memEvents) CourseByName(ctx context.Context, eventID uint64, name string) (*model.Course, error) {
	defer e.m.acquire(e.lock)()
	name = strings.TrimSpace(name)
	for _, c := range e.m.st.courses {
		if c.EventID == eventID && c.Name == name {
			course := c
			return &course, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (e *memEvents) CourseOfferedOn(ctx context.Context, courseID, dateID uint64) (bool, error) {
	defer e.m.acquire(e.lock)()
	for _, cd := range e.m.st.courseDates {
		if cd.CourseID == courseID && cd.DateSlotID == dateID {
			return true, nil
		}
	}
	return false, nil
}

// memApplicants implements service.ApplicantStore over memState.
type memApplicants struct {
	m    *MemoryStores
	lock bool
}

func (a *memApplicants) Create(ctx context.Context, app *model.Applicant, sels []model.CandidateSelection) error {
	defer a.m.acquire(a.lock)()
	st := a.m.st
	app.ID = st.id()
	st.applicants[app.ID] = *app
	for i := range sels {
		sels[i].ID = st.id()
		sels[i].ApplicantID = app.ID
		st.selections[sels[i].ID] = sels[i]
	}
	return nil
}

func (a *memApplicants) GetByID(ctx context.Context, id uint64) (*model.Applicant, error) {
	defer a.m.acquire(a.lock)()
	app, ok := a.m.st.applicants[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &app, nil
}

func (a *memApplicants) Selections(ctx context.Context, applicantID uint64) ([]model.CandidateSelection, error) {
	defer a.m.acquire(a.lock)()
	sels := make([]model.CandidateSelection, 0)
	for _, s := range a.m.st.selections {
		if s.ApplicantID == applicantID {
			s.CourseID = cloneID(s.CourseID)
			sels = append(sels, s)
		}
	}
	sort.Slice(sels, func(i, j int) bool {
		if sels[i].Priority != sels[j].Priority {
			return sels[i].Priority < sels[j].Priority
		}
		return sels[i].ID < sels[j].ID
	})
	return sels, nil
}

func (a *memApplicants) UpdateSelection(ctx context.Context, selectionID, dateID uint64, courseID *uint64) error {
	defer a.m.acquire(a.lock)()
	s, ok := a.m.st.selections[selectionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.DateSlotID = dateID
	s.CourseID = cloneID(courseID)
	a.m.st.selections[selectionID] = s
	return nil
}

func (a *memApplicants) SetStatus(ctx context.Context, applicantID uint64, status string) error {
	defer a.m.acquire(a.lock)()
	app, ok := a.m.st.applicants[applicantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	app.Status = status
	a.m.st.applicants[applicantID] = app
	return nil
}

func (a *memApplicants) Delete(ctx context.Context, applicantID uint64) error {
	defer a.m.acquire(a.lock)()
	st := a.m.st
	if _, ok := st.applicants[applicantID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(st.applicants, applicantID)
	for id, s := range st.selections {
		if s.ApplicantID == applicantID {
			delete(st.selections, id)
		}
	}
	for id, c := range st.confirmations {
		if c.ApplicantID == applicantID {
			delete(st.confirmations, id)
		}
	}
	return nil
}

// memConfirmations implements service.ConfirmationStore over memState.
type memConfirmations struct {
	m    *MemoryStores
	lock bool
}

func (c *memConfirmations) ListByApplicant(ctx context.Context, applicantID uint64) ([]model.Confirmation, error) {
	defer c.m.acquire(c.lock)()
	confs := make([]model.Confirmation, 0)
	for _, cf := range c.m.st.confirmations {
		if cf.ApplicantID == applicantID {
			cf.CourseID = cloneID(cf.CourseID)
			confs = append(confs, cf)
		}
	}
	sort.Slice(confs, func(i, j int) bool { return confs[i].ID < confs[j].ID })
	return confs, nil
}

func (c *memConfirmations) Create(ctx context.Context, cf *model.Confirmation) error {
	defer c.m.acquire(c.lock)()
	cf.ID = c.m.st.id()
	now := time.Now()
	cf.CreatedAt = now
	cf.UpdatedAt = now
	stored := *cf
	stored.CourseID = cloneID(cf.CourseID)
	c.m.st.confirmations[cf.ID] = stored
	return nil
}

func (c *memConfirmations) UpdateCourse(ctx context.Context, id uint64, courseID *uint64) error {
	defer c.m.acquire(c.lock)()
	cf, ok := c.m.st.confirmations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	cf.CourseID = cloneID(courseID)
	cf.UpdatedAt = time.Now()
	c.m.st.confirmations[id] = cf
	return nil
}

func (c *memConfirmations) UpdateTarget(ctx context.Context, id uint64, dateID uint64, courseID *uint64) error {
	defer c.m.acquire(c.lock)()
	cf, ok := c.m.st.confirmations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	cf.DateSlotID = dateID
	cf.CourseID = cloneID(courseID)
	cf.UpdatedAt = time.Now()
	c.m.st.confirmations[id] = cf
	return nil
}

func (c *memConfirmations) Delete(ctx context.Context, id uint64) error {
	defer c.m.acquire(c.lock)()
	if _, ok := c.m.st.confirmations[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(c.m.st.confirmations, id)
	return nil
}

// memLedger implements service.CapacityLedger over memState with the
// same strict and lenient semantics as the MySQL ledger.
type memLedger struct {
	m    *MemoryStores
	lock bool
}

func (l *memLedger) IncrementDate(ctx context.Context, dateID uint64) error {
	defer l.m.acquire(l.lock)()
	return l.incrementDate(dateID)
}

func (l *memLedger) incrementDate(dateID uint64) error {
	d, ok := l.m.st.dateSlots[dateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if l.m.strict && d.ConfirmedCount >= d.Capacity {
		return sentinel.ErrCapacityExceeded
	}
	d.ConfirmedCount++
	l.m.st.dateSlots[dateID] = d
	return nil
}

func (l *memLedger) DecrementDate(ctx context.Context, dateID uint64) error {
	defer l.m.acquire(l.lock)()
	return l.decrementDate(dateID)
}

func (l *memLedger) decrementDate(dateID uint64) error {
	d, ok := l.m.st.dateSlots[dateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.ConfirmedCount <= 0 {
		return sentinel.ErrInvariantViolation
	}
	d.ConfirmedCount--
	l.m.st.dateSlots[dateID] = d
	return nil
}

func (l *memLedger) IncrementCourseDate(ctx context.Context, courseID, dateID uint64) error {
	defer l.m.acquire(l.lock)()
	id, cd, ok := l.m.st.findCourseDate(courseID, dateID)
	if !ok {
		return sentinel.ErrNotFound
	}
	if l.m.strict && cd.ConfirmedCount >= cd.Capacity {
		return sentinel.ErrCapacityExceeded
	}
	if err := l.incrementDate(dateID); err != nil {
		return err
	}
	cd.ConfirmedCount++
	l.m.st.courseDates[id] = cd
	return nil
}

func (l *memLedger) DecrementCourseDate(ctx context.Context, courseID, dateID uint64) error {
	defer l.m.acquire(l.lock)()
	id, cd, ok := l.m.st.findCourseDate(courseID, dateID)
	if !ok {
		return sentinel.ErrNotFound
	}
	if cd.ConfirmedCount <= 0 {
		return sentinel.ErrInvariantViolation
	}
	if err := l.decrementDate(dateID); err != nil {
		return err
	}
	cd.ConfirmedCount--
	l.m.st.courseDates[id] = cd
	return nil
}

func (l *memLedger) DateCounts(ctx context.Context, eventID uint64) ([]model.DateSlot, error) {
	return (&memEvents{m: l.m, lock: l.lock}).DateSlots(ctx, eventID)
}

func (l *memLedger) CourseDateCounts(ctx context.Context, eventID uint64) ([]model.CourseDate, error) {
	defer l.m.acquire(l.lock)()
	out := make([]model.CourseDate, 0)
	for _, cd := range l.m.st.courseDates {
		course, ok := l.m.st.courses[cd.CourseID]
		if !ok || course.EventID != eventID {
			continue
		}
		out = append(out, cd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].DateSlotID < out[j].DateSlotID
	})
	return out, nil
}

func (st *memState) findCourseDate(courseID, dateID uint64) (uint64, model.CourseDate, bool) {
	for id, cd := range st.courseDates {
		if cd.CourseID == courseID && cd.DateSlotID == dateID {
			return id, cd, true
		}
	}
	return 0, model.CourseDate{}, false
}
