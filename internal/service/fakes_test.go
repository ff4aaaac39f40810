package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

var testLog = zerolog.Nop()

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// clock is a settable test clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory SessionStore and ResultStore with the same
// compare-and-set rules as the PostgreSQL repositories.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
	active   map[model.SessionKey]uuid.UUID
	results  map[model.SessionKey]*model.ExamResult

	updates   int
	finalizes int
	// beforeWrite runs inside the lock before a CAS check; tests use it to
	// simulate a concurrent writer.
	beforeWrite func(s *model.ExamSession)
	getErr      error
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[uuid.UUID]*model.ExamSession{},
		active:   map[model.SessionKey]uuid.UUID{},
		results:  map[model.SessionKey]*model.ExamResult{},
	}
}

func (m *memStore) CreateSession(_ context.Context, s *model.ExamSession) (*model.ExamSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, done := m.results[s.Key]; done {
		return nil, false, repository.ErrCategoryCompleted
	}
	if id, ok := m.active[s.Key]; ok {
		return m.sessions[id].Clone(), false, nil
	}

	created := s.Clone()
	created.Status = model.SessionStatusActive
	created.Cursor = 0
	created.Answers = map[string]model.Answer{}
	created.Version = 1
	created.UpdatedAt = s.StartedAt
	m.sessions[created.ID] = created
	m.active[created.Key] = created.ID
	return created.Clone(), true, nil
}

func (m *memStore) GetActiveSession(_ context.Context, key model.SessionKey) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	id, ok := m.active[key]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return m.sessions[id].Clone(), nil
}

func (m *memStore) UpdateSession(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeWrite != nil {
		m.beforeWrite(m.sessions[s.ID])
	}
	cur, ok := m.sessions[s.ID]
	if !ok || !cur.IsActive() || cur.Version != s.Version {
		return repository.ErrSessionConflict
	}
	s.Version++
	stored := s.Clone()
	m.sessions[s.ID] = stored
	m.updates++
	return nil
}

func (m *memStore) FinalizeSession(_ context.Context, s *model.ExamSession, status model.SessionStatus, result *model.ExamResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeWrite != nil {
		m.beforeWrite(m.sessions[s.ID])
	}
	cur, ok := m.sessions[s.ID]
	if !ok || !cur.IsActive() || cur.Version != s.Version {
		return repository.ErrSessionConflict
	}

	s.Status = status
	s.Version++
	finished := result.CreatedAt
	s.FinishedAt = &finished
	s.UpdatedAt = finished

	m.sessions[s.ID] = s.Clone()
	delete(m.active, s.Key)
	if _, exists := m.results[s.Key]; exists {
		return repository.ErrCategoryCompleted
	}
	stored := *result
	m.results[s.Key] = &stored
	m.finalizes++
	return nil
}

func (m *memStore) ListExpiredSessions(_ context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.ExamSession
	for _, id := range m.active {
		s := m.sessions[id]
		if s.DeadlineAt.Before(now) && len(out) < limit {
			out = append(out, *s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) GetResult(_ context.Context, key model.SessionKey) (*model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[key]
	if !ok {
		return nil, repository.ErrResultNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) HasFinalizedResult(_ context.Context, key model.SessionKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.results[key]
	return ok, nil
}

func (m *memStore) ListCompletedCategories(_ context.Context, examID uuid.UUID, studentID int) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := map[int]bool{}
	for k := range m.results {
		if k.ExamID == examID && k.StudentID == studentID {
			done[k.CategoryID] = true
		}
	}
	return done, nil
}

func (m *memStore) activeSession(key model.SessionKey) *model.ExamSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[key]
	if !ok {
		return nil
	}
	return m.sessions[id].Clone()
}

// memCache is a SnapshotCache that keeps the newest version per key.
type memCache struct {
	mu      sync.Mutex
	entries map[model.SessionKey]*model.ExamSession
	ttls    map[model.SessionKey]time.Duration
	failGet error
	failSet error
	gets    int
}

func newMemCache() *memCache {
	return &memCache{
		entries: map[model.SessionKey]*model.ExamSession{},
		ttls:    map[model.SessionKey]time.Duration{},
	}
}

func (c *memCache) Get(_ context.Context, key model.SessionKey) (*model.ExamSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, c.failGet
	}
	s, ok := c.entries[key]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return s.Clone(), nil
}

func (c *memCache) Set(_ context.Context, s *model.ExamSession, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet != nil {
		return c.failSet
	}
	if cur, ok := c.entries[s.Key]; ok && cur.Version > s.Version {
		return nil
	}
	c.entries[s.Key] = s.Clone()
	c.ttls[s.Key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, key model.SessionKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) entry(key model.SessionKey) *model.ExamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[key]; ok {
		return s.Clone()
	}
	return nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []MonitorEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e MonitorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) ofType(typ string) []MonitorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []MonitorEvent
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// catalog serves schedules, budgets and question pools from maps.
type catalog struct {
	schedules map[uuid.UUID]*model.ExamSchedule
	budgets   map[uuid.UUID][]model.CategoryBudget
	pools     map[int][]model.QuestionPoolEntry
	poolCalls int
}

func newCatalog() *catalog {
	return &catalog{
		schedules: map[uuid.UUID]*model.ExamSchedule{},
		budgets:   map[uuid.UUID][]model.CategoryBudget{},
		pools:     map[int][]model.QuestionPoolEntry{},
	}
}

func (c *catalog) GetSchedule(_ context.Context, examID uuid.UUID) (*model.ExamSchedule, error) {
	s, ok := c.schedules[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *catalog) GetCategoryBudget(_ context.Context, examID uuid.UUID, categoryID int) (*model.CategoryBudget, error) {
	for _, b := range c.budgets[examID] {
		if b.CategoryID == categoryID {
			cp := b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *catalog) ListCategoryBudgets(_ context.Context, examID uuid.UUID) ([]model.CategoryBudget, error) {
	return c.budgets[examID], nil
}

func (c *catalog) GetEligibleQuestions(_ context.Context, categoryID int) ([]model.QuestionPoolEntry, error) {
	c.poolCalls++
	var out []model.QuestionPoolEntry
	for _, q := range c.pools[categoryID] {
		if q.Points > 0 {
			out = append(out, q)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

// question builds a pool entry with options a, b and c.
func question(categoryID, points int) model.QuestionPoolEntry {
	return model.QuestionPoolEntry{
		ID:           uuid.New(),
		CategoryID:   categoryID,
		QuestionText: "question",
		Points:       points,
		Options: []model.QuestionOption{
			{ID: "a", Text: "A"},
			{ID: "b", Text: "B"},
			{ID: "c", Text: "C"},
		},
	}
}

func pool(categoryID int, points ...int) []model.QuestionPoolEntry {
	out := make([]model.QuestionPoolEntry, len(points))
	for i, p := range points {
		out[i] = question(categoryID, p)
	}
	return out
}

func noShuffle(int, func(i, j int)) {}

func testConfig(c *clock) EngineConfig {
	return EngineConfig{
		Location:       time.UTC,
		CacheGrace:     10 * time.Minute,
		MaxCASAttempts: 5,
		Now:            c.Now,
		Shuffle:        noShuffle,
	}
}

// engine wires an ExamSessionService over in-memory fakes.
type engine struct {
	clock     *clock
	store     *memStore
	cache     *memCache
	events    *recordingPublisher
	catalog   *catalog
	queue     *QuestionQueue
	recorder  *AnswerRecorder
	finalizer *SubmissionFinalizer
	svc       *ExamSessionService

	examID uuid.UUID
}

const (
	studentID  = 7
	categoryID = 3
)

// newEngine builds an engine with one exam open 08:00-10:00 UTC on t0's date,
// a 60 minute allowance, and category 3 with a 10 point budget.
func newEngine() *engine {
	e := &engine{
		clock:   newClock(t0.Add(5 * time.Minute)),
		store:   newMemStore(),
		cache:   newMemCache(),
		events:  &recordingPublisher{},
		catalog: newCatalog(),
		examID:  uuid.New(),
	}
	e.catalog.schedules[e.examID] = &model.ExamSchedule{
		ExamID:          e.examID,
		Title:           "Seleksi",
		Date:            time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartTime:       8 * time.Hour,
		EndTime:         10 * time.Hour,
		DurationMinutes: 60,
	}
	e.catalog.budgets[e.examID] = []model.CategoryBudget{
		{ExamID: e.examID, CategoryID: categoryID, Name: "Logika", TotalPoints: 10},
		{ExamID: e.examID, CategoryID: 4, Name: "Numerik", TotalPoints: 6},
	}
	e.catalog.pools[categoryID] = pool(categoryID, 5, 3, 2, 4)
	e.catalog.pools[4] = pool(4, 3, 3)

	cfg := testConfig(e.clock)
	e.queue = NewQuestionQueue(e.store, e.cache, cfg, testLog)
	e.recorder = NewAnswerRecorder(e.queue)
	e.finalizer = NewSubmissionFinalizer(e.store, e.store, e.cache, e.events, cfg, testLog)
	e.svc = NewExamSessionService(
		NewCompletionGate(e.store),
		e.queue,
		e.recorder,
		e.finalizer,
		e.catalog,
		e.catalog,
		e.catalog,
		e.store,
		e.events,
		cfg,
		testLog,
	)
	return e
}

func (e *engine) key() model.SessionKey {
	return model.SessionKey{StudentID: studentID, ExamID: e.examID, CategoryID: categoryID}
}

// startSession creates an ACTIVE session directly through the queue.
func (e *engine) startSession(questions []model.QuestionPoolEntry, deadline time.Time) *model.ExamSession {
	sess, _, err := e.queue.Create(context.Background(), e.key(), questions, e.clock.Now(), deadline)
	if err != nil {
		panic(err)
	}
	return sess
}
