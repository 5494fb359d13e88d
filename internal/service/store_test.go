package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// memData is the full state of the in-memory store.
type memData struct {
	nextID     int64
	sessions   map[int64]model.TestSession
	answers    map[int64]model.Answer
	results    map[int64]model.Result // by session id
	events     map[int64]model.IntegrityEvent
	tests      map[int64]model.Test
	questions  map[int64][]model.TestQuestion // by test id
	candidates map[int64]model.Candidate
	users      map[int64]model.UserCredentials

	failResultUpsert bool
}

func (d *memData) clone() *memData {
	c := *d
	c.sessions = cloneMap(d.sessions)
	c.answers = cloneMap(d.answers)
	c.results = cloneMap(d.results)
	c.events = cloneMap(d.events)
	c.tests = cloneMap(d.tests)
	c.questions = cloneMap(d.questions)
	c.candidates = cloneMap(d.candidates)
	c.users = cloneMap(d.users)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

// memStore is a TxManager whose transactions run one at a time and roll
// back by restoring a snapshot.
type memStore struct {
	mu   sync.Mutex
	data *memData
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		nextID:     1000,
		sessions:   map[int64]model.TestSession{},
		answers:    map[int64]model.Answer{},
		results:    map[int64]model.Result{},
		events:     map[int64]model.IntegrityEvent{},
		tests:      map[int64]model.Test{},
		questions:  map[int64][]model.TestQuestion{},
		candidates: map[int64]model.Candidate{},
		users:      map[int64]model.UserCredentials{},
	}}
}

func (s *memStore) InTx(ctx context.Context, fn func(repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) Repos() repository.Repos {
	return s.repos(false)
}

func (s *memStore) repos(inTx bool) repository.Repos {
	r := &memRepo{store: s, inTx: inTx}
	return repository.Repos{
		Sessions:   memSessions{r},
		Answers:    memAnswers{r},
		Results:    memResults{r},
		Integrity:  memIntegrity{r},
		Tests:      memTests{r},
		Candidates: memCandidates{r},
		Actors:     memActors{r},
	}
}

// with runs fn against the store state, taking the lock outside transactions.
func (s *memStore) with(fn func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

type memRepo struct {
	store *memStore
	inTx  bool
}

func (r *memRepo) lock() (*memData, func()) {
	if r.inTx {
		return r.store.data, func() {}
	}
	r.store.mu.Lock()
	return r.store.data, r.store.mu.Unlock
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
}

type memSessions struct{ *memRepo }

func (r memSessions) Get(ctx context.Context, id int64) (*model.TestSession, error) {
	d, unlock := r.lock()
	defer unlock()
	s, ok := d.sessions[id]
	if !ok {
		return nil, notFound("get session")
	}
	return &s, nil
}

func (r memSessions) GetForUpdate(ctx context.Context, id int64) (*model.TestSession, error) {
	return r.Get(ctx, id)
}

func (r memSessions) FindActive(ctx context.Context, candidateID, testID int64) (*model.TestSession, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, s := range d.sessions {
		if s.CandidateID == candidateID && s.TestID == testID && s.Status.IsActive() {
			return &s, nil
		}
	}
	return nil, notFound("find active session")
}

func (r memSessions) FindByAccessToken(ctx context.Context, token string) (*model.TestSession, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, s := range d.sessions {
		if s.AccessToken != nil && *s.AccessToken == token {
			return &s, nil
		}
	}
	return nil, notFound("find session by token")
}

func (r memSessions) Create(ctx context.Context, s *model.TestSession) error {
	d, unlock := r.lock()
	defer unlock()
	for _, other := range d.sessions {
		if other.CandidateID == s.CandidateID && other.TestID == s.TestID && other.Status.IsActive() && s.Status.IsActive() {
			return fmt.Errorf("create session: %w", repository.ErrConflict)
		}
	}
	s.ID = d.id()
	s.CreatedAt = time.Unix(s.ID, 0)
	d.sessions[s.ID] = *s
	return nil
}

func (r memSessions) Update(ctx context.Context, s *model.TestSession) error {
	d, unlock := r.lock()
	defer unlock()
	stored, ok := d.sessions[s.ID]
	if !ok {
		return notFound("update session")
	}
	stored.Status = s.Status
	stored.StartTime = s.StartTime
	stored.EndTime = s.EndTime
	stored.Score = s.Score
	stored.PassingStatus = s.PassingStatus
	stored.IsResultVisible = s.IsResultVisible
	d.sessions[s.ID] = stored
	return nil
}

func (r memSessions) SetResultVisible(ctx context.Context, id int64, visible bool) error {
	d, unlock := r.lock()
	defer unlock()
	stored, ok := d.sessions[id]
	if !ok {
		return notFound("set result visible")
	}
	stored.IsResultVisible = visible
	d.sessions[id] = stored
	return nil
}

func (r memSessions) List(ctx context.Context, f model.SessionFilter) ([]model.SessionListItem, int64, error) {
	d, unlock := r.lock()
	defer unlock()
	items := []model.SessionListItem{}
	for _, s := range d.sessions {
		c := d.candidates[s.CandidateID]
		if f.CandidateID != nil && s.CandidateID != *f.CandidateID {
			continue
		}
		if f.TestID != nil && s.TestID != *f.TestID {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.CompanyID != nil && (c.CompanyID == nil || *c.CompanyID != *f.CompanyID) {
			continue
		}
		it := model.SessionListItem{
			TestSession:   s,
			CandidateName: c.FullName(),
			CandidateMail: c.Email,
			TestName:      d.tests[s.TestID].Name,
		}
		if res, ok := d.results[s.ID]; ok {
			it.Percentage, it.Passed = &res.Percentage, &res.Passed
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, int64(len(items)), nil
}

func (r memSessions) ListByCandidate(ctx context.Context, candidateID int64) ([]model.TestSession, error) {
	d, unlock := r.lock()
	defer unlock()
	out := []model.TestSession{}
	for _, s := range d.sessions {
		if s.CandidateID == candidateID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memAnswers struct{ *memRepo }

func (r memAnswers) Get(ctx context.Context, id int64) (*model.Answer, error) {
	d, unlock := r.lock()
	defer unlock()
	a, ok := d.answers[id]
	if !ok {
		return nil, notFound("get answer")
	}
	return &a, nil
}

func (r memAnswers) GetByQuestion(ctx context.Context, sessionID, questionID int64) (*model.Answer, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, a := range d.answers {
		if a.SessionID == sessionID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, notFound("get answer by question")
}

func (r memAnswers) Upsert(ctx context.Context, a *model.Answer) (bool, error) {
	d, unlock := r.lock()
	defer unlock()
	for id, existing := range d.answers {
		if existing.SessionID == a.SessionID && existing.QuestionID == a.QuestionID {
			a.ID = id
			d.answers[id] = *a
			return false, nil
		}
	}
	a.ID = d.id()
	d.answers[a.ID] = *a
	return true, nil
}

func (r memAnswers) ApplyGrade(ctx context.Context, a *model.Answer) error {
	d, unlock := r.lock()
	defer unlock()
	stored, ok := d.answers[a.ID]
	if !ok {
		return notFound("grade answer")
	}
	stored.IsCorrect = a.IsCorrect
	stored.ScoreEarned = a.ScoreEarned
	stored.ReviewerID = a.ReviewerID
	stored.ReviewedAt = a.ReviewedAt
	d.answers[a.ID] = stored
	return nil
}

func (r memAnswers) ListBySession(ctx context.Context, sessionID int64) ([]model.Answer, error) {
	d, unlock := r.lock()
	defer unlock()
	out := []model.Answer{}
	for _, a := range d.answers {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

type memResults struct{ *memRepo }

func (r memResults) GetBySession(ctx context.Context, sessionID int64) (*model.Result, error) {
	d, unlock := r.lock()
	defer unlock()
	res, ok := d.results[sessionID]
	if !ok {
		return nil, notFound("get result")
	}
	return &res, nil
}

func (r memResults) Upsert(ctx context.Context, res *model.Result) error {
	d, unlock := r.lock()
	defer unlock()
	if d.failResultUpsert {
		return errors.New("results table unavailable")
	}
	if existing, ok := d.results[res.SessionID]; ok {
		res.ID = existing.ID
	} else {
		res.ID = d.id()
	}
	d.results[res.SessionID] = *res
	return nil
}

type memIntegrity struct{ *memRepo }

func (r memIntegrity) FindRecent(ctx context.Context, sessionID int64, t model.IntegrityEventType, since time.Time) (*model.IntegrityEvent, error) {
	d, unlock := r.lock()
	defer unlock()
	var found *model.IntegrityEvent
	for _, e := range d.events {
		if e.SessionID != sessionID || e.EventType != t || e.EventTime.Before(since) {
			continue
		}
		if found == nil || e.EventTime.After(found.EventTime) {
			e := e
			found = &e
		}
	}
	if found == nil {
		return nil, notFound("find recent integrity event")
	}
	return found, nil
}

func (r memIntegrity) Create(ctx context.Context, e *model.IntegrityEvent) error {
	d, unlock := r.lock()
	defer unlock()
	e.ID = d.id()
	d.events[e.ID] = *e
	return nil
}

func (r memIntegrity) Bump(ctx context.Context, e *model.IntegrityEvent, at time.Time) error {
	d, unlock := r.lock()
	defer unlock()
	stored, ok := d.events[e.ID]
	if !ok {
		return notFound("bump integrity event")
	}
	stored.EventCount++
	stored.EventTime = at
	d.events[e.ID] = stored
	*e = stored
	return nil
}

func (r memIntegrity) ListBySession(ctx context.Context, sessionID int64) ([]model.IntegrityEvent, error) {
	d, unlock := r.lock()
	defer unlock()
	out := []model.IntegrityEvent{}
	for _, e := range d.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTests struct{ *memRepo }

func (r memTests) GetTest(ctx context.Context, id int64) (*model.Test, error) {
	d, unlock := r.lock()
	defer unlock()
	t, ok := d.tests[id]
	if !ok {
		return nil, notFound("get test")
	}
	return &t, nil
}

func (r memTests) ListQuestions(ctx context.Context, testID int64) ([]model.TestQuestion, error) {
	d, unlock := r.lock()
	defer unlock()
	return append([]model.TestQuestion{}, d.questions[testID]...), nil
}

func (r memTests) GetQuestion(ctx context.Context, testID, questionID int64) (*model.TestQuestion, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, q := range d.questions[testID] {
		if q.ID == questionID {
			return &q, nil
		}
	}
	return nil, notFound("get question")
}

type memCandidates struct{ *memRepo }

func (r memCandidates) Get(ctx context.Context, id int64) (*model.Candidate, error) {
	d, unlock := r.lock()
	defer unlock()
	c, ok := d.candidates[id]
	if !ok {
		return nil, notFound("get candidate")
	}
	return &c, nil
}

func (r memCandidates) GetForUpdate(ctx context.Context, id int64) (*model.Candidate, error) {
	return r.Get(ctx, id)
}

func (r memCandidates) GetByUserID(ctx context.Context, userID int64) (*model.Candidate, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, c := range d.candidates {
		if c.UserID != nil && *c.UserID == userID {
			return &c, nil
		}
	}
	return nil, notFound("get candidate")
}

type memActors struct{ *memRepo }

func (r memActors) GetActor(ctx context.Context, userID int64) (*model.Actor, error) {
	d, unlock := r.lock()
	defer unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, notFound("get user")
	}
	return &u.Actor, nil
}

func (r memActors) GetCredentials(ctx context.Context, email string) (*model.UserCredentials, error) {
	d, unlock := r.lock()
	defer unlock()
	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("get user")
}

func (r memActors) CreateUser(ctx context.Context, u *model.UserCredentials) error {
	d, unlock := r.lock()
	defer unlock()
	for _, existing := range d.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", repository.ErrConflict)
		}
	}
	u.UserID = d.id()
	u.IsActive = true
	d.users[u.UserID] = *u
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture wires every service to one memStore and one clock.
type fixture struct {
	store     *memStore
	clock     *fakeClock
	cfg       *config.Config
	policy    *config.Policy
	questions *QuestionSetService
	tokens    *AccessTokenService
	auth      *AuthService
	guard     *GuardService
	scoring   *ScoringService
	sessions  *SessionService
	answers   *AnswerService
	integrity *IntegrityService
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "test-jwt-secret",
		JWTExpiry:           24 * time.Hour,
		BcryptCost:          4,
		TestAccessSecret:    "test-access-secret",
		TestAccessTTL:       7 * 24 * time.Hour,
		IntegrityWindow:     10 * time.Second,
		DefaultPassingScore: 60,
		PaperCacheTTL:       10 * time.Minute,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		clock:  &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		cfg:    testConfig(),
		policy: config.DefaultPolicy(),
	}
	log := zerolog.Nop()
	f.questions = NewQuestionSetService(f.store, nil, f.cfg, log)
	f.tokens = NewAccessTokenService(f.cfg)
	f.tokens.now = f.clock.Now
	f.auth = NewAuthService(f.cfg, f.store, log)
	f.auth.now = f.clock.Now
	f.guard = NewGuardService(f.auth, f.store, f.policy, log)
	f.scoring = NewScoringService(f.store, f.questions, f.policy, f.cfg, log)
	f.scoring.now = f.clock.Now
	f.sessions = NewSessionService(f.store, f.questions, f.tokens, f.scoring, f.policy, log)
	f.sessions.now = f.clock.Now
	f.answers = NewAnswerService(f.store, log)
	f.answers.now = f.clock.Now
	f.integrity = NewIntegrityService(f.store, nil, f.cfg, log)
	f.integrity.now = f.clock.Now
	return f
}

const (
	testTwoQuestions int64 = 1
	testWithEssay    int64 = 2
	testInactive     int64 = 3

	questionQ1    int64 = 11
	questionQ2    int64 = 12
	questionEssay int64 = 13
	questionMulti int64 = 14

	optionQ1Right int64 = 111
	optionQ1Wrong int64 = 112
	optionQ2Right int64 = 121
	optionQ2Wrong int64 = 122

	candidateAlice int64 = 1
	candidateBob   int64 = 2

	userAlice     int64 = 100
	userBob       int64 = 101
	userRecruiter int64 = 200
	userAdmin     int64 = 300
)

func ptr[T any](v T) *T { return &v }

func choiceQuestion(id int64, order, weight int, right, wrong int64) model.TestQuestion {
	return model.TestQuestion{
		Question: model.Question{
			ID:   id,
			Text: fmt.Sprintf("Question %d", id),
			Type: model.QuestionTypeSingleChoice,
			Options: []model.Option{
				{ID: right, Text: "right", IsCorrect: true},
				{ID: wrong, Text: "wrong"},
			},
		},
		Order:  order,
		Weight: weight,
	}
}

// seed loads the shared catalogue: a two-question choice test (weights 1
// and 3, passing 60), a test with an essay, an inactive test, two
// candidates of company 5 and their login identities.
func (f *fixture) seed() {
	f.store.with(func(d *memData) {
		d.tests[testTwoQuestions] = model.Test{ID: testTwoQuestions, Name: "Go Fundamentals", DurationMinutes: 30, PassingScore: ptr(60), IsActive: true}
		d.questions[testTwoQuestions] = []model.TestQuestion{
			choiceQuestion(questionQ1, 1, 1, optionQ1Right, optionQ1Wrong),
			choiceQuestion(questionQ2, 2, 3, optionQ2Right, optionQ2Wrong),
		}

		d.tests[testWithEssay] = model.Test{ID: testWithEssay, Name: "System Design", DurationMinutes: 60, IsActive: true}
		d.questions[testWithEssay] = []model.TestQuestion{
			choiceQuestion(questionQ1, 1, 1, optionQ1Right, optionQ1Wrong),
			{Question: model.Question{ID: questionEssay, Text: "Design a cache", Type: model.QuestionTypeEssay}, Order: 2, Weight: 1},
		}

		d.tests[testInactive] = model.Test{ID: testInactive, Name: "Retired", DurationMinutes: 10}

		d.candidates[candidateAlice] = model.Candidate{ID: candidateAlice, UserID: ptr(userAlice), CompanyID: ptr(int64(5)), FirstName: "Alice", LastName: "Wong", Email: "alice@example.com"}
		d.candidates[candidateBob] = model.Candidate{ID: candidateBob, UserID: ptr(userBob), CompanyID: ptr(int64(7)), FirstName: "Bob", Email: "bob@example.com"}

		d.users[userAlice] = model.UserCredentials{Actor: model.Actor{UserID: userAlice, Email: "alice@example.com", Role: model.RoleCandidate, CandidateID: ptr(candidateAlice), IsActive: true}}
		d.users[userBob] = model.UserCredentials{Actor: model.Actor{UserID: userBob, Email: "bob@example.com", Role: model.RoleCandidate, CandidateID: ptr(candidateBob), IsActive: true}}
		d.users[userRecruiter] = model.UserCredentials{Actor: model.Actor{UserID: userRecruiter, Email: "rita@example.com", Role: model.RoleRecruiter, CompanyID: ptr(int64(5)), IsActive: true}}
		d.users[userAdmin] = model.UserCredentials{Actor: model.Actor{UserID: userAdmin, Email: "root@example.com", Role: model.RoleAdmin, IsActive: true}}
	})
}

func (f *fixture) actor(userID int64) *model.Actor {
	var a model.Actor
	f.store.with(func(d *memData) { a = d.users[userID].Actor })
	return &a
}

// assign creates a SELF session for candidate on test and returns its id.
func (f *fixture) assign(t *testing.T, candidateID, testID int64) int64 {
	t.Helper()
	res, err := f.sessions.Assign(context.Background(), f.actor(userAdmin), AssignInput{
		CandidateID: candidateID,
		TestID:      testID,
		Via:         model.AssignViaSelf,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return res.Session.ID
}

// startAs assigns and starts a session for the candidate behind userID.
func (f *fixture) startAs(t *testing.T, userID, testID int64) int64 {
	t.Helper()
	actor := f.actor(userID)
	id := f.assign(t, *actor.CandidateID, testID)
	if _, err := f.sessions.Start(context.Background(), id, actor); err != nil {
		t.Fatalf("start: %v", err)
	}
	return id
}

func (f *fixture) submit(t *testing.T, userID, sessionID, questionID, optionID int64) *model.SubmitResult {
	t.Helper()
	res, err := f.answers.Submit(context.Background(), sessionID, f.actor(userID), model.SubmitAnswerRequest{
		QuestionID:       questionID,
		SelectedOptionID: ptr(optionID),
	})
	if err != nil {
		t.Fatalf("submit q%d: %v", questionID, err)
	}
	return res
}

func (f *fixture) session(id int64) model.TestSession {
	var s model.TestSession
	f.store.with(func(d *memData) { s = d.sessions[id] })
	return s
}

func (f *fixture) answerCount(sessionID int64) int {
	n := 0
	f.store.with(func(d *memData) {
		for _, a := range d.answers {
			if a.SessionID == sessionID {
				n++
			}
		}
	})
	return n
}
