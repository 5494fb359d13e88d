package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/hireflow-backend/internal/model"
)

func TestAssign_TokenBased(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()

	res, err := f.sessions.Assign(ctx, f.actor(userRecruiter), AssignInput{
		CandidateID: candidateAlice,
		TestID:      testTwoQuestions,
		Via:         model.AssignViaToken,
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if res.Session.Status != model.SessionStatusAssigned {
		t.Errorf("expected status ASSIGNED, got %s", res.Session.Status)
	}
	if res.Token == nil || *res.Token == "" {
		t.Fatal("expected a capability token for token-based assignment")
	}
	wantExpiry := f.clock.Now().Add(7 * 24 * time.Hour)
	if res.TokenExpiry == nil || !res.TokenExpiry.Equal(wantExpiry) {
		t.Errorf("expected token expiry %v, got %v", wantExpiry, res.TokenExpiry)
	}

	claims, err := f.tokens.Parse(*res.Token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.CandidateID != candidateAlice || claims.TestID != testTwoQuestions {
		t.Errorf("unexpected token claims: %+v", claims)
	}
}

func TestAssign_SelfHasNoToken(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)

	res, err := f.sessions.Assign(context.Background(), alice, AssignInput{
		CandidateID: *alice.CandidateID,
		TestID:      testTwoQuestions,
		Via:         model.AssignViaSelf,
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if res.Token != nil || res.Session.AccessToken != nil {
		t.Error("self assignment must not mint a capability token")
	}
}

func TestAssign_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.assign(t, candidateAlice, testTwoQuestions)

	tests := []struct {
		name  string
		actor *model.Actor
		in    AssignInput
		want  error
	}{
		{"already active", f.actor(userAdmin), AssignInput{CandidateID: candidateAlice, TestID: testTwoQuestions}, ErrAlreadyActive},
		{"unknown candidate", f.actor(userAdmin), AssignInput{CandidateID: 999, TestID: testTwoQuestions}, ErrCandidateNotFound},
		{"unknown test", f.actor(userAdmin), AssignInput{CandidateID: candidateAlice, TestID: 999}, ErrTestNotFound},
		{"inactive test", f.actor(userAdmin), AssignInput{CandidateID: candidateAlice, TestID: testInactive}, ErrTestInactive},
		{"candidate of another company", f.actor(userRecruiter), AssignInput{CandidateID: candidateBob, TestID: testTwoQuestions}, ErrCandidateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.Assign(context.Background(), tt.actor, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAssign_AllowedAgainAfterCompletion(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.startAs(t, userAlice, testTwoQuestions)
	if _, err := f.sessions.Complete(context.Background(), id, alice); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	second := f.assign(t, candidateAlice, testTwoQuestions)
	if second == id {
		t.Fatal("expected a new session")
	}
}

func TestResolveByToken(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	res, err := f.sessions.Assign(ctx, f.actor(userRecruiter), AssignInput{
		CandidateID: candidateAlice,
		TestID:      testTwoQuestions,
		Via:         model.AssignViaToken,
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	summary, err := f.sessions.ResolveByToken(ctx, *res.Token)
	if err != nil {
		t.Fatalf("ResolveByToken returned error: %v", err)
	}
	if summary.SessionID != res.Session.ID {
		t.Errorf("expected session %d, got %d", res.Session.ID, summary.SessionID)
	}
	if summary.Candidate.Name != "Alice Wong" || summary.Test.Name != "Go Fundamentals" {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// The portal principal owns the session and can start it.
	if _, err := f.sessions.Start(ctx, summary.SessionID, PortalActor(summary)); err != nil {
		t.Fatalf("Start via portal returned error: %v", err)
	}
	if _, err := f.sessions.ResolveByToken(ctx, *res.Token); err != nil {
		t.Errorf("in-progress session must still resolve, got %v", err)
	}
}

func TestResolveByToken_NotFound(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	res, err := f.sessions.Assign(ctx, f.actor(userAdmin), AssignInput{
		CandidateID: candidateAlice,
		TestID:      testTwoQuestions,
		Via:         model.AssignViaToken,
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	// A validly signed token that was never stored.
	other, _, err := f.tokens.Mint(candidateAlice, testTwoQuestions)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":  "not-a-jwt",
		"empty":    "",
		"unstored": other,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := f.sessions.ResolveByToken(ctx, token); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(8 * 24 * time.Hour)
		defer f.clock.Advance(-8 * 24 * time.Hour)
		if _, err := f.sessions.ResolveByToken(ctx, *res.Token); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("completed", func(t *testing.T) {
		alice := f.actor(userAlice)
		if _, err := f.sessions.Start(ctx, res.Session.ID, alice); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		if _, err := f.sessions.Complete(ctx, res.Session.ID, alice); err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		if _, err := f.sessions.ResolveByToken(ctx, *res.Token); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStart_SetsDeadlineAndHidesCorrectness(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.assign(t, candidateAlice, testTwoQuestions)

	res, err := f.sessions.Start(context.Background(), id, alice)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if res.Status != model.SessionStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", res.Status)
	}
	if want := f.clock.Now().Add(30 * time.Minute); !res.EndTime.Equal(want) {
		t.Errorf("expected end time %v, got %v", want, res.EndTime)
	}
	if len(res.Questions) != 2 || res.Questions[0].ID != questionQ1 || res.Questions[1].ID != questionQ2 {
		t.Fatalf("unexpected question snapshot: %+v", res.Questions)
	}
	if len(res.Questions[0].Options) != 2 {
		t.Errorf("expected options for a choice question, got %+v", res.Questions[0].Options)
	}
}

func TestStart_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.assign(t, candidateAlice, testTwoQuestions)
	ctx := context.Background()

	first, err := f.sessions.Start(ctx, id, alice)
	if err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	f.clock.Advance(5 * time.Minute)
	second, err := f.sessions.Start(ctx, id, alice)
	if err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}

	if !first.EndTime.Equal(second.EndTime) || !first.StartTime.Equal(second.StartTime) {
		t.Errorf("restart moved the timer: %v/%v vs %v/%v", first.StartTime, first.EndTime, second.StartTime, second.EndTime)
	}
	if len(second.Questions) != len(first.Questions) {
		t.Errorf("read-back must return the same snapshot")
	}

	// The answer window is unchanged: 26 minutes later is still past the original deadline.
	f.clock.Advance(26 * time.Minute)
	_, err = f.answers.Submit(ctx, id, alice, model.SubmitAnswerRequest{QuestionID: questionQ1, SelectedOptionID: ptr(optionQ1Right)})
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired after the original deadline, got %v", err)
	}
}

func TestStart_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	alice := f.actor(userAlice)
	id := f.startAs(t, userAlice, testTwoQuestions)

	if _, err := f.sessions.Start(ctx, id, f.actor(userBob)); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-owner: expected ErrNotFound, got %v", err)
	}
	if _, err := f.sessions.Start(ctx, 999, alice); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session: expected ErrNotFound, got %v", err)
	}

	if _, err := f.sessions.Complete(ctx, id, alice); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if _, err := f.sessions.Start(ctx, id, alice); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed: expected ErrInvalidTransition, got %v", err)
	}
}

func TestStart_PendingIsStartable(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	var id int64 = 5000
	f.store.with(func(d *memData) {
		d.sessions[id] = model.TestSession{ID: id, CandidateID: candidateAlice, TestID: testTwoQuestions, Status: model.SessionStatusPending, PassingStatus: model.PassingStatusPending}
	})

	if _, err := f.sessions.Start(context.Background(), id, alice); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if got := f.session(id).Status; got != model.SessionStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", got)
	}
}

func TestComplete_RequiresInProgress(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.assign(t, candidateAlice, testTwoQuestions)

	if _, err := f.sessions.Complete(context.Background(), id, alice); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("expected ErrNotInProgress, got %v", err)
	}
}

func TestComplete_RollsBackWhenScoringFails(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.startAs(t, userAlice, testTwoQuestions)
	f.submit(t, userAlice, id, questionQ1, optionQ1Right)

	f.store.with(func(d *memData) { d.failResultUpsert = true })
	if _, err := f.sessions.Complete(context.Background(), id, alice); err == nil {
		t.Fatal("expected Complete to fail")
	}

	s := f.session(id)
	if s.Status != model.SessionStatusInProgress || s.Score != nil {
		t.Errorf("expected untouched IN_PROGRESS session, got status=%s score=%v", s.Status, s.Score)
	}
	f.store.with(func(d *memData) {
		if _, ok := d.results[id]; ok {
			t.Error("no result row may survive a failed completion")
		}
	})
}

func TestComplete_HiddenResult(t *testing.T) {
	f := newFixture(t)
	f.seed()
	alice := f.actor(userAlice)
	id := f.startAs(t, userAlice, testTwoQuestions)
	f.submit(t, userAlice, id, questionQ1, optionQ1Right)

	view, err := f.sessions.Complete(context.Background(), id, alice)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if view.Status != model.SessionStatusCompleted || !view.Completed {
		t.Errorf("expected COMPLETED, got %s", view.Status)
	}
	if view.Visible || view.Score != nil || view.Percentage != nil || view.Passed != nil || view.PassingStatus != nil {
		t.Errorf("hidden result leaked: %+v", view)
	}
	for _, a := range view.Answers {
		if a.IsCorrect != nil || a.ScoreEarned != nil {
			t.Errorf("per-answer correctness leaked: %+v", a)
		}
	}
	if got := f.session(id).EndTime; got == nil || !got.Equal(f.clock.Now()) {
		t.Errorf("expected end time to be the completion time, got %v", got)
	}
}

func TestSetResultVisible_RevealsResult(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	alice := f.actor(userAlice)
	id := f.startAs(t, userAlice, testTwoQuestions)
	f.submit(t, userAlice, id, questionQ1, optionQ1Right)
	if _, err := f.sessions.Complete(ctx, id, alice); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if err := f.sessions.SetResultVisible(ctx, f.actor(userRecruiter), id, true); err != nil {
		t.Fatalf("SetResultVisible returned error: %v", err)
	}
	view, err := f.sessions.GetForCandidate(ctx, id, alice)
	if err != nil {
		t.Fatalf("GetForCandidate returned error: %v", err)
	}
	if view.Score == nil || *view.Score != 25 {
		t.Errorf("expected score 25, got %v", view.Score)
	}
	if view.PassingStatus == nil || *view.PassingStatus != model.PassingStatusFailed {
		t.Errorf("expected FAILED, got %v", view.PassingStatus)
	}
	if len(view.Answers) != 1 || view.Answers[0].IsCorrect == nil || !*view.Answers[0].IsCorrect {
		t.Errorf("expected graded answer, got %+v", view.Answers)
	}
}

func TestSetResultVisible_OtherCompany(t *testing.T) {
	f := newFixture(t)
	f.seed()
	id := f.assign(t, candidateBob, testTwoQuestions)

	err := f.sessions.SetResultVisible(context.Background(), f.actor(userRecruiter), id, true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if f.session(id).IsResultVisible {
		t.Error("visibility must not change")
	}
}

func TestGetForCandidate_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.seed()
	id := f.assign(t, candidateAlice, testTwoQuestions)

	if _, err := f.sessions.GetForCandidate(context.Background(), id, f.actor(userBob)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListForCandidate(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	alice := f.actor(userAlice)
	done := f.startAs(t, userAlice, testTwoQuestions)
	f.submit(t, userAlice, done, questionQ1, optionQ1Right)
	if _, err := f.sessions.Complete(ctx, done, alice); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if err := f.sessions.SetResultVisible(ctx, f.actor(userRecruiter), done, true); err != nil {
		t.Fatalf("SetResultVisible returned error: %v", err)
	}
	pending := f.assign(t, candidateAlice, testWithEssay)
	f.assign(t, candidateBob, testTwoQuestions)

	views, err := f.sessions.ListForCandidate(ctx, alice)
	if err != nil {
		t.Fatalf("ListForCandidate returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(views))
	}
	for _, v := range views {
		switch v.SessionID {
		case done:
			if v.Score == nil || *v.Score != 25 {
				t.Errorf("completed: expected score 25, got %v", v.Score)
			}
			if v.Percentage == nil || *v.Percentage != 25 {
				t.Errorf("completed: expected percentage 25, got %v", v.Percentage)
			}
			if v.Passed == nil || *v.Passed {
				t.Errorf("completed: expected passed=false, got %v", v.Passed)
			}
		case pending:
			if v.Percentage != nil || v.Passed != nil {
				t.Errorf("assigned session carries a result: %+v", v)
			}
		default:
			t.Errorf("unexpected session %d", v.SessionID)
		}
	}

	if _, err := f.sessions.ListForCandidate(context.Background(), f.actor(userRecruiter)); !errors.Is(err, ErrNotCandidate) {
		t.Errorf("expected ErrNotCandidate, got %v", err)
	}
}

func TestPaper(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	alice := f.actor(userAlice)
	id := f.assign(t, candidateAlice, testTwoQuestions)

	if _, err := f.sessions.Paper(ctx, id, alice); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("before start: expected ErrNotInProgress, got %v", err)
	}
	if _, err := f.sessions.Start(ctx, id, alice); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	paper, err := f.sessions.Paper(ctx, id, alice)
	if err != nil {
		t.Fatalf("Paper returned error: %v", err)
	}
	if len(paper.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(paper.Questions))
	}

	f.clock.Advance(31 * time.Minute)
	if _, err := f.sessions.Paper(ctx, id, alice); !errors.Is(err, ErrExpired) {
		t.Errorf("after deadline: expected ErrExpired, got %v", err)
	}
}

func TestGetDetailAndList_CompanyScope(t *testing.T) {
	f := newFixture(t)
	f.seed()
	ctx := context.Background()
	recruiter := f.actor(userRecruiter)
	aliceSession := f.startAs(t, userAlice, testTwoQuestions)
	bobSession := f.assign(t, candidateBob, testTwoQuestions)
	if _, err := f.integrity.Record(ctx, aliceSession, f.actor(userAlice), model.RecordIntegrityRequest{EventType: model.IntegrityTabSwitch}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	detail, err := f.sessions.GetDetail(ctx, recruiter, aliceSession)
	if err != nil {
		t.Fatalf("GetDetail returned error: %v", err)
	}
	if detail.Candidate.ID != candidateAlice || len(detail.Questions) != 2 || len(detail.IntegrityEvents) != 1 {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.Result != nil {
		t.Error("an unscored session has no result")
	}

	if _, err := f.sessions.GetDetail(ctx, recruiter, bobSession); !errors.Is(err, ErrNotFound) {
		t.Errorf("other company: expected ErrNotFound, got %v", err)
	}

	items, total, err := f.sessions.List(ctx, recruiter, model.SessionFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != aliceSession {
		t.Errorf("recruiter must only see company 5 sessions, got %+v", items)
	}

	items, total, err = f.sessions.List(ctx, f.actor(userAdmin), model.SessionFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("admin sees every session, got %d", total)
	}
}

func TestList_ReportsExpiredStatus(t *testing.T) {
	f := newFixture(t)
	f.seed()
	id := f.startAs(t, userAlice, testTwoQuestions)
	f.clock.Advance(time.Hour)

	items, _, err := f.sessions.List(context.Background(), f.actor(userAdmin), model.SessionFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != id || items[0].Status != model.SessionStatusExpired {
		t.Errorf("expected EXPIRED listing, got %+v", items)
	}
	if f.session(id).Status != model.SessionStatusInProgress {
		t.Error("expiry must never be written")
	}
}
