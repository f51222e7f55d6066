package quiz

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/store"
)

// fakeAPI serves a fixed question set and scripts the submission outcome.
type fakeAPI struct {
	questions   []gateway.Question
	fetchErr    error
	submitErr   error
	submitted   []gateway.Submission
	serverScore *store.ScoreRecord
}

func (f *fakeAPI) FetchChapterStatus(_ context.Context, _ string) ([]gateway.ChapterStatus, error) {
	return nil, nil
}

func (f *fakeAPI) MarkChapterComplete(_ context.Context, _ string) (gateway.CompletionResult, error) {
	return gateway.CompletionResult{}, nil
}

func (f *fakeAPI) FetchQuizQuestions(_ context.Context, _ string) ([]gateway.Question, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.questions, nil
}

func (f *fakeAPI) SubmitQuizAnswers(_ context.Context, quizID string, sub gateway.Submission) (store.ScoreRecord, error) {
	f.submitted = append(f.submitted, sub)
	if f.submitErr != nil {
		return store.ScoreRecord{}, f.submitErr
	}
	if f.serverScore != nil {
		rec := *f.serverScore
		rec.QuizID = quizID
		rec.OwnerID = sub.OwnerID
		return rec, nil
	}
	return store.ScoreRecord{}, errors.New("no scripted score")
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fiveQuestions() []gateway.Question {
	qs := make([]gateway.Question, 5)
	for i := range qs {
		id := string(rune('1' + i))
		qs[i] = twoAnswerQuestion("q"+id, "right-"+id, "wrong-"+id)
	}
	return qs
}

func activeSession(t *testing.T, api *fakeAPI) *Session {
	t.Helper()
	s := NewSession(Config{OwnerID: "owner-1", QuizID: "quiz-1", CourseID: "course-1"},
		openTestStore(t), api, nil)
	t.Cleanup(s.Close)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoad_ActivatesSession(t *testing.T) {
	s := activeSession(t, &fakeAPI{questions: fiveQuestions()})

	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %s, want active", s.Phase())
	}
	remaining, initial := s.TimeRemaining()
	if initial != 15*60 || remaining != initial {
		t.Errorf("timer = %d/%d, want 900/900", remaining, initial)
	}
	if s.timerStop == nil {
		t.Error("bounded session should have a running timer")
	}
}

func TestLoad_EmptyOnFreshSessionFails(t *testing.T) {
	s := NewSession(Config{OwnerID: "owner-1", QuizID: "quiz-1"}, openTestStore(t),
		&fakeAPI{fetchErr: gateway.ErrEmptyResult}, nil)
	defer s.Close()

	err := s.Load(context.Background())
	if !errors.Is(err, gateway.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestLoad_EmptyRetryToleratedOnPopulatedSession(t *testing.T) {
	api := &fakeAPI{questions: fiveQuestions()}
	s := activeSession(t, api)
	s.SelectAnswer("right-1")

	// A flaky refetch returning nothing must not clobber the session.
	api.fetchErr = gateway.ErrEmptyResult
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("empty retry surfaced: %v", err)
	}
	if got, ok := s.SelectedAnswer(0); !ok || got != "right-1" {
		t.Errorf("selection lost: %q %v", got, ok)
	}
	if len(s.Questions()) != 5 {
		t.Error("questions clobbered by empty retry")
	}
}

func TestLoad_UnboundedSessionHasNoTimer(t *testing.T) {
	qs := make([]gateway.Question, 61)
	for i := range qs {
		qs[i] = twoAnswerQuestion("q", "a", "b")
	}
	s := activeSession(t, &fakeAPI{questions: qs})

	remaining, initial := s.TimeRemaining()
	if initial != 0 || remaining != 0 {
		t.Errorf("timer = %d/%d, want unbounded 0/0", remaining, initial)
	}
	if s.timerStop != nil {
		t.Error("unbounded session must not start a countdown")
	}
}

func TestNavigation_Clamped(t *testing.T) {
	s := activeSession(t, &fakeAPI{questions: fiveQuestions()})

	s.Previous() // below zero clamps
	if i, _, _ := s.Current(); i != 0 {
		t.Errorf("index = %d, want 0", i)
	}

	s.GoTo(99) // beyond end clamps
	if i, _, _ := s.Current(); i != 4 {
		t.Errorf("index = %d, want 4", i)
	}

	s.Next() // already at end
	if i, _, _ := s.Current(); i != 4 {
		t.Errorf("index = %d, want 4", i)
	}

	s.GoTo(-7)
	if i, _, _ := s.Current(); i != 0 {
		t.Errorf("index = %d, want 0", i)
	}

	s.GoTo(2)
	s.Next()
	if i, _, _ := s.Current(); i != 3 {
		t.Errorf("index = %d, want 3", i)
	}
}

func TestSelectAnswer_SingleChoiceOverwrite(t *testing.T) {
	s := activeSession(t, &fakeAPI{questions: fiveQuestions()})

	s.SelectAnswer("wrong-1")
	s.SelectAnswer("right-1") // overwrite for the same question
	s.Next()
	s.SelectAnswer("right-2")

	if got, _ := s.SelectedAnswer(0); got != "right-1" {
		t.Errorf("q0 = %q, want overwritten right-1", got)
	}
	if got, _ := s.SelectedAnswer(1); got != "right-2" {
		t.Errorf("q1 = %q, want right-2", got)
	}
	if _, ok := s.SelectedAnswer(2); ok {
		t.Error("q2 should be unanswered")
	}
}

func TestSubmit_GatedOnCompleteness(t *testing.T) {
	api := &fakeAPI{questions: fiveQuestions()}
	s := activeSession(t, api)

	// Answer 4 of 5.
	for i := 0; i < 4; i++ {
		s.GoTo(i)
		s.SelectAnswer("right-" + string(rune('1'+i)))
	}

	_, err := s.Submit(context.Background())
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if s.Phase() != PhaseActive {
		t.Errorf("phase = %s, rejected submit must leave session active", s.Phase())
	}
	if len(api.submitted) != 0 {
		t.Error("rejected submit reached the backend")
	}
}

func TestForcedSubmit_PartialAnswersCountedWrong(t *testing.T) {
	api := &fakeAPI{questions: fiveQuestions(), submitErr: &gateway.ErrTransient{StatusCode: 503}}
	s := activeSession(t, api)

	// 4 of 5 answered correctly, then the timer expires.
	for i := 0; i < 4; i++ {
		s.GoTo(i)
		s.SelectAnswer("right-" + string(rune('1'+i)))
	}

	s.mu.Lock()
	s.remainingSeconds = 1
	s.mu.Unlock()
	if stop := s.tick(); !stop {
		t.Fatal("expiring tick should stop the timer")
	}

	if s.Phase() != PhaseScored {
		t.Fatalf("phase = %s, want scored", s.Phase())
	}
	rec, ok := s.Score()
	if !ok {
		t.Fatal("no score after forced submit")
	}
	if rec.CorrectAnswers != 4 || rec.TotalQuestions != 5 || rec.Percentage != 80 {
		t.Errorf("score = %+v, want 4/5 = 80%%", rec)
	}
	if len(api.submitted) != 1 {
		t.Fatalf("submissions = %d, want exactly 1", len(api.submitted))
	}
	if len(api.submitted[0].Answers) != 4 {
		t.Errorf("submission carried %d answers, want the 4 selected", len(api.submitted[0].Answers))
	}
}

func TestSubmit_FallbackScoringOnBackendFailure(t *testing.T) {
	api := &fakeAPI{questions: fiveQuestions(), submitErr: &gateway.ErrTransient{StatusCode: 500}}
	s := activeSession(t, api)
	st := s.st

	answers := []string{"right-1", "wrong-2", "right-3", "right-4", "wrong-5"}
	for i, a := range answers {
		s.GoTo(i)
		s.SelectAnswer(a)
	}

	rec, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("fallback must not surface backend failure: %v", err)
	}
	if rec.CorrectAnswers != 3 || rec.TotalQuestions != 5 || rec.Percentage != 60 {
		t.Errorf("score = %+v, want local 3/5 = 60%%", rec)
	}

	persisted, ok, err := st.Score(context.Background(), "owner-1", "quiz-1")
	if err != nil || !ok {
		t.Fatalf("Score = %+v, %v, %v", persisted, ok, err)
	}
	if persisted.CorrectAnswers != 3 {
		t.Errorf("persisted %+v, want the fallback score", persisted)
	}
}

func TestSubmit_ServerScorePersisted(t *testing.T) {
	api := &fakeAPI{
		questions: fiveQuestions(),
		serverScore: &store.ScoreRecord{
			CourseID: "course-1", CorrectAnswers: 5, TotalQuestions: 5, Percentage: 100,
		},
	}
	s := activeSession(t, api)

	for i := 0; i < 5; i++ {
		s.GoTo(i)
		s.SelectAnswer("right-" + string(rune('1'+i)))
	}

	rec, err := s.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Percentage != 100 {
		t.Errorf("percentage = %d, want server 100", rec.Percentage)
	}
	if !Passed(rec) {
		t.Error("100%% should pass")
	}

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("second submit err = %v, want ErrNotActive", err)
	}
}

func TestSubmit_TimeSpentDerivedFromCountdown(t *testing.T) {
	api := &fakeAPI{
		questions:   fiveQuestions(),
		serverScore: &store.ScoreRecord{CorrectAnswers: 5, TotalQuestions: 5, Percentage: 100},
	}
	s := activeSession(t, api)

	for i := 0; i < 5; i++ {
		s.GoTo(i)
		s.SelectAnswer("right-" + string(rune('1'+i)))
	}

	s.mu.Lock()
	s.remainingSeconds = s.initialSeconds - 42
	s.mu.Unlock()

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := api.submitted[0].TimeSpentSeconds; got != 42 {
		t.Errorf("timeSpent = %d, want 42", got)
	}
}

func TestClose_StopsTimerAndRejectsWork(t *testing.T) {
	s := activeSession(t, &fakeAPI{questions: fiveQuestions()})

	s.Close()
	s.Close() // idempotent

	if s.Phase() != PhaseClosed {
		t.Fatalf("phase = %s, want closed", s.Phase())
	}
	if s.timerStop != nil {
		t.Error("timer still running after close")
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("submit after close = %v, want ErrNotActive", err)
	}

	// A stale tick against the closed session must not fire a submission.
	if stop := s.tick(); !stop {
		t.Error("tick against closed session should stop the timer")
	}
}

func TestReload_ResetsSessionAndTimer(t *testing.T) {
	api := &fakeAPI{questions: fiveQuestions()}
	s := activeSession(t, api)
	s.SelectAnswer("right-1")
	firstTimer := s.timerStop

	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.SelectedAnswer(0); ok {
		t.Error("reload should reset selections")
	}
	if s.timerStop == firstTimer {
		t.Error("reload should replace the countdown timer")
	}
	select {
	case <-firstTimer:
		// old timer cancelled
	default:
		t.Error("previous timer left running after reload")
	}
}
