package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/store"
)

// Phase represents the current phase of a quiz session.
type Phase int

const (
	PhaseLoading    Phase = iota // fetching questions
	PhaseActive                  // answering
	PhaseSubmitting              // submission in flight
	PhaseScored                  // score persisted
	PhaseFailed                  // submission could not be persisted
	PhaseClosed                  // torn down
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseSubmitting:
		return "submitting"
	case PhaseScored:
		return "scored"
	case PhaseFailed:
		return "failed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

var (
	// ErrIncomplete rejects a manual submit while any question lacks a
	// selection. Timer expiry bypasses this gate.
	ErrIncomplete = errors.New("not every question has an answer")

	// ErrNotActive rejects operations outside the Active phase.
	ErrNotActive = errors.New("quiz session is not active")
)

// Config identifies the quiz a session runs against.
type Config struct {
	OwnerID  string
	QuizID   string
	CourseID string
}

// Session manages one quiz attempt: question navigation, per-question
// answer selection, the countdown timer, and submission with local-scoring
// fallback. All state is per-instance; nothing is shared across sessions.
type Session struct {
	id     string
	cfg    Config
	st     *store.Store
	api    gateway.API
	logger *zap.Logger

	mu               sync.Mutex
	phase            Phase
	questions        []gateway.Question
	selected         map[int]string // question index -> answerId
	current          int
	initialSeconds   int
	remainingSeconds int
	startedAt        time.Time
	timerStop        chan struct{}
	score            *store.ScoreRecord
}

// NewSession creates a session in PhaseLoading. A nil logger is replaced
// with a no-op logger.
func NewSession(cfg Config, st *store.Store, api gateway.API, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		st:       st,
		api:      api,
		logger:   logger,
		phase:    PhaseLoading,
		selected: make(map[int]string),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Phase returns the current session phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Load fetches the question set and activates the session. An empty
// result is tolerated silently when a previous successful fetch already
// populated the session, so a flaky retry never clobbers an in-progress
// quiz. A successful re-fetch resets selections and the countdown.
func (s *Session) Load(ctx context.Context) error {
	questions, err := s.api.FetchQuizQuestions(ctx, s.cfg.QuizID)
	if err != nil {
		s.mu.Lock()
		populated := len(s.questions) > 0 && s.phase == PhaseActive
		s.mu.Unlock()
		if errors.Is(err, gateway.ErrEmptyResult) && populated {
			s.logger.Debug("ignoring empty question fetch on populated session",
				zap.String("quizId", s.cfg.QuizID))
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseClosed {
		return ErrNotActive
	}

	s.questions = questions
	s.selected = make(map[int]string)
	s.current = 0
	s.initialSeconds = TimeLimitMinutes(len(questions)) * 60
	s.remainingSeconds = s.initialSeconds
	s.startedAt = time.Now()
	s.phase = PhaseActive

	s.stopTimerLocked()
	if s.initialSeconds > 0 {
		s.startTimerLocked()
	}
	return nil
}

// Questions returns the session's question set.
func (s *Session) Questions() []gateway.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Current returns the index and question under the cursor.
func (s *Session) Current() (int, gateway.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return 0, gateway.Question{}, false
	}
	return s.current, s.questions[s.current], true
}

// Next advances the cursor. Out-of-range moves clamp, never error.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(s.current + 1)
}

// Previous moves the cursor back. Out-of-range moves clamp, never error.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(s.current - 1)
}

// GoTo jumps the cursor to index, clamped to [0, len-1].
func (s *Session) GoTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goToLocked(index)
}

func (s *Session) goToLocked(index int) {
	if len(s.questions) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.questions)-1 {
		index = len(s.questions) - 1
	}
	s.current = index
}

// SelectAnswer records the answer for the current question, overwriting
// any prior selection for that question only.
func (s *Session) SelectAnswer(answerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive || len(s.questions) == 0 {
		return
	}
	s.selected[s.current] = answerID
}

// SelectedAnswer returns the selection for a question index.
func (s *Session) SelectedAnswer(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.selected[index]
	return id, ok
}

// AllAnswered reports whether every question has a selection.
func (s *Session) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions) > 0 && len(s.selected) == len(s.questions)
}

// TimeRemaining returns the countdown state in seconds. Initial is 0 for
// an unbounded session.
func (s *Session) TimeRemaining() (remaining, initial int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds, s.initialSeconds
}

// Score returns the persisted score record once the session is scored.
func (s *Session) Score() (store.ScoreRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.score == nil {
		return store.ScoreRecord{}, false
	}
	return *s.score, true
}

// Submit performs a manual submission. It is rejected with ErrIncomplete
// unless every question has a selection; only timer expiry may submit a
// partial answer set.
func (s *Session) Submit(ctx context.Context) (store.ScoreRecord, error) {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return store.ScoreRecord{}, ErrNotActive
	}
	if len(s.selected) != len(s.questions) {
		s.mu.Unlock()
		return store.ScoreRecord{}, ErrIncomplete
	}
	s.mu.Unlock()

	return s.submit(ctx)
}

// submit runs the submission pipeline: freeze the session, push to the
// backend, fall back to local scoring on any failure, persist exactly one
// score record.
func (s *Session) submit(ctx context.Context) (store.ScoreRecord, error) {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return store.ScoreRecord{}, ErrNotActive
	}
	s.phase = PhaseSubmitting
	s.stopTimerLocked()

	questions := s.questions
	selected := make(map[int]string, len(s.selected))
	for k, v := range s.selected {
		selected[k] = v
	}
	timeSpent := s.initialSeconds - s.remainingSeconds
	if s.initialSeconds == 0 {
		timeSpent = int(time.Since(s.startedAt).Seconds())
	}
	s.mu.Unlock()

	choices := make([]gateway.AnswerChoice, 0, len(selected))
	for i, q := range questions {
		if answerID, ok := selected[i]; ok {
			choices = append(choices, gateway.AnswerChoice{QuestionID: q.QuestionID, AnswerID: answerID})
		}
	}

	rec, err := s.api.SubmitQuizAnswers(ctx, s.cfg.QuizID, gateway.Submission{
		OwnerID:          s.cfg.OwnerID,
		CourseID:         s.cfg.CourseID,
		Answers:          choices,
		TimeSpentSeconds: timeSpent,
	})
	if err != nil {
		// Local fallback: the correctness flags rode along with the
		// questions, so the learner can always finish.
		s.logger.Warn("remote scoring failed, scoring locally",
			zap.String("quizId", s.cfg.QuizID),
			zap.Error(err))
		correct := LocalScore(questions, selected)
		rec = store.ScoreRecord{
			OwnerID:        s.cfg.OwnerID,
			QuizID:         s.cfg.QuizID,
			CourseID:       s.cfg.CourseID,
			CorrectAnswers: correct,
			TotalQuestions: len(questions),
			Percentage:     ScorePercentage(correct, len(questions)),
			CompletedAt:    time.Now().UTC(),
		}
	}

	if err := s.st.SaveScore(ctx, rec); err != nil {
		s.mu.Lock()
		s.phase = PhaseFailed
		s.mu.Unlock()
		return store.ScoreRecord{}, err
	}

	s.mu.Lock()
	s.phase = PhaseScored
	s.score = &rec
	s.mu.Unlock()
	return rec, nil
}

// Close tears the session down: the timer is stopped and no further
// operations are accepted. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.phase = PhaseClosed
}

// startTimerLocked launches the session's single repeating one-second
// tick. Callers must hold s.mu and have stopped any previous timer.
func (s *Session) startTimerLocked() {
	stop := make(chan struct{})
	s.timerStop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if s.tick() {
					return
				}
			}
		}
	}()
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

// tick advances the countdown by one second. It reports true when the
// timer should stop, either because the session left Active or because
// expiry forced a submission of whatever subset is selected.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.phase != PhaseActive || s.initialSeconds == 0 {
		s.mu.Unlock()
		return true
	}
	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}
	expired := s.remainingSeconds == 0
	s.mu.Unlock()

	if expired {
		if _, err := s.submit(context.Background()); err != nil && !errors.Is(err, ErrNotActive) {
			s.logger.Warn("forced submission failed",
				zap.String("quizId", s.cfg.QuizID),
				zap.Error(err))
		}
		return true
	}
	return false
}
