package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"quizmaster/internal/attempt"
	"quizmaster/internal/question"
	"quizmaster/internal/selection"
)

const (
	defaultTick = time.Second
	saveTimeout = 10 * time.Second
)

type questionDrawer interface {
	QuizQuestions(ctx context.Context, subjectIDs []string, f selection.AnswerFilter, userID string, numQuestions int) ([]question.Question, error)
}

type answerLedger interface {
	RecordAnswer(ctx context.Context, userID, questionID string, isCorrect bool) error
}

type attemptStore interface {
	SaveAttempt(ctx context.Context, userID string, subjectIDs []string, questions []question.Question, answers []*string) (*attempt.Attempt, error)
	Get(ctx context.Context, id string) (*attempt.Attempt, error)
}

type entry struct {
	mu         sync.Mutex
	state      *State
	stopTimer  context.CancelFunc
	finishedAt time.Time
	// removed is set once the entry has left the map; holders must look it up again.
	removed bool
}

// Manager holds one quiz per user and runs the exam timers.
type Manager struct {
	selector questionDrawer
	ledger   answerLedger
	attempts attemptStore
	logger   *slog.Logger
	now      func() time.Time
	tick     time.Duration
	timer    int

	mu       sync.Mutex
	sessions map[string]*entry

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithTick(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.tick = d
		}
	}
}

// WithDefaultTimer sets the exam length used when a request leaves it unset.
func WithDefaultTimer(minutes int) ManagerOption {
	return func(m *Manager) {
		if minutes >= MinTimerMinutes && minutes <= MaxTimerMinutes {
			m.timer = minutes
		}
	}
}

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(selector questionDrawer, ledger answerLedger, attempts attemptStore, opts ...ManagerOption) *Manager {
	root, cancel := context.WithCancel(context.Background())
	m := &Manager{
		selector: selector,
		ledger:   ledger,
		attempts: attempts,
		logger:   slog.Default(),
		now:      time.Now,
		tick:     defaultTick,
		timer:    DefaultTimerMinutes,
		sessions: make(map[string]*entry),
		root:     root,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close stops every exam timer and waits for them to exit.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) entry(userID string, create bool) (*entry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok {
		if !create {
			return nil, ErrNoSession
		}
		e = &entry{state: NewState()}
		m.sessions[userID] = e
	}
	return e, nil
}

// lock returns the user's entry with e.mu held. Entries dropped by Reset or
// Sweep while the caller waited are skipped.
func (m *Manager) lock(userID string, create bool) (*entry, error) {
	for {
		e, err := m.entry(userID, create)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if !e.removed {
			return e, nil
		}
		e.mu.Unlock()
	}
}

// Start configures a new quiz for the user and draws its questions. The
// current quiz is only replaced once the new one is ready.
func (m *Manager) Start(ctx context.Context, userID string, cfg Config) (_ View, err error) {
	e, err := m.lock(userID, true)
	if err != nil {
		return View{}, err
	}
	defer m.unlockAfterStart(userID, e, &err)

	m.expireLocked(ctx, userID, e)
	if cfg.TimerMinutes == 0 {
		cfg.TimerMinutes = m.timer
	}
	next := NewState()
	if err := next.Configure(cfg); err != nil {
		return View{}, err
	}
	qs, err := m.selector.QuizQuestions(ctx, next.Config.SubjectIDs, next.Config.Filter, userID, next.Config.NumQuestions)
	if err != nil {
		return View{}, err
	}
	if err := next.SetQuestions(qs, m.now()); err != nil {
		return View{}, err
	}
	m.replaceLocked(userID, e, next)

	m.logger.Info("quiz started",
		"user_id", userID,
		"questions", len(qs),
		"exam_mode", next.Config.ExamMode,
	)
	return e.state.Snapshot(m.now()), nil
}

// Redo starts a new quiz over the questions of an earlier attempt.
func (m *Manager) Redo(ctx context.Context, userID, attemptID string, examMode bool, timerMinutes int) (View, error) {
	a, err := m.attempts.Get(ctx, attemptID)
	if err != nil {
		return View{}, err
	}
	if a.UserID != strings.TrimSpace(userID) {
		return View{}, attempt.ErrAttemptNotFound
	}

	qs := make([]question.Question, len(a.Questions))
	for i, aq := range a.Questions {
		qs[i] = aq.Question.Clone()
	}
	subjectIDs := a.SubjectIDs
	if len(subjectIDs) == 0 {
		subjectIDs = subjectsOf(qs)
	}
	if !examMode {
		timerMinutes = 0
	} else if timerMinutes == 0 {
		timerMinutes = m.timer
	}

	next := NewState()
	if err := next.StartWithQuestions(qs, subjectIDs, examMode, timerMinutes, m.now()); err != nil {
		return View{}, err
	}

	e, err := m.lock(userID, true)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	m.expireLocked(ctx, userID, e)
	m.replaceLocked(userID, e, next)

	m.logger.Info("quiz redo started", "user_id", userID, "attempt_id", a.ID, "exam_mode", examMode)
	return e.state.Snapshot(m.now()), nil
}

func (m *Manager) View(ctx context.Context, userID string) (View, error) {
	e, err := m.lock(userID, false)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	m.expireLocked(ctx, userID, e)
	return e.state.Snapshot(m.now()), nil
}

// Answer records an answer for the current question and forwards the outcome
// to the ledger. A ledger failure is logged and does not fail the answer.
func (m *Manager) Answer(ctx context.Context, userID, answer string) (View, bool, error) {
	e, err := m.lock(userID, false)
	if err != nil {
		return View{}, false, err
	}
	defer e.mu.Unlock()

	if m.expireLocked(ctx, userID, e) {
		return e.state.Snapshot(m.now()), false, ErrNotInProgress
	}

	q, _ := e.state.Current()
	correct, err := e.state.RecordAnswer(answer)
	if err != nil {
		return View{}, false, err
	}
	if err := m.ledger.RecordAnswer(ctx, userID, q.ID, correct); err != nil {
		m.logger.Warn("record answer in ledger failed", "user_id", userID, "question_id", q.ID, "error", err)
	}

	v := e.state.Snapshot(m.now())
	if e.state.Config.ExamMode {
		return v, false, nil
	}
	return v, correct, nil
}

func (m *Manager) Next(ctx context.Context, userID string) (View, error) {
	e, err := m.lock(userID, false)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	if m.expireLocked(ctx, userID, e) {
		return e.state.Snapshot(m.now()), nil
	}
	if e.state.Phase != PhaseInProgress {
		return View{}, ErrNotInProgress
	}
	if e.state.CurrentIndex == len(e.state.Questions)-1 {
		m.finishLocked(ctx, userID, e, "completed")
		return e.state.Snapshot(m.now()), nil
	}
	if _, err := e.state.Next(); err != nil {
		return View{}, err
	}
	return e.state.Snapshot(m.now()), nil
}

func (m *Manager) Previous(ctx context.Context, userID string) (View, error) {
	e, err := m.lock(userID, false)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	if m.expireLocked(ctx, userID, e) {
		return e.state.Snapshot(m.now()), nil
	}
	if err := e.state.Previous(); err != nil {
		return View{}, err
	}
	return e.state.Snapshot(m.now()), nil
}

// End finishes the quiz early, scoring unanswered questions as incorrect.
func (m *Manager) End(ctx context.Context, userID string) (View, error) {
	e, err := m.lock(userID, false)
	if err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	if m.expireLocked(ctx, userID, e) {
		return e.state.Snapshot(m.now()), nil
	}
	if e.state.Phase != PhaseInProgress {
		return View{}, ErrNotInProgress
	}
	m.finishLocked(ctx, userID, e, "ended")
	return e.state.Snapshot(m.now()), nil
}

// Reset drops the user's quiz. Ledger and history are left alone.
func (m *Manager) Reset(userID string) {
	userID = strings.TrimSpace(userID)
	e, err := m.lock(userID, false)
	if err != nil {
		return
	}
	defer e.mu.Unlock()

	m.stopTimerLocked(e)
	e.state.Reset()
	m.removeLocked(userID, e)
}

// Sweep drops quizzes that finished more than idle ago and reports how many
// were removed.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	removed := 0
	for userID, e := range m.snapshotEntries() {
		e.mu.Lock()
		if !e.removed && e.state.Phase == PhaseFinished && !e.finishedAt.After(cutoff) {
			m.removeLocked(userID, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// removeLocked takes e out of the map if it is still the user's entry.
func (m *Manager) removeLocked(userID string, e *entry) {
	e.removed = true
	m.mu.Lock()
	if m.sessions[userID] == e {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}

func (m *Manager) snapshotEntries() map[string]*entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		out[id] = e
	}
	return out
}

// unlockAfterStart releases e, dropping it when a failed start left the
// user without any quiz.
func (m *Manager) unlockAfterStart(userID string, e *entry, err *error) {
	if *err != nil && e.state.Phase == PhaseConfiguring {
		m.removeLocked(userID, e)
	}
	e.mu.Unlock()
}

// replaceLocked swaps in a started quiz and moves the exam timer over to it.
func (m *Manager) replaceLocked(userID string, e *entry, next *State) {
	m.stopTimerLocked(e)
	e.state = next
	e.finishedAt = time.Time{}
	m.startTimerLocked(userID, e)
}

// expireLocked ends an exam whose deadline passed before the timer noticed.
func (m *Manager) expireLocked(ctx context.Context, userID string, e *entry) bool {
	if !e.state.Expired(m.now()) {
		return false
	}
	m.finishLocked(ctx, userID, e, "expired")
	return true
}

func (m *Manager) finishLocked(ctx context.Context, userID string, e *entry, reason string) {
	m.stopTimerLocked(e)
	tally := e.state.End()
	e.finishedAt = m.now()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	a, err := m.attempts.SaveAttempt(saveCtx, userID, e.state.Config.SubjectIDs, e.state.Questions, e.state.Answers)
	if err != nil {
		e.state.AttemptID = ""
		m.logger.Error("save attempt failed", "user_id", userID, "reason", reason, "error", err)
		return
	}
	e.state.AttemptID = a.ID

	m.logger.Info("quiz finished",
		"user_id", userID,
		"attempt_id", a.ID,
		"reason", reason,
		"correct", tally.Correct,
		"total", tally.Total,
		"score", a.Score,
	)
}

func (m *Manager) startTimerLocked(userID string, e *entry) {
	if !e.state.Config.ExamMode || e.state.Phase != PhaseInProgress {
		return
	}
	ctx, cancel := context.WithCancel(m.root)
	e.stopTimer = cancel
	m.wg.Add(1)
	go m.runTimer(ctx, userID, e)
}

func (m *Manager) stopTimerLocked(e *entry) {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}

func (m *Manager) runTimer(ctx context.Context, userID string, e *entry) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if ctx.Err() != nil || e.state.Phase != PhaseInProgress {
			e.mu.Unlock()
			return
		}
		if e.state.Expired(m.now()) {
			m.finishLocked(context.Background(), userID, e, "expired")
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
	}
}

func subjectsOf(qs []question.Question) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, q := range qs {
		if _, ok := seen[q.SubjectID]; ok {
			continue
		}
		seen[q.SubjectID] = struct{}{}
		out = append(out, q.SubjectID)
	}
	return out
}

// Active reports how many quizzes are in progress.
func (m *Manager) Active() int {
	n := 0
	for _, e := range m.snapshotEntries() {
		e.mu.Lock()
		if !e.removed && e.state.Phase == PhaseInProgress {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
