package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quizbox-service/internal/domain"
)

const (
	questionSeconds = 60
	tickInterval    = time.Second
	// revealDelay keeps the correct answer on screen after a timeout before
	// the session moves on without user input.
	revealDelay    = 2500 * time.Millisecond
	persistTimeout = 5 * time.Second
)

// LeaderboardStore persists per-user cumulative scores. MergeScore must be an
// atomic read-modify-write on the user's record: concurrent sessions for the
// same user may not lose an update.
type LeaderboardStore interface {
	MergeScore(ctx context.Context, userID string, delta int, displayNameIfNew string) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// UserDirectory resolves display names for leaderboard entries. Lookups are
// best-effort; the engine falls back to the name supplied at session start.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// ScheduleFunc runs fn once after d and returns a stop function. Swapped out
// in tests for deterministic timer control.
type ScheduleFunc func(d time.Duration, fn func()) (stop func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Engine drives a single user's attempt at a single quiz: one question at a
// time, a 60 second countdown per question, first answer locked in, score
// accumulated, and an at-most-once additive leaderboard write on completion.
// Construct one per session; it is safe for concurrent use by the timer
// callbacks and the caller's intent handlers.
type Engine struct {
	quiz        domain.Quiz
	userID      string
	displayName string
	leaderboard LeaderboardStore
	users       UserDirectory
	schedule    ScheduleFunc

	mu          sync.Mutex
	started     bool
	idx         int
	selected    int // -1 until an answer is locked
	answered    bool
	score       int
	timeLeft    int
	finished    bool
	noQuestions bool
	persisted   bool
	closed      bool

	// gen invalidates scheduled callbacks from a previous question or a torn
	// down session; bumped on every advance, completion, and exit.
	gen         int
	stopTick    func() bool
	stopAdvance func() bool

	subscribers map[chan domain.SessionView]struct{}
	completed   chan struct{}
	completeSig sync.Once
}

// NewEngine builds a session engine over the given quiz for one user.
func NewEngine(quiz domain.Quiz, userID, displayName string, leaderboard LeaderboardStore, users UserDirectory) *Engine {
	return NewEngineWithSchedule(quiz, userID, displayName, leaderboard, users, afterFunc)
}

// NewEngineWithSchedule is the test seam for deterministic timers.
func NewEngineWithSchedule(quiz domain.Quiz, userID, displayName string, leaderboard LeaderboardStore, users UserDirectory, schedule ScheduleFunc) *Engine {
	return &Engine{
		quiz:        quiz,
		userID:      userID,
		displayName: displayName,
		leaderboard: leaderboard,
		users:       users,
		schedule:    schedule,
		selected:    -1,
		subscribers: make(map[chan domain.SessionView]struct{}),
		completed:   make(chan struct{}),
	}
}

// Start presents the first question and begins its countdown. A quiz with no
// questions lands in a terminal no-questions state: no timer, no scoring.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true

	if len(e.quiz.Questions) == 0 {
		e.noQuestions = true
		e.finished = true
		e.broadcastLocked()
		return
	}
	e.presentLocked(0)
}

// Select locks in the user's answer for the current question. Only the first
// selection counts; anything after the lock is a silent no-op.
func (e *Engine) Select(optionIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrSessionClosed
	}
	if !e.started || e.finished || e.answered {
		return nil
	}
	question := e.quiz.Questions[e.idx]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.ErrInvalidOption
	}

	e.answered = true
	e.selected = optionIndex
	e.stopTimersLocked()
	if optionIndex == question.CorrectIndex {
		e.score++
	}
	e.broadcastLocked()
	return nil
}

// Advance moves to the next question, or to Completed after the last one.
// It is a no-op until the current question is answered.
func (e *Engine) Advance() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrSessionClosed
	}
	if !e.started || e.finished || !e.answered {
		return nil
	}
	e.advanceLocked()
	return nil
}

// Exit tears the session down: all timers are cancelled, in-flight scheduled
// transitions are suppressed, and subscriber channels are closed. Score from
// an abandoned session is discarded; persistence only happens at completion.
func (e *Engine) Exit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.gen++
	e.stopTimersLocked()
	for ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = make(map[chan domain.SessionView]struct{})
}

// Subscribe returns a channel of state snapshots, primed with the current
// view. The caller must invoke the cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subscribers[ch] = struct{}{}
	initial := e.viewLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// Completed is closed exactly once when the session reaches its terminal
// completed state. It never fires for an exited or no-questions session.
func (e *Engine) Completed() <-chan struct{} {
	return e.completed
}

// View returns the current snapshot.
func (e *Engine) View() domain.SessionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) presentLocked(idx int) {
	e.idx = idx
	e.answered = false
	e.selected = -1
	e.timeLeft = questionSeconds
	e.gen++
	e.broadcastLocked()
	e.scheduleTickLocked()
}

func (e *Engine) scheduleTickLocked() {
	gen := e.gen
	e.stopTick = e.schedule(tickInterval, func() { e.onTick(gen) })
}

func (e *Engine) onTick(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// First event wins: a selection that beat this tick already locked the
	// question, so the expiry is a no-op.
	if e.closed || e.finished || e.answered || gen != e.gen {
		return
	}

	e.timeLeft--
	if e.timeLeft > 0 {
		e.broadcastLocked()
		e.scheduleTickLocked()
		return
	}

	e.timeLeft = 0
	e.answered = true
	e.broadcastLocked()
	e.stopAdvance = e.schedule(revealDelay, func() { e.onAutoAdvance(gen) })
}

func (e *Engine) onAutoAdvance(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.finished || gen != e.gen || !e.answered {
		return
	}
	e.advanceLocked()
}

func (e *Engine) advanceLocked() {
	e.stopTimersLocked()
	if e.idx+1 < len(e.quiz.Questions) {
		e.presentLocked(e.idx + 1)
		return
	}
	e.completeLocked()
}

func (e *Engine) completeLocked() {
	e.finished = true
	e.gen++
	e.broadcastLocked()
	e.completeSig.Do(func() { close(e.completed) })

	// At most one leaderboard write per session instance; zero-score sessions
	// never write.
	if e.score > 0 && !e.persisted && e.leaderboard != nil {
		e.persisted = true
		go e.persistScore(e.score)
	}
}

func (e *Engine) persistScore(score int) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	name := e.displayName
	if e.users != nil {
		if resolved, err := e.users.DisplayName(ctx, e.userID); err == nil && resolved != "" {
			name = resolved
		}
	}
	if name == "" {
		name = "Anonymous"
	}

	if err := e.leaderboard.MergeScore(ctx, e.userID, score, name); err != nil {
		// Non-fatal: the session still completed; the write is fire-and-forget.
		log.Printf("leaderboard merge for user %s failed: %v", e.userID, err)
	}
}

func (e *Engine) stopTimersLocked() {
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
	if e.stopAdvance != nil {
		e.stopAdvance()
		e.stopAdvance = nil
	}
}

func (e *Engine) viewLocked() domain.SessionView {
	view := domain.SessionView{
		QuestionIndex:  e.idx,
		TotalQuestions: len(e.quiz.Questions),
		Answered:       e.answered,
		Score:          e.score,
		TimeRemaining:  e.timeLeft,
		Finished:       e.finished,
	}

	switch {
	case e.noQuestions:
		view.State = domain.StateNoQuestions
	case e.finished:
		view.State = domain.StateCompleted
		view.ProgressPercent = 100
	case e.answered:
		view.State = domain.StateAnswered
	default:
		view.State = domain.StatePresenting
	}

	if !e.finished && e.started && !e.noQuestions {
		question := e.quiz.Questions[e.idx]
		view.Question = &question
		view.ProgressPercent = float64(e.idx+1) / float64(len(e.quiz.Questions)) * 100
	}
	if e.selected >= 0 {
		selected := e.selected
		view.SelectedOption = &selected
	}
	return view
}

func (e *Engine) broadcastLocked() {
	view := e.viewLocked()
	for ch := range e.subscribers {
		select {
		case ch <- view:
		default:
			// Drop the stale snapshot so a slow consumer never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
