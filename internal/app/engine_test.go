package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizbox-service/internal/domain"
)

// fakeScheduler captures scheduled callbacks so tests control time.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) schedule(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &fakeTimer{d: d, fn: fn}
	s.timers = append(s.timers, timer)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if timer.stopped || timer.fired {
			return false
		}
		timer.stopped = true
		return true
	}
}

// fire runs the oldest pending callback.
func (s *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	var next *fakeTimer
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired {
			next = timer
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		t.Fatalf("no pending timer to fire")
	}
	next.fired = true
	fn := next.fn
	s.mu.Unlock()
	fn()
}

func (s *fakeScheduler) pending(t *testing.T) *fakeTimer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired {
			return timer
		}
	}
	return nil
}

// recordingLeaderboard counts merges and signals each call.
type recordingLeaderboard struct {
	mu    sync.Mutex
	calls []mergeCall
	done  chan struct{}
}

type mergeCall struct {
	userID string
	delta  int
	name   string
}

func newRecordingLeaderboard() *recordingLeaderboard {
	return &recordingLeaderboard{done: make(chan struct{}, 8)}
}

func (l *recordingLeaderboard) MergeScore(_ context.Context, userID string, delta int, name string) error {
	l.mu.Lock()
	l.calls = append(l.calls, mergeCall{userID: userID, delta: delta, name: name})
	l.mu.Unlock()
	l.done <- struct{}{}
	return nil
}

func (l *recordingLeaderboard) Top(_ context.Context, _ int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (l *recordingLeaderboard) waitForMerge(t *testing.T) mergeCall {
	t.Helper()
	select {
	case <-l.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for leaderboard merge")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[len(l.calls)-1]
}

func (l *recordingLeaderboard) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type staticDirectory struct{ name string }

func (d staticDirectory) DisplayName(context.Context, string) (string, error) {
	return d.name, nil
}

func twoOptionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    1,
		Title: "Sample",
		Questions: []domain.Question{
			{Prompt: "Pick B", Options: []string{"A", "B"}, CorrectIndex: 1},
		},
	}
}

func threeQuestionQuiz() domain.Quiz {
	question := func(correct int) domain.Question {
		return domain.Question{Prompt: "q", Options: []string{"a", "b", "c"}, CorrectIndex: correct}
	}
	return domain.Quiz{
		ID:        2,
		Questions: []domain.Question{question(0), question(1), question(2)},
	}
}

func newTestEngine(quiz domain.Quiz, lb LeaderboardStore) (*Engine, *fakeScheduler) {
	sched := &fakeScheduler{}
	engine := NewEngineWithSchedule(quiz, "u1", "Alice", lb, staticDirectory{name: "Alice"}, sched.schedule)
	return engine, sched
}

func TestSelectCorrectAnswerCompletesAndMergesOnce(t *testing.T) {
	lb := newRecordingLeaderboard()
	engine, _ := newTestEngine(twoOptionQuiz(), lb)
	engine.Start()

	if err := engine.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	view := engine.View()
	if !view.Answered || view.Score != 1 || view.State != domain.StateAnswered {
		t.Fatalf("expected locked correct answer, got %+v", view)
	}
	if view.SelectedOption == nil || *view.SelectedOption != 1 {
		t.Fatalf("expected selected option 1, got %+v", view.SelectedOption)
	}

	if err := engine.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	view = engine.View()
	if !view.Finished || view.State != domain.StateCompleted || view.ProgressPercent != 100 {
		t.Fatalf("expected completed at 100%%, got %+v", view)
	}

	select {
	case <-engine.Completed():
	default:
		t.Fatalf("expected completed signal")
	}

	call := lb.waitForMerge(t)
	if call.userID != "u1" || call.delta != 1 || call.name != "Alice" {
		t.Fatalf("unexpected merge call %+v", call)
	}

	// Completed is terminal: further intents change nothing and never merge twice.
	_ = engine.Select(0)
	_ = engine.Advance()
	if got := engine.View(); got.Score != 1 || !got.Finished {
		t.Fatalf("terminal state mutated: %+v", got)
	}
	if lb.count() != 1 {
		t.Fatalf("expected exactly one merge, got %d", lb.count())
	}
}

func TestTimeoutLocksWithoutScoreAndAutoAdvances(t *testing.T) {
	lb := newRecordingLeaderboard()
	engine, sched := newTestEngine(twoOptionQuiz(), lb)
	engine.Start()

	for i := 0; i < questionSeconds; i++ {
		sched.fire(t)
	}

	view := engine.View()
	if !view.Answered || view.SelectedOption != nil || view.Score != 0 || view.TimeRemaining != 0 {
		t.Fatalf("expected timeout lock with no selection, got %+v", view)
	}

	pending := sched.pending(t)
	if pending == nil || pending.d != revealDelay {
		t.Fatalf("expected pending auto-advance of %v, got %+v", revealDelay, pending)
	}

	sched.fire(t)
	view = engine.View()
	if !view.Finished || view.ProgressPercent != 100 {
		t.Fatalf("expected completed after auto-advance, got %+v", view)
	}

	// Score 0: no leaderboard write.
	if lb.count() != 0 {
		t.Fatalf("expected no merge for zero score, got %d", lb.count())
	}
}

func TestSecondSelectionIsIgnored(t *testing.T) {
	engine, _ := newTestEngine(twoOptionQuiz(), newRecordingLeaderboard())
	engine.Start()

	if err := engine.Select(0); err != nil { // wrong answer locks in
		t.Fatalf("select: %v", err)
	}
	if err := engine.Select(1); err != nil { // late correct answer is a no-op
		t.Fatalf("second select: %v", err)
	}

	view := engine.View()
	if view.Score != 0 {
		t.Fatalf("late selection changed score: %+v", view)
	}
	if view.SelectedOption == nil || *view.SelectedOption != 0 {
		t.Fatalf("late selection replaced the locked answer: %+v", view)
	}
}

func TestStaleTickAfterSelectionIsNoOp(t *testing.T) {
	engine, sched := newTestEngine(twoOptionQuiz(), newRecordingLeaderboard())
	engine.Start()

	sched.fire(t) // one real tick
	before := engine.View().TimeRemaining

	tick := sched.pending(t)
	if tick == nil {
		t.Fatalf("expected a scheduled tick")
	}
	if err := engine.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}

	// A tick already in flight when the lock landed must not decrement or
	// re-expire.
	tick.fired = true
	tick.fn()
	view := engine.View()
	if view.TimeRemaining != before || !view.Answered || view.Score != 1 {
		t.Fatalf("stale tick mutated session: %+v", view)
	}
}

func TestEveryQuestionLocksExactlyOnceBeforeCompletion(t *testing.T) {
	lb := newRecordingLeaderboard()
	engine, sched := newTestEngine(threeQuestionQuiz(), lb)
	engine.Start()

	updates, cancel := engine.Subscribe()
	defer cancel()

	lastProgress := -1.0
	drain := func() {
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				if view.ProgressPercent < lastProgress {
					t.Fatalf("progress went backwards: %v -> %v", lastProgress, view.ProgressPercent)
				}
				lastProgress = view.ProgressPercent
			default:
				return
			}
		}
	}

	// Q1: correct selection, manual advance.
	if err := engine.Select(0); err != nil {
		t.Fatalf("select q1: %v", err)
	}
	if err := engine.Advance(); err != nil {
		t.Fatalf("advance q1: %v", err)
	}
	drain()

	// Q2: timeout, then explicit advance beats the delayed one.
	for i := 0; i < questionSeconds; i++ {
		sched.fire(t)
	}
	if view := engine.View(); !view.Answered || view.SelectedOption != nil {
		t.Fatalf("expected q2 timeout lock, got %+v", view)
	}
	if err := engine.Advance(); err != nil {
		t.Fatalf("advance q2: %v", err)
	}
	drain()

	// Q3: wrong selection.
	if err := engine.Select(0); err != nil {
		t.Fatalf("select q3: %v", err)
	}
	if err := engine.Advance(); err != nil {
		t.Fatalf("advance q3: %v", err)
	}
	drain()

	view := engine.View()
	if !view.Finished || view.Score != 1 {
		t.Fatalf("expected score 1 of 3 at completion, got %+v", view)
	}
	if lastProgress != 100 {
		t.Fatalf("expected final progress 100, got %v", lastProgress)
	}

	call := lb.waitForMerge(t)
	if call.delta != 1 {
		t.Fatalf("expected merge delta 1, got %+v", call)
	}
}

func TestEmptyQuizIsTerminalWithoutTimers(t *testing.T) {
	lb := newRecordingLeaderboard()
	engine, sched := newTestEngine(domain.Quiz{ID: 9}, lb)
	engine.Start()

	view := engine.View()
	if view.State != domain.StateNoQuestions || !view.Finished {
		t.Fatalf("expected terminal no-questions state, got %+v", view)
	}
	if view.ProgressPercent != 0 {
		t.Fatalf("expected zero progress for empty quiz, got %v", view.ProgressPercent)
	}
	if pending := sched.pending(t); pending != nil {
		t.Fatalf("expected no timer for empty quiz, got %+v", pending)
	}
	if lb.count() != 0 {
		t.Fatalf("expected no merge for empty quiz")
	}
}

func TestExitSuppressesInFlightAutoAdvance(t *testing.T) {
	lb := newRecordingLeaderboard()
	engine, sched := newTestEngine(twoOptionQuiz(), lb)
	engine.Start()

	for i := 0; i < questionSeconds; i++ {
		sched.fire(t)
	}
	pending := sched.pending(t)
	if pending == nil {
		t.Fatalf("expected pending auto-advance")
	}

	engine.Exit()

	// Simulate the callback racing teardown: it must hit the generation guard.
	pending.fired = true
	pending.fn()

	view := engine.View()
	if view.Finished && view.State == domain.StateCompleted {
		t.Fatalf("stale auto-advance completed a torn-down session: %+v", view)
	}
	if lb.count() != 0 {
		t.Fatalf("torn-down session must not persist, got %d merges", lb.count())
	}
}

func TestSelectOutOfRangeOption(t *testing.T) {
	engine, _ := newTestEngine(twoOptionQuiz(), newRecordingLeaderboard())
	engine.Start()

	if err := engine.Select(5); err != domain.ErrInvalidOption {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if view := engine.View(); view.Answered {
		t.Fatalf("invalid selection locked the question: %+v", view)
	}
}

func TestSubscribeAfterExitReturnsClosedChannel(t *testing.T) {
	engine, _ := newTestEngine(twoOptionQuiz(), newRecordingLeaderboard())
	engine.Start()
	engine.Exit()

	ch, cancel := engine.Subscribe()
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after exit")
	}
	if err := engine.Select(1); err != domain.ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
