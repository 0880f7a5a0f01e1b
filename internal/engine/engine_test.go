package engine

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/farsign/farsign-core/internal/action"
)

// ─── Test doubles ───

// manualClock is a deterministic Clock driven by Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in time order.
// Callbacks run without the clock lock held so they may schedule new
// timers.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// fakeEnv is a controllable Environment recording every effect.
type fakeEnv struct {
	mu          sync.Mutex
	visible     map[string]bool
	clicks      [][2]int
	navigations []string
	scripts     []string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{visible: make(map[string]bool)}
}

func (f *fakeEnv) SetVisible(selector string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[selector] = v
}

func (f *fakeEnv) CheckVisible(selector, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[selector]
}

func (f *fakeEnv) Click(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, [2]int{x, y})
	return nil
}

func (f *fakeEnv) Navigate(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakeEnv) RunScript(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, code)
	return nil
}

func (f *fakeEnv) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

func (f *fakeEnv) navCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.navigations)
}

// recorder captures reporter events.
type recorder struct {
	mu        sync.Mutex
	triggered []string
	steps     []stepEvent
}

type stepEvent struct {
	actionID string
	index    int
	outcome  Outcome
}

func (r *recorder) ActionTriggered(actionID string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered = append(r.triggered, actionID)
}

func (r *recorder) StepDone(actionID string, index int, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, stepEvent{actionID: actionID, index: index, outcome: outcome})
}

func (r *recorder) triggeredIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]string(nil), r.triggered...)
	sort.Strings(ids)
	return ids
}

func (r *recorder) stepEvents() []stepEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stepEvent(nil), r.steps...)
}

func newTestEngine() (*Engine, *fakeEnv, *manualClock, *recorder) {
	env := newFakeEnv()
	clock := newManualClock()
	rec := &recorder{}
	eng := NewEngine(env, clock, nil)
	eng.SetReporter(rec)
	return eng, env, clock, rec
}

func visibleStep(selector string, timeoutSeconds float64, effect action.Effect) action.Step {
	return action.Step{
		Trigger: action.Trigger{
			Kind:           action.TriggerElementVisible,
			Selector:       selector,
			TimeoutSeconds: timeoutSeconds,
		},
		Effect: effect,
	}
}

func immediateStep(effect action.Effect) action.Step {
	return action.Step{
		Trigger: action.Trigger{Kind: action.TriggerImmediate},
		Effect:  effect,
	}
}

// ─── Trigger settlement ───

func TestElementVisibleExecutesBeforeTimeout(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#btn", 2, action.Effect{Kind: action.EffectClick, X: 10, Y: 20})},
	}})

	// Element appears at t=1s, inside the 2s timeout.
	clock.Advance(1 * time.Second)
	env.SetVisible("#btn", true)
	eng.NotifyChange()

	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, want 1", env.clickCount())
	}

	// The timeout must not fire a second outcome.
	clock.Advance(5 * time.Second)
	eng.NotifyChange()

	if env.clickCount() != 1 {
		t.Fatalf("clicks after timeout window = %d, want 1", env.clickCount())
	}
	events := rec.stepEvents()
	if len(events) != 1 || events[0].outcome != OutcomeExecuted {
		t.Fatalf("step events = %+v, want single executed", events)
	}
}

func TestTimeoutSkipsEffect(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#never", 2, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
	}})

	clock.Advance(2 * time.Second)

	if env.clickCount() != 0 {
		t.Fatalf("clicks = %d, want 0 after timeout", env.clickCount())
	}
	events := rec.stepEvents()
	if len(events) != 1 || events[0].outcome != OutcomeTimedOut {
		t.Fatalf("step events = %+v, want single timed-out", events)
	}
	if len(rec.triggeredIDs()) != 0 {
		t.Fatalf("triggered = %v, want none for a timed-out final step", rec.triggeredIDs())
	}
}

func TestTimeoutWinnerBlocksLateCondition(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#late", 1, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
	}})

	clock.Advance(1 * time.Second)
	env.SetVisible("#late", true)
	eng.NotifyChange()

	if env.clickCount() != 0 {
		t.Fatalf("clicks = %d, condition after timeout must not execute", env.clickCount())
	}
	if len(rec.stepEvents()) != 1 {
		t.Fatalf("step events = %+v, want exactly one settle", rec.stepEvents())
	}
}

func TestZeroTimeoutWaitsIndefinitely(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#pending", 0, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
	}})

	clock.Advance(10 * time.Second)

	if len(rec.stepEvents()) != 0 {
		t.Fatalf("step events = %+v, want none while waiting", rec.stepEvents())
	}

	// The watcher is still live.
	env.SetVisible("#pending", true)
	eng.NotifyChange()
	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, want 1 once the condition holds", env.clickCount())
	}
}

func TestConditionAlreadyTrueAtLoad(t *testing.T) {
	eng, env, _, _ := newTestEngine()
	env.SetVisible("#ready", true)

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#ready", 5, action.Effect{Kind: action.EffectClick, X: 3, Y: 4})},
	}})

	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, want 1 from the synchronous install check", env.clickCount())
	}
}

func TestRepeatedNotifyChangeExecutesOnce(t *testing.T) {
	eng, env, _, _ := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#x", 0, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
	}})

	env.SetVisible("#x", true)
	eng.NotifyChange()
	eng.NotifyChange()
	eng.NotifyChange()

	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, want 1 across repeated notifications", env.clickCount())
	}
}

// ─── Cancellation ───

func TestLoadCancelsPreviousSet(t *testing.T) {
	eng, env, clock, _ := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "old",
		Active: true,
		Steps:  []action.Step{visibleStep("#old", 5, action.Effect{Kind: action.EffectNavigate, URL: "https://old"})},
	}})

	eng.Load([]action.Definition{{
		ID:     "new",
		Active: true,
		Steps:  []action.Step{visibleStep("#new", 0, action.Effect{Kind: action.EffectNavigate, URL: "https://new"})},
	}})

	// The old condition becoming true must be invisible to the engine.
	env.SetVisible("#old", true)
	eng.NotifyChange()
	clock.Advance(10 * time.Second)

	if env.navCount() != 0 {
		t.Fatalf("navigations = %v, old set fired after replacement", env.navigations)
	}
}

func TestDisableCancelsTimersAndWatchers(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps:  []action.Step{visibleStep("#x", 2, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
	}})

	eng.Disable()

	env.SetVisible("#x", true)
	eng.NotifyChange()
	clock.Advance(5 * time.Second)

	if env.clickCount() != 0 || len(rec.stepEvents()) != 0 {
		t.Fatalf("disabled engine acted: clicks=%d events=%+v", env.clickCount(), rec.stepEvents())
	}
}

func TestInactiveActionsNotScheduled(t *testing.T) {
	eng, env, _, _ := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "off",
		Active: false,
		Steps:  []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://off"})},
	}})

	if env.navCount() != 0 {
		t.Fatalf("navigations = %v, inactive action fired", env.navigations)
	}
}

// ─── Sequencing, delays, chaining ───

func TestTwoStepSequenceWithDelay(t *testing.T) {
	eng, env, clock, rec := newTestEngine()
	start := clock.Now()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps: []action.Step{
			immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://x"}),
			{
				Trigger:      action.Trigger{Kind: action.TriggerElementVisible, Selector: "#play", TimeoutSeconds: 5},
				Effect:       action.Effect{Kind: action.EffectClick, X: 100, Y: 200},
				DelaySeconds: 0.5,
			},
		},
	}})

	// Step 0 navigates immediately.
	if env.navCount() != 1 || env.navigations[0] != "https://x" {
		t.Fatalf("navigations = %v, want immediate https://x", env.navigations)
	}

	// #play appears at t=0.2s; the click lands after the 0.5s delay.
	clock.Advance(200 * time.Millisecond)
	env.SetVisible("#play", true)
	eng.NotifyChange()

	if env.clickCount() != 0 {
		t.Fatal("click fired before its delay elapsed")
	}

	clock.Advance(500 * time.Millisecond)

	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, want 1 after delay", env.clickCount())
	}
	if env.clicks[0] != [2]int{100, 200} {
		t.Fatalf("click = %v, want (100,200)", env.clicks[0])
	}
	if got := clock.Now().Sub(start); got != 700*time.Millisecond {
		t.Fatalf("click time = %v, want 700ms", got)
	}
	if ids := rec.triggeredIDs(); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("triggered = %v, want exactly [a]", ids)
	}

	// The timeout for step 1 must stay silent.
	clock.Advance(10 * time.Second)
	if len(rec.stepEvents()) != 2 {
		t.Fatalf("step events = %+v, want exactly two", rec.stepEvents())
	}
}

func TestTimeoutAdvancesToNextStep(t *testing.T) {
	eng, env, clock, _ := newTestEngine()

	eng.Load([]action.Definition{{
		ID:     "a",
		Active: true,
		Steps: []action.Step{
			visibleStep("#never", 1, action.Effect{Kind: action.EffectClick, X: 1, Y: 1}),
			immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://fallback"}),
		},
	}})

	clock.Advance(1 * time.Second)

	if env.clickCount() != 0 {
		t.Fatal("timed-out step executed its effect")
	}
	if env.navCount() != 1 {
		t.Fatalf("navigations = %v, timeout must advance the sequence", env.navigations)
	}
}

func TestChainingSchedulesNextAction(t *testing.T) {
	eng, env, _, rec := newTestEngine()
	next := "b"

	eng.Load([]action.Definition{
		{
			ID:           "a",
			Active:       true,
			Steps:        []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://a"})},
			NextActionID: &next,
		},
		{
			// Chain target: loaded but not independently scheduled.
			ID:     "b",
			Active: false,
			Steps:  []action.Step{immediateStep(action.Effect{Kind: action.EffectClick, X: 5, Y: 6})},
		},
	})

	if env.navCount() != 1 || env.clickCount() != 1 {
		t.Fatalf("nav=%d click=%d, want the chain to run b after a", env.navCount(), env.clickCount())
	}
	if ids := rec.triggeredIDs(); len(ids) != 2 {
		t.Fatalf("triggered = %v, want both actions", ids)
	}
}

func TestChainingOnTimeout(t *testing.T) {
	eng, env, clock, _ := newTestEngine()
	next := "b"

	eng.Load([]action.Definition{
		{
			ID:           "a",
			Active:       true,
			Steps:        []action.Step{visibleStep("#never", 1, action.Effect{Kind: action.EffectClick, X: 1, Y: 1})},
			NextActionID: &next,
		},
		{
			ID:     "b",
			Active: false,
			Steps:  []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://b"})},
		},
	})

	clock.Advance(1 * time.Second)

	if env.clickCount() != 0 {
		t.Fatal("timed-out step executed")
	}
	if env.navCount() != 1 {
		t.Fatal("chain did not run on timeout")
	}
}

func TestChainToMissingActionEndsRun(t *testing.T) {
	eng, env, _, rec := newTestEngine()
	next := "ghost"

	eng.Load([]action.Definition{{
		ID:           "a",
		Active:       true,
		Steps:        []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://a"})},
		NextActionID: &next,
	}})

	if env.navCount() != 1 {
		t.Fatal("action a did not run")
	}
	if ids := rec.triggeredIDs(); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("triggered = %v, want just [a]", ids)
	}
}

func TestChainSettleGateIsIdempotent(t *testing.T) {
	eng, env, _, _ := newTestEngine()
	next := "shared"

	// Two actions both chain to the same target; it must run once.
	eng.Load([]action.Definition{
		{
			ID:           "a1",
			Active:       true,
			Steps:        []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://a1"})},
			NextActionID: &next,
		},
		{
			ID:           "a2",
			Active:       true,
			Steps:        []action.Step{immediateStep(action.Effect{Kind: action.EffectNavigate, URL: "https://a2"})},
			NextActionID: &next,
		},
		{
			ID:     "shared",
			Active: false,
			Steps:  []action.Step{immediateStep(action.Effect{Kind: action.EffectClick, X: 9, Y: 9})},
		},
	})

	if env.clickCount() != 1 {
		t.Fatalf("clicks = %d, shared chain target must execute once", env.clickCount())
	}
}

func TestZeroStepActionNeverFires(t *testing.T) {
	eng, env, clock, rec := newTestEngine()

	eng.Load([]action.Definition{{ID: "empty", Active: true}})
	clock.Advance(10 * time.Second)

	if env.clickCount()+env.navCount() != 0 || len(rec.stepEvents()) != 0 {
		t.Fatal("zero-step action produced activity")
	}
}
