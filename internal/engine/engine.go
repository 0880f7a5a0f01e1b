package engine

import (
	"sync"
	"time"

	"github.com/farsign/farsign-core/internal/action"
)

// Environment is the display surface the engine drives. It is the
// boundary between scheduling logic and whatever actually renders the
// page, so tests can substitute a fake document.
//
// CheckVisible must be a plain query: it must not call back into the
// engine. Effect methods may trigger change notifications.
type Environment interface {
	// CheckVisible reports whether an element matching selector exists
	// in the live document and is visible (not hidden, non-zero size).
	// kindHint optionally narrows the match by tag name; empty means
	// any element.
	CheckVisible(selector, kindHint string) bool

	// Click simulates a click at display coordinates.
	Click(x, y int) error

	// Navigate loads a URL in the display.
	Navigate(url string) error

	// RunScript hands script text to the environment for evaluation.
	// The engine never evaluates the text itself; sandboxing is the
	// environment's concern.
	RunScript(code string) error
}

// Reporter receives engine progress events, typically relayed back to
// the controller. Implementations must not call back into the engine.
type Reporter interface {
	// ActionTriggered fires once when an action's final step executes.
	ActionTriggered(actionID string, at time.Time)

	// StepDone fires once per settled step with its terminal outcome.
	StepDone(actionID string, index int, outcome Outcome)
}

// noopReporter discards all events.
type noopReporter struct{}

func (noopReporter) ActionTriggered(string, time.Time) {}
func (noopReporter) StepDone(string, int, Outcome)     {}

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome is a step's terminal state.
type Outcome int

const (
	// OutcomeExecuted means the trigger released the step and its
	// effect was dispatched.
	OutcomeExecuted Outcome = iota

	// OutcomeTimedOut means the trigger's timeout elapsed first; no
	// effect was dispatched and the sequence advanced past the step.
	OutcomeTimedOut
)

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	if o == OutcomeTimedOut {
		return "timed-out"
	}
	return "executed"
}

// stepKey identifies one step within one loaded action.
type stepKey struct {
	actionID string
	index    int
}

// watch is a pending element-visible condition.
type watch struct {
	selector string
	kindHint string
}

// Engine schedules action steps against an Environment, guaranteeing
// each step settles exactly once even when a condition watcher and its
// timeout race.
//
// Every signal source — Load, NotifyChange, timer callbacks — funnels
// through one mutex and one settle map: whichever signal settles a
// step's key first wins, and every later signal for that key observes
// the settled entry and does nothing. A generation counter makes timer
// callbacks from a superseded action set no-ops.
//
// All public methods are thread-safe. Effect dispatch and reporter
// calls happen outside the engine lock, so the environment may deliver
// change notifications from inside an effect.
type Engine struct {
	env      Environment
	clock    Clock
	logger   Logger
	reporter Reporter

	mu         sync.Mutex
	enabled    bool
	generation uint64
	actions    map[string]*action.Definition
	settled    map[stepKey]Outcome
	watchers   map[stepKey]watch
	timers     map[stepKey]Timer
}

// NewEngine creates an engine bound to an environment. A nil clock or
// logger falls back to real time and silence.
func NewEngine(env Environment, clock Clock, logger Logger) *Engine {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		env:      env,
		clock:    clock,
		logger:   logger,
		reporter: noopReporter{},
		settled:  make(map[stepKey]Outcome),
		watchers: make(map[stepKey]watch),
		timers:   make(map[stepKey]Timer),
	}
}

// SetReporter sets the progress event sink.
func (e *Engine) SetReporter(r Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r == nil {
		r = noopReporter{}
	}
	e.reporter = r
}

// Load replaces the current action set and schedules step 0 of every
// active action. All pending watchers and timers from the previous set
// are cancelled first, so a stale condition can never fire against a
// new page.
//
// Inactive actions are retained for chain lookups but are not
// scheduled.
func (e *Engine) Load(defs []action.Definition) {
	e.mu.Lock()

	e.cancelLocked()
	e.enabled = true
	e.generation++
	gen := e.generation

	e.actions = make(map[string]*action.Definition, len(defs))
	for i := range defs {
		d := defs[i]
		e.actions[d.ID] = d.DeepCopy()
	}

	var fires []stepKey
	for i := range defs {
		if defs[i].Active {
			e.scheduleStepLocked(defs[i].ID, 0, &fires)
		}
	}

	e.logger.Info("action set loaded", "actions", len(defs), "generation", gen)
	e.mu.Unlock()

	for _, f := range fires {
		e.dispatch(gen, f)
	}
}

// Disable synchronously cancels all pending watchers and timers and
// clears the settled set. Safe to call repeatedly.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	e.enabled = false
	e.actions = nil
	e.logger.Debug("engine disabled")
}

// NotifyChange re-evaluates every pending element-visible watcher
// against the environment. The hosting environment calls this whenever
// its document may have changed (DOM mutation, page load).
func (e *Engine) NotifyChange() {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	gen := e.generation

	var fires []stepKey
	for key, w := range e.watchers {
		if !e.env.CheckVisible(w.selector, w.kindHint) {
			continue
		}
		e.settleLocked(key, OutcomeExecuted)
		fires = append(fires, key)
	}
	e.mu.Unlock()

	for _, f := range fires {
		e.dispatch(gen, f)
	}
}

// cancelLocked stops every timer, drops every watcher, clears the
// settled set, and bumps the generation so in-flight callbacks from
// the old set become no-ops. Caller holds e.mu.
func (e *Engine) cancelLocked() {
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = make(map[stepKey]Timer)
	e.watchers = make(map[stepKey]watch)
	e.settled = make(map[stepKey]Outcome)
	e.generation++
}

// settleLocked marks a key with its terminal outcome and removes its
// watcher and timer. This is the sole arbitration point between
// condition watchers and timeout timers. Caller holds e.mu.
func (e *Engine) settleLocked(key stepKey, outcome Outcome) {
	e.settled[key] = outcome
	delete(e.watchers, key)
	if t, ok := e.timers[key]; ok {
		t.Stop()
		delete(e.timers, key)
	}
}

// scheduleStepLocked arms one step: settles immediate triggers right
// away, installs a watcher (and optional timeout) for element-visible
// triggers. Steps whose key already settled are skipped. Caller holds
// e.mu; keys to dispatch are appended to fires for the caller to run
// outside the lock.
func (e *Engine) scheduleStepLocked(actionID string, index int, fires *[]stepKey) {
	def, ok := e.actions[actionID]
	if !ok {
		e.logger.Warn("schedule for unknown action", "action_id", actionID)
		return
	}
	if index >= len(def.Steps) {
		return
	}

	key := stepKey{actionID: actionID, index: index}
	if _, done := e.settled[key]; done {
		return
	}

	step := def.Steps[index]
	switch step.Trigger.Kind {
	case action.TriggerImmediate:
		e.settleLocked(key, OutcomeExecuted)
		*fires = append(*fires, key)

	case action.TriggerElementVisible:
		// Synchronous check first: the condition may already hold
		// before any change notification arrives.
		if e.env.CheckVisible(step.Trigger.Selector, step.Trigger.ElementKind) {
			e.settleLocked(key, OutcomeExecuted)
			*fires = append(*fires, key)
			return
		}

		e.watchers[key] = watch{
			selector: step.Trigger.Selector,
			kindHint: step.Trigger.ElementKind,
		}

		// timeout_seconds == 0 means wait indefinitely.
		if step.Trigger.TimeoutSeconds > 0 {
			gen := e.generation
			d := secondsToDuration(step.Trigger.TimeoutSeconds)
			e.timers[key] = e.clock.AfterFunc(d, func() {
				e.timeoutFired(gen, key)
			})
		}

	default:
		e.logger.Error("unknown trigger kind", "action_id", actionID, "step", index, "kind", step.Trigger.Kind)
	}
}

// timeoutFired handles a timeout timer expiring. If the watcher won
// the race the key is already settled and this is a no-op.
func (e *Engine) timeoutFired(gen uint64, key stepKey) {
	e.mu.Lock()
	if gen != e.generation || !e.enabled {
		e.mu.Unlock()
		return
	}
	if _, done := e.settled[key]; done {
		e.mu.Unlock()
		return
	}

	e.settleLocked(key, OutcomeTimedOut)
	e.logger.Debug("step timed out", "action_id", key.actionID, "step", key.index)

	var fires []stepKey
	triggered := e.advanceLocked(key, false, &fires)
	reporter := e.reporter
	e.mu.Unlock()

	reporter.StepDone(key.actionID, key.index, OutcomeTimedOut)
	e.reportTriggered(reporter, triggered)
	for _, f := range fires {
		e.dispatch(gen, f)
	}
}

// dispatch runs a settled step: waits out its delay, sends its effect
// to the environment, then advances the sequence. Called without the
// lock held.
func (e *Engine) dispatch(gen uint64, key stepKey) {
	e.mu.Lock()
	if gen != e.generation || !e.enabled {
		e.mu.Unlock()
		return
	}
	def, ok := e.actions[key.actionID]
	if !ok || key.index >= len(def.Steps) {
		e.mu.Unlock()
		return
	}
	step := def.Steps[key.index]

	if step.DelaySeconds > 0 {
		// Delay timers share the timers map so Disable cancels them.
		// The timeout timer for this key is already gone (stopped at
		// settle), so the slot is free.
		e.timers[key] = e.clock.AfterFunc(secondsToDuration(step.DelaySeconds), func() {
			e.execute(gen, key)
		})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.execute(gen, key)
}

// execute sends the step's effect to the environment and schedules the
// next step (or chains / reports the action triggered on the final
// one). Called without the lock held.
func (e *Engine) execute(gen uint64, key stepKey) {
	e.mu.Lock()
	if gen != e.generation || !e.enabled {
		e.mu.Unlock()
		return
	}
	delete(e.timers, key)
	def, ok := e.actions[key.actionID]
	if !ok || key.index >= len(def.Steps) {
		e.mu.Unlock()
		return
	}
	step := def.Steps[key.index]
	reporter := e.reporter
	e.mu.Unlock()

	if err := e.dispatchEffect(step.Effect); err != nil {
		// The step already settled; a failed effect does not stall the
		// sequence.
		e.logger.Error("effect dispatch failed",
			"action_id", key.actionID,
			"step", key.index,
			"kind", step.Effect.Kind,
			"error", err,
		)
	}
	reporter.StepDone(key.actionID, key.index, OutcomeExecuted)

	e.mu.Lock()
	if gen != e.generation || !e.enabled {
		e.mu.Unlock()
		return
	}
	var fires []stepKey
	triggered := e.advanceLocked(key, true, &fires)
	e.mu.Unlock()

	e.reportTriggered(reporter, triggered)
	for _, f := range fires {
		e.dispatch(gen, f)
	}
}

// advanceLocked moves past a settled step: schedules the next index,
// or on the final index handles chaining and reports completion.
// Returns the ID of an action whose final step executed, or empty.
// Caller holds e.mu.
func (e *Engine) advanceLocked(key stepKey, executed bool, fires *[]stepKey) string {
	def, ok := e.actions[key.actionID]
	if !ok {
		return ""
	}

	if next := key.index + 1; next < len(def.Steps) {
		e.scheduleStepLocked(key.actionID, next, fires)
		return ""
	}

	// Legacy chaining: a single-step action may name a successor,
	// scheduled on completion or timeout alike. The settle gate on the
	// target's step 0 keeps repeat chains idempotent.
	if len(def.Steps) == 1 && def.NextActionID != nil {
		target := *def.NextActionID
		if _, loaded := e.actions[target]; loaded {
			e.scheduleStepLocked(target, 0, fires)
		} else {
			e.logger.Warn("chained action not loaded", "action_id", key.actionID, "next_action_id", target)
		}
	}

	if executed {
		return def.ID
	}
	return ""
}

// dispatchEffect routes one effect to the environment.
func (e *Engine) dispatchEffect(eff action.Effect) error {
	switch eff.Kind {
	case action.EffectClick:
		return e.env.Click(eff.X, eff.Y)
	case action.EffectNavigate:
		return e.env.Navigate(eff.URL)
	case action.EffectRunScript:
		return e.env.RunScript(eff.Code)
	default:
		return action.ErrInvalidEffect
	}
}

// reportTriggered emits ActionTriggered for a completed action.
func (e *Engine) reportTriggered(r Reporter, actionID string) {
	if actionID == "" {
		return
	}
	e.logger.Info("action triggered", "action_id", actionID)
	r.ActionTriggered(actionID, e.clock.Now())
}

// secondsToDuration converts a fractional seconds value to a Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
