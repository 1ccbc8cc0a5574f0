package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/porras/fake-sonic-pi/internal/ir"
	"github.com/porras/fake-sonic-pi/internal/signals"
	"github.com/porras/fake-sonic-pi/internal/trace"
)

// Recorder receives every domain command a script issues.
// Implemented by *trace.Recorder.
type Recorder interface {
	Record(beat ir.Beat, cmd trace.Command, args []any) trace.Node
}

// Engine runs a script in virtual time.
//
// Thread-safety model:
//   - New(): safe from any goroutine
//   - Run(): called once, from one goroutine
//   - accessors: safe once Run has returned
//
// INVARIANTS:
//   - the clock never moves backwards and never passes the horizon
//   - at most one task body executes at any moment
//   - tie-breaks follow task creation order
type Engine struct {
	def      Body
	clock    *Clock
	signals  *signals.Store
	recorder Recorder
	live     taskSet
	nextID   int

	runIDs RunIDGenerator
	runID  string
	logger *slog.Logger

	quota    *QuotaEnforcer
	started  bool
	stats    Stats
	cleanups []func()
}

// Stats summarizes what a run did.
type Stats struct {
	// Iterations counts passes through the control loop.
	Iterations int `json:"iterations"`
	// Resumes counts task resumptions, waiting and scheduled.
	Resumes int `json:"resumes"`
	// Spawned counts tasks created.
	Spawned int `json:"spawned"`
	// Culled counts tasks dropped for waking past the horizon.
	Culled int `json:"culled"`
	// Advances counts clock moves to a later beat.
	Advances int `json:"advances"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sends recorded commands to r instead of a fresh
// trace.Recorder. Output returns nil unless r also implements
// Events() []trace.Event.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithMaxRoundsPerBeat bounds the control-loop iterations spent at one beat.
//
// Default: 100000 (DefaultMaxRoundsPerBeat)
// Use WithMaxRoundsPerBeat(10) for testing the limit.
func WithMaxRoundsPerBeat(n int) Option {
	return func(e *Engine) {
		e.quota = NewQuotaEnforcer(n)
	}
}

// New creates an engine for the script described by def. def runs once at
// the start of Run, on a root Context, and typically creates live loops and
// at blocks. A nil def yields a run with only seeded signals.
func New(def Body, opts ...Option) *Engine {
	e := &Engine{
		def:      def,
		clock:    NewClock(),
		signals:  signals.New(),
		recorder: trace.NewRecorder(),
		runIDs:   UUIDv7Generator{},
		logger:   slog.Default(),
		quota:    NewQuotaEnforcer(DefaultMaxRoundsPerBeat),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the script until no task can make progress within beats.
//
// seeds are added to the signal store, in order, before anything runs. Run
// returns nil once no scheduled task remains and no future signal lies
// within the horizon. It returns an error if a task fails (wrapped in a
// TaskError), if ctx is cancelled, or if the clock stalls at one beat for
// longer than the round limit.
//
// Run may only be called once per engine. Every task coroutine is released
// before Run returns.
func (e *Engine) Run(ctx context.Context, beats float64, seeds []signals.Seed) error {
	if e.started {
		return &RuntimeError{Code: ErrCodeEngineReused, Message: "engine has already run"}
	}
	e.started = true

	horizon := ir.Beat(beats)
	if !horizon.Finite() {
		return &RuntimeError{
			Code:    ErrCodeInvalidHorizon,
			Message: fmt.Sprintf("beats must be a finite non-negative number, got %v", beats),
		}
	}
	if err := e.signals.Seed(seeds); err != nil {
		return fmt.Errorf("seed signals: %w", err)
	}

	e.runID = e.runIDs.Generate()
	logger := e.logger.With("run_id", e.runID)
	logger.Info("run starting", "beats", beats, "seeds", len(seeds))

	defer e.finish()

	if e.def != nil {
		if err := e.def(&Context{eng: e}); err != nil {
			logger.Error("definition failed", "error", err)
			return fmt.Errorf("definition: %w", err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "beat", e.clock.Now(), "error", err)
			return err
		}
		if err := e.quota.Check(e.clock.Now()); err != nil {
			logger.Error("run stalled", "error", err)
			return err
		}
		e.stats.Iterations++

		e.live.prune()
		waiting, scheduled := e.live.partition()
		scheduled, culled := e.live.cull(scheduled, horizon)
		e.stats.Culled += culled

		// The store is append-only, so its length tells whether this round
		// emitted anything.
		before := e.signals.Len()
		for _, t := range waiting {
			if err := e.resume(logger, t); err != nil {
				return err
			}
		}
		if e.signals.Len() != before {
			// New signals at this beat may release tasks that already had
			// their turn. Settle before time moves.
			continue
		}

		next := earliest(scheduled)
		signalBeat, hasSignal := e.signals.NextBeatAfter(e.clock.Now())
		hasSignal = hasSignal && signalBeat <= horizon

		switch {
		case hasSignal && (next == nil || signalBeat < next.wakeBeat):
			if err := e.advance(signalBeat); err != nil {
				return err
			}
		case next != nil:
			if err := e.advance(next.wakeBeat); err != nil {
				return err
			}
			now := e.clock.Now()
			first := !next.ran || next.lastRun != now
			next.ran, next.lastRun = true, now
			if err := e.resume(logger, next); err != nil {
				return err
			}
			if first {
				// A first resume at this beat is progress, not a stall.
				e.quota.Credit()
			}
		default:
			logger.Info("run complete",
				"beat", e.clock.Now(),
				"events", e.outputLen(),
				"signals", e.signals.Len(),
				"iterations", e.stats.Iterations)
			return nil
		}
	}
}

// finish releases every task, then runs cleanups in reverse registration
// order.
func (e *Engine) finish() {
	e.live.releaseAll()
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i]()
	}
	e.cleanups = nil
}

// spawn creates a task and adds it to the live set. The task starts
// scheduled at wakeBeat.
func (e *Engine) spawn(kind taskKind, name string, wakeBeat ir.Beat, body Body) *Task {
	e.nextID++
	t := newTask(e, e.nextID, kind, name, wakeBeat, body)
	e.live.add(t)
	e.stats.Spawned++
	e.logger.Debug("task created", "task", t.Ref(), "wake", wakeBeat)
	return t
}

func (e *Engine) resume(logger *slog.Logger, t *Task) error {
	e.stats.Resumes++
	if err := t.resume(); err != nil {
		logger.Error("task failed", "task", t.Ref(), "beat", e.clock.Now(), "error", err)
		return &TaskError{Task: t.Ref(), Beat: e.clock.Now(), Err: err}
	}
	if t.done {
		logger.Debug("task finished", "task", t.Ref(), "beat", e.clock.Now())
	}
	return nil
}

// advance moves the clock. The round quota restarts whenever time moves.
func (e *Engine) advance(to ir.Beat) error {
	if to == e.clock.Now() {
		return nil
	}
	if err := e.clock.AdvanceTo(to); err != nil {
		return err
	}
	e.quota.Reset()
	e.stats.Advances++
	return nil
}

func (e *Engine) outputLen() int {
	if r, ok := e.recorder.(interface{ Len() int }); ok {
		return r.Len()
	}
	return -1
}

// Beat returns the current beat. After Run it is the beat the run ended on.
func (e *Engine) Beat() ir.Beat {
	return e.clock.Now()
}

// Signals returns the signal store.
func (e *Engine) Signals() *signals.Store {
	return e.signals
}

// Output returns the recorded commands in invocation order.
func (e *Engine) Output() []trace.Event {
	if r, ok := e.recorder.(interface{ Events() []trace.Event }); ok {
		return r.Events()
	}
	return nil
}

// RunID returns the run's identifier, or "" before Run.
func (e *Engine) RunID() string {
	return e.runID
}

// Stats returns counters for the run so far.
func (e *Engine) Stats() Stats {
	return e.stats
}
