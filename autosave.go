package draftsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultAutosaveInterval is how often the wizard asks for a timer save.
const DefaultAutosaveInterval = 10 * time.Second

// ErrAutosaverRunning is returned by Start when the loop is already running.
var ErrAutosaverRunning = errors.New("draftsync: autosaver already running")

// Saver is the part of Coordinator used by trigger sources.
type Saver interface {
	RequestSave(ctx context.Context, trigger Trigger) (Outcome, error)
}

// Ticker abstracts time.Ticker so tests can drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every interval.
type TickerFactory func(interval time.Duration) Ticker

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

// NewTimeTicker is the default TickerFactory.
func NewTimeTicker(interval time.Duration) Ticker {
	return timeTicker{ticker: time.NewTicker(interval)}
}

// Autosaver issues a timer save on every tick while the wizard is open. It
// never backs off: failures leave the session dirty and the next tick retries.
type Autosaver struct {
	saver     Saver
	interval  time.Duration
	newTicker TickerFactory
	onTick    func(Outcome, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// AutosaveOption configures an Autosaver.
type AutosaveOption func(*Autosaver)

// WithInterval overrides DefaultAutosaveInterval.
func WithInterval(interval time.Duration) AutosaveOption {
	return func(a *Autosaver) {
		if interval > 0 {
			a.interval = interval
		}
	}
}

// WithTickerFactory replaces the ticker implementation.
func WithTickerFactory(factory TickerFactory) AutosaveOption {
	return func(a *Autosaver) {
		if factory != nil {
			a.newTicker = factory
		}
	}
}

// WithTickObserver is called with the result of every tick.
func WithTickObserver(fn func(Outcome, error)) AutosaveOption {
	return func(a *Autosaver) {
		a.onTick = fn
	}
}

// NewAutosaver returns a stopped autosaver bound to saver.
func NewAutosaver(saver Saver, opts ...AutosaveOption) *Autosaver {
	a := &Autosaver{
		saver:     saver,
		interval:  DefaultAutosaveInterval,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Interval returns the tick interval.
func (a *Autosaver) Interval() time.Duration {
	return a.interval
}

// Start launches the tick loop. It stops when ctx is done or Stop is called.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return ErrAutosaverRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	ticker := a.newTicker(a.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C():
				outcome, err := a.saver.RequestSave(loopCtx, TriggerTimer)
				if a.onTick != nil {
					a.onTick(outcome, err)
				}
			}
		}
	}()
	return nil
}

// Stop ends the tick loop and waits for it to exit. A tick already calling
// the saver finishes first.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick loop is active.
func (a *Autosaver) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Triggers adapts UI events to RequestSave. Handlers never return errors:
// the coordinator already logs failures and notifies activity hooks for
// interactive triggers, so callers only get the Outcome.
type Triggers struct {
	saver Saver
}

// NewTriggers binds trigger handlers to saver.
func NewTriggers(saver Saver) Triggers {
	return Triggers{saver: saver}
}

// Manual handles the explicit save action.
func (t Triggers) Manual(ctx context.Context) Outcome {
	return t.fire(ctx, TriggerManual)
}

// Navigate handles a move between wizard steps.
func (t Triggers) Navigate(ctx context.Context) Outcome {
	return t.fire(ctx, TriggerNavigation)
}

// Tick handles a single timer tick outside an Autosaver.
func (t Triggers) Tick(ctx context.Context) Outcome {
	return t.fire(ctx, TriggerTimer)
}

// Unload handles teardown of the hosting view. It returns immediately; the
// save, if any, runs in the background.
func (t Triggers) Unload(ctx context.Context) Outcome {
	return t.fire(ctx, TriggerUnload)
}

func (t Triggers) fire(ctx context.Context, trigger Trigger) (outcome Outcome) {
	if t.saver == nil {
		return Outcome{Trigger: trigger, Status: StatusSkipped}
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Trigger: trigger, Status: StatusFailed}
		}
	}()
	outcome, err := t.saver.RequestSave(ctx, trigger)
	if err != nil {
		outcome.Status = StatusFailed
	}
	return outcome
}
