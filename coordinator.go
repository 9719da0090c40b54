package draftsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-draftsync/pkg/activity"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// ErrPublishRejected is returned when the client answers a publish with
// Success=false.
var ErrPublishRejected = errors.New("draftsync: publish rejected")

// unloadAttempts bounds the saves one unload dispatch may send when its first
// confirmation is superseded.
const unloadAttempts = 2

// Coordinator decides when a save may run, serializes attempts, calls the
// persistence client and reconciles the returned id into the session.
//
// At most one save started by Manual, Timer or Navigation is outstanding at
// any time. Manual and Navigation requests that arrive while a save is in
// flight schedule one follow-up save; Timer requests are dropped. Unload
// requests always dispatch a best-effort save in the background.
//
// Unload saves may overlap a serialized save. A confirmation that does not
// cover the session (it landed on a second draft created by the overlap, or
// it arrived after a newer revision was confirmed) leaves the session dirty
// and sends the current payload again to the adopted id.
type Coordinator struct {
	session *Session
	builder *Builder
	client  state.Client
	cfg     coordinatorConfig
	emitter *activity.Emitter

	mu       sync.Mutex
	inFlight bool
	again    bool
	followUp Trigger
	closed   bool
	idle     chan struct{}

	// background counts unload and follow-up saves running in goroutines.
	background     int
	backgroundIdle chan struct{}
}

// NewCoordinator wires a session, a payload builder and a persistence client.
func NewCoordinator(session *Session, builder *Builder, client state.Client, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if session == nil {
		return nil, fmt.Errorf("draftsync: session is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("draftsync: builder is required")
	}
	cfg := applyOptions(opts)
	c := &Coordinator{
		session:        session,
		builder:        builder,
		client:         client,
		cfg:            cfg,
		emitter:        cfg.activity.emitter(cfg.objectType),
		idle:           closedChan(),
		backgroundIdle: closedChan(),
	}
	c.cfg.metrics.setDirty(session.Dirty())
	return c, nil
}

// Session returns the coordinated session.
func (c *Coordinator) Session() *Session {
	return c.session
}

// MarkDirty flags unsaved edits. It is safe to call from any field handler.
func (c *Coordinator) MarkDirty() {
	c.session.MarkDirty()
	c.cfg.metrics.setDirty(true)
}

// InFlight reports whether a serialized save is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// RequestSave asks for a save on behalf of trigger.
//
// The returned error is a *ValidationError when the identity rule rejects an
// interactive request, a *SaveError when the client fails, or ErrClosed.
// Unload requests never return an error and never wait for the network.
func (c *Coordinator) RequestSave(ctx context.Context, trigger Trigger) (Outcome, error) {
	if !trigger.Valid() {
		return Outcome{Trigger: trigger, Status: StatusFailed}, fmt.Errorf("draftsync: invalid trigger %d", int(trigger))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if trigger == TriggerUnload {
			return c.record(Outcome{Trigger: trigger, Status: StatusSkipped}, "coordinator closed", nil), nil
		}
		return c.record(Outcome{Trigger: trigger, Status: StatusFailed}, "coordinator closed", ErrClosed), ErrClosed
	}
	if trigger == TriggerUnload {
		c.mu.Unlock()
		return c.dispatchUnload(ctx), nil
	}
	if c.inFlight {
		status := StatusDropped
		if trigger.Interactive() {
			c.scheduleLocked(trigger)
			status = StatusCoalesced
		}
		c.mu.Unlock()
		return c.record(Outcome{Trigger: trigger, Status: status, ResourceID: c.session.ResourceID()}, "save in flight", nil), nil
	}
	c.inFlight = true
	c.idle = make(chan struct{})
	c.mu.Unlock()

	defer c.finish(ctx)
	return c.safeAttempt(ctx, trigger)
}

// Wait blocks until no serialized save is in flight and every background
// unload or follow-up save has finished.
func (c *Coordinator) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		busy, background := c.inFlight, c.background > 0
		wait := c.idle
		if !busy {
			wait = c.backgroundIdle
		}
		c.mu.Unlock()
		if !busy && !background {
			return nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Publish flushes pending edits, checks the publish rule and asks the client
// to move the draft to status.
func (c *Coordinator) Publish(ctx context.Context, status string) (state.PublishResult, error) {
	ctx, span := c.cfg.tracer.Start(ctx, "draftsync.publish", trace.WithAttributes(
		attribute.String("draftsync.status", status),
	))
	defer span.End()

	if err := c.flush(ctx); err != nil {
		c.failSpan(span, err)
		return state.PublishResult{}, err
	}

	resourceID := c.session.ResourceID()
	input := activity.DraftEventInput{Status: status, Trigger: TriggerManual.String()}
	if resourceID == "" {
		c.failSpan(span, ErrNoResourceID)
		c.notify(ctx, activity.VerbDraftPublishFailed, input, ErrNoResourceID)
		return state.PublishResult{}, ErrNoResourceID
	}
	span.SetAttributes(attribute.String("draftsync.resource_id", resourceID))

	if c.cfg.publish != nil {
		payload, err := c.builder.Build(c.session)
		if err != nil {
			c.failSpan(span, err)
			return state.PublishResult{}, err
		}
		if err := c.checkRule(c.cfg.publish, payload, TriggerManual, "publish requirements are not met"); err != nil {
			c.failSpan(span, err)
			c.notify(ctx, activity.VerbDraftPublishFailed, input, err)
			return state.PublishResult{}, err
		}
	}

	result, err := c.client.Publish(context.WithoutCancel(ctx), resourceID, status)
	if err == nil && !result.Success {
		err = fmt.Errorf("%w: %s", ErrPublishRejected, result.Message)
	}
	if err != nil {
		err = fmt.Errorf("draftsync: publish %s as %q: %w", resourceID, status, err)
		c.failSpan(span, err)
		input.Message = result.Message
		c.notify(ctx, activity.VerbDraftPublishFailed, input, err)
		return result, err
	}
	c.notify(ctx, activity.VerbDraftPublished, input, nil)
	return result, nil
}

// Close stops accepting requests, dispatches a final best-effort save when
// the session is dirty and waits for outstanding work.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.Wait(ctx)
	}
	c.closed = true
	c.mu.Unlock()

	c.dispatchUnload(ctx)
	return c.Wait(ctx)
}

// flush makes sure edits made before Publish are saved. Edits that arrive
// while the flush runs are left to the regular triggers.
func (c *Coordinator) flush(ctx context.Context) error {
	if err := c.Wait(ctx); err != nil {
		return err
	}
	if !c.session.Dirty() {
		return nil
	}
	if _, err := c.RequestSave(ctx, TriggerManual); err != nil {
		return err
	}
	return c.Wait(ctx)
}

// finish either hands the in-flight slot to a follow-up save or goes idle.
func (c *Coordinator) finish(ctx context.Context) {
	c.mu.Lock()
	if c.again {
		trigger := c.followUp
		c.again = false
		c.startBackgroundLocked()
		c.mu.Unlock()
		go func() {
			defer c.endBackground()
			followCtx := context.WithoutCancel(ctx)
			defer c.finish(followCtx)
			_, _ = c.safeAttempt(followCtx, trigger)
		}()
		return
	}
	c.inFlight = false
	close(c.idle)
	c.mu.Unlock()
}

func (c *Coordinator) dispatchUnload(ctx context.Context) Outcome {
	if !c.session.Dirty() {
		return c.record(Outcome{Trigger: TriggerUnload, Status: StatusSkipped}, "nothing to save", nil)
	}
	c.mu.Lock()
	c.startBackgroundLocked()
	c.mu.Unlock()
	detached := context.WithoutCancel(ctx)
	go func() {
		defer c.endBackground()
		for i := 0; i < unloadAttempts; i++ {
			outcome, _ := c.safeAttempt(detached, TriggerUnload)
			if !outcome.Superseded {
				return
			}
		}
	}()
	return c.record(Outcome{Trigger: TriggerUnload, Status: StatusDispatched, ResourceID: c.session.ResourceID()}, "unload save dispatched", nil)
}

// scheduleLocked asks for a follow-up save once the in-flight one completes.
// An interactive trigger replaces a pending background one so failures are
// reported to the user.
func (c *Coordinator) scheduleLocked(trigger Trigger) {
	if !c.again || trigger.Interactive() {
		c.followUp = trigger
	}
	c.again = true
}

func (c *Coordinator) startBackgroundLocked() {
	if c.background == 0 {
		c.backgroundIdle = make(chan struct{})
	}
	c.background++
}

func (c *Coordinator) endBackground() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background--
	if c.background == 0 {
		close(c.backgroundIdle)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// safeAttempt runs attempt and turns a panic from the builder, a rule or the
// client into a *SaveError so callers and the in-flight slot survive it.
func (c *Coordinator) safeAttempt(ctx context.Context, trigger Trigger) (outcome Outcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		outcome = Outcome{Trigger: trigger, Status: StatusFailed, ResourceID: c.session.ResourceID()}
		err = &SaveError{Trigger: trigger, ResourceID: outcome.ResourceID, Err: fmt.Errorf("%w: %v", ErrSavePanicked, r)}
		c.reportFailure(ctx, outcome, err)
		c.record(outcome, "save panicked", err)
	}()
	return c.attempt(ctx, trigger)
}

// attempt runs one eligibility check and persistence call. It reports through
// the logger, metrics and activity hooks itself.
func (c *Coordinator) attempt(ctx context.Context, trigger Trigger) (Outcome, error) {
	ctx, span := c.cfg.tracer.Start(ctx, "draftsync.save", trace.WithAttributes(
		attribute.String("draftsync.trigger", trigger.String()),
	))
	defer span.End()

	outcome := Outcome{Trigger: trigger, ResourceID: c.session.ResourceID()}
	if !c.session.Dirty() {
		outcome.Status = StatusSkipped
		span.SetAttributes(attribute.String("draftsync.status", string(outcome.Status)))
		return c.record(outcome, "nothing to save", nil), nil
	}

	payload, err := c.builder.Build(c.session)
	if err != nil {
		outcome.Status = StatusFailed
		c.failSpan(span, err)
		c.reportFailure(ctx, outcome, err)
		return c.record(outcome, "build payload", err), err
	}
	outcome.Revision = payload.Revision()

	if err := c.checkIdentity(payload, trigger); err != nil {
		if !trigger.Interactive() {
			outcome.Status = StatusSkipped
			span.SetAttributes(attribute.String("draftsync.status", string(outcome.Status)))
			return c.record(outcome, "draft not identified yet", nil), nil
		}
		outcome.Status = StatusFailed
		c.failSpan(span, err)
		c.reportFailure(ctx, outcome, err)
		return c.record(outcome, "draft not identified yet", err), err
	}

	return c.persist(ctx, span, trigger, payload)
}

func (c *Coordinator) persist(ctx context.Context, span trace.Span, trigger Trigger, payload *DraftPayload) (Outcome, error) {
	outcome := Outcome{Trigger: trigger, ResourceID: payload.ResourceID(), Revision: payload.Revision()}
	span.SetAttributes(
		attribute.String("draftsync.resource_id", payload.ResourceID()),
		attribute.Int64("draftsync.revision", int64(payload.Revision())),
	)

	start := time.Now()
	result, err := c.send(ctx, payload)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		err = &SaveError{Trigger: trigger, ResourceID: payload.ResourceID(), Message: result.Message, Err: err}
	case !result.Success:
		err = &SaveError{Trigger: trigger, ResourceID: payload.ResourceID(), Message: result.Message}
	}
	if err == nil && payload.ResourceID() == "" && strings.TrimSpace(result.ResourceID) == "" {
		err = &SaveError{Trigger: trigger, Message: result.Message, Err: ErrMissingIdentifier}
	}
	c.cfg.metrics.observeSave(trigger, err, elapsed)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.ResourceID = c.session.ResourceID()
		c.failSpan(span, err)
		c.reportFailure(ctx, outcome, err)
		c.record(outcome, "save failed", err)
		return outcome, err
	}

	created, covered := c.reconcileID(trigger, payload.ResourceID(), result.ResourceID)
	var savedAt time.Time
	clean, stale := false, false
	if covered {
		savedAt, clean, stale = c.session.markSaved(payload.Revision())
	}
	c.cfg.metrics.setDirty(c.session.Dirty())

	outcome.Status = StatusSaved
	outcome.Created = created
	outcome.SavedAt = savedAt
	outcome.Superseded = !covered || stale
	outcome.ResourceID = c.session.ResourceID()
	span.SetAttributes(
		attribute.String("draftsync.status", string(outcome.Status)),
		attribute.Bool("draftsync.created", created),
		attribute.Bool("draftsync.superseded", outcome.Superseded),
	)
	span.SetStatus(codes.Ok, "")

	verb := activity.VerbDraftSaved
	if created {
		verb = activity.VerbDraftCreated
	}
	c.notify(ctx, verb, activity.DraftEventInput{
		Trigger:  trigger.String(),
		Revision: payload.Revision(),
		Message:  result.Message,
	}, nil)

	msg := "draft saved"
	switch {
	case !covered:
		msg = fmt.Sprintf("save landed on draft %q, resending to %q", strings.TrimSpace(result.ResourceID), outcome.ResourceID)
	case stale:
		msg = "older save confirmed after a newer one, resending"
	case !clean:
		msg = "draft saved, newer edits pending"
	}
	c.logSave(SaveLogEvent{
		Trigger:    trigger,
		Status:     outcome.Status,
		ResourceID: outcome.ResourceID,
		Revision:   outcome.Revision,
		Duration:   elapsed,
		Message:    msg,
	})
	c.cfg.metrics.observeRequest(trigger, outcome.Status)

	// Unload dispatches retry inline; serialized saves hand over to a
	// follow-up that runs before the coordinator goes idle.
	if outcome.Superseded && trigger != TriggerUnload && c.session.Dirty() {
		c.mu.Lock()
		c.scheduleLocked(trigger)
		c.mu.Unlock()
	}
	return outcome, nil
}

// send calls the client with a detached context and keeps the in-flight gauge
// balanced even when the client panics.
func (c *Coordinator) send(ctx context.Context, payload *DraftPayload) (state.SaveResult, error) {
	c.cfg.metrics.saveStarted()
	defer c.cfg.metrics.saveFinished()
	return c.client.Save(context.WithoutCancel(ctx), payload.ResourceID(), payload.Document())
}

// reconcileID applies the id returned by the client. A session without an id
// adopts it; an existing id only accepts a canonical form of itself. It
// reports whether the save created the draft and whether it covered the
// session's draft. A create that raced another create and lost does not.
func (c *Coordinator) reconcileID(trigger Trigger, sent, returned string) (created, covered bool) {
	returned = strings.TrimSpace(returned)
	if sent == "" {
		current, adopted := c.session.adoptResourceID(returned)
		if adopted {
			return true, true
		}
		return false, strings.EqualFold(current, returned)
	}
	if returned == "" || returned == sent {
		return false, true
	}
	if strings.EqualFold(strings.TrimSpace(sent), returned) {
		c.session.replaceResourceID(returned)
		return false, true
	}
	c.logSave(SaveLogEvent{
		Trigger:    trigger,
		Status:     StatusSaved,
		ResourceID: sent,
		Message:    fmt.Sprintf("client returned unrelated id %q, keeping %q", returned, sent),
		Err:        fmt.Errorf("draftsync: resource id mismatch"),
	})
	return false, true
}

func (c *Coordinator) checkIdentity(payload *DraftPayload, trigger Trigger) error {
	if c.cfg.identity == nil || payload.ResourceID() != "" || c.session.Identified() {
		return nil
	}
	if err := c.checkRule(c.cfg.identity, payload, trigger, "identifying fields are missing"); err != nil {
		return err
	}
	c.session.markIdentified()
	return nil
}

func (c *Coordinator) checkRule(rule *Rule, payload *DraftPayload, trigger Trigger, reason string) error {
	ok, err := rule.Check(payload, trigger)
	if err != nil {
		return &ValidationError{Rule: rule.Name(), Reason: "rule could not be evaluated", Err: err}
	}
	if !ok {
		return &ValidationError{Rule: rule.Name(), Reason: reason}
	}
	return nil
}

// reportFailure notifies hooks about failures of interactive triggers only.
// Timer and unload failures have no user to report to and are only logged.
func (c *Coordinator) reportFailure(ctx context.Context, outcome Outcome, err error) {
	if !outcome.Trigger.Interactive() {
		return
	}
	c.notify(ctx, activity.VerbDraftSaveFailed, activity.DraftEventInput{
		Trigger:  outcome.Trigger.String(),
		Revision: outcome.Revision,
	}, err)
}

func (c *Coordinator) notify(ctx context.Context, verb string, input activity.DraftEventInput, err error) {
	if !c.emitter.Enabled() {
		return
	}
	input.ResourceID = c.session.ResourceID()
	input.SessionID = c.session.ID()
	input.Err = err
	if emitErr := c.emitter.Emit(context.WithoutCancel(ctx), verb, input); emitErr != nil {
		c.logSave(SaveLogEvent{
			Status:     StatusFailed,
			ResourceID: input.ResourceID,
			Message:    "activity notification failed",
			Err:        emitErr,
		})
	}
}

// record logs and counts a decision that did not reach the client.
func (c *Coordinator) record(outcome Outcome, msg string, err error) Outcome {
	if outcome.Revision == 0 {
		outcome.Revision = c.session.Revision()
	}
	c.logSave(SaveLogEvent{
		Trigger:    outcome.Trigger,
		Status:     outcome.Status,
		ResourceID: outcome.ResourceID,
		Revision:   outcome.Revision,
		Message:    msg,
		Err:        err,
	})
	c.cfg.metrics.observeRequest(outcome.Trigger, outcome.Status)
	return outcome
}

func (c *Coordinator) logSave(event SaveLogEvent) {
	c.cfg.logger.LogSave(event)
}

func (c *Coordinator) failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
