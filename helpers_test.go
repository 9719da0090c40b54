package draftsync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-draftsync/pkg/state"
)

type saveCall struct {
	ResourceID string
	Doc        state.Document
	CtxErr     error
}

type publishCall struct {
	ResourceID string
	Status     string
}

// fakeClient records calls and optionally blocks each Save on gate.
type fakeClient struct {
	mu        sync.Mutex
	saves     []saveCall
	publishes []publishCall
	active    int
	maxActive int
	nextID    int

	gate    chan struct{}
	started chan struct{}

	saveFn    func(call saveCall) (state.SaveResult, error)
	publishFn func(call publishCall) (state.PublishResult, error)
}

func newFakeClient() *fakeClient {
	return &fakeClient{started: make(chan struct{}, 64)}
}

func (c *fakeClient) Save(ctx context.Context, resourceID string, doc state.Document) (state.SaveResult, error) {
	call := saveCall{ResourceID: resourceID, Doc: doc, CtxErr: ctx.Err()}
	c.mu.Lock()
	c.saves = append(c.saves, call)
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	gate := c.gate
	fn := c.saveFn
	c.mu.Unlock()

	select {
	case c.started <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	if fn != nil {
		return fn(call)
	}
	if resourceID != "" {
		return state.SaveResult{Success: true, ResourceID: resourceID}, nil
	}
	c.mu.Lock()
	c.nextID++
	id := "abc123"
	if c.nextID > 1 {
		id = fmt.Sprintf("abc123-%d", c.nextID)
	}
	c.mu.Unlock()
	return state.SaveResult{Success: true, ResourceID: id}, nil
}

func (c *fakeClient) Publish(_ context.Context, resourceID, status string) (state.PublishResult, error) {
	call := publishCall{ResourceID: resourceID, Status: status}
	c.mu.Lock()
	c.publishes = append(c.publishes, call)
	fn := c.publishFn
	c.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return state.PublishResult{Success: true}, nil
}

func (c *fakeClient) setSaveFn(fn func(call saveCall) (state.SaveResult, error)) {
	c.mu.Lock()
	c.saveFn = fn
	c.mu.Unlock()
}

func (c *fakeClient) setPublishFn(fn func(call publishCall) (state.PublishResult, error)) {
	c.mu.Lock()
	c.publishFn = fn
	c.mu.Unlock()
}

func (c *fakeClient) Saves() []saveCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]saveCall(nil), c.saves...)
}

func (c *fakeClient) Publishes() []publishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishCall(nil), c.publishes...)
}

func (c *fakeClient) MaxActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

func (c *fakeClient) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-c.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for save to start")
	}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// courseSpecs is a small wizard used across coordinator tests.
func courseSpecs() []StepSpec {
	return []StepSpec{
		{Name: "basics", Defaults: map[string]any{"title": "", "subtitle": "", "category": ""}},
		{
			Name:     "pricing",
			Defaults: map[string]any{"enabled": false, "price": 0.0, "tiers": map[string]any{"early": 0.0}},
			Numeric:  []string{"price", "tiers.early"},
		},
	}
}

func newTestBuilder(t *testing.T, registry *Registry) *Builder {
	t.Helper()
	builder, err := NewBuilder(registry, courseSpecs())
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	return builder
}

func newTestCoordinator(t *testing.T, client state.Client, opts ...Option) *Coordinator {
	t.Helper()
	coord, err := NewCoordinator(NewSession(), newTestBuilder(t, nil), client, opts...)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	return coord
}

func identityRule(t *testing.T) *Rule {
	t.Helper()
	rule, err := NewRule("identity", `basics.title != "" || basics.category != ""`)
	if err != nil {
		t.Fatalf("identity rule: %v", err)
	}
	return rule
}

func waitIdle(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
