package script

import (
	"context"
	"fmt"
	"sync/atomic"

	draftsync "github.com/goliatone/go-draftsync"
	"github.com/goliatone/go-draftsync/pkg/course"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// CountingClient wraps a Client and counts calls.
type CountingClient struct {
	state.Client
	saves     atomic.Int64
	publishes atomic.Int64
}

func (c *CountingClient) Save(ctx context.Context, resourceID string, doc state.Document) (state.SaveResult, error) {
	c.saves.Add(1)
	return c.Client.Save(ctx, resourceID, doc)
}

func (c *CountingClient) Publish(ctx context.Context, resourceID, status string) (state.PublishResult, error) {
	c.publishes.Add(1)
	return c.Client.Publish(ctx, resourceID, status)
}

// Saves returns the number of Save calls.
func (c *CountingClient) Saves() int { return int(c.saves.Load()) }

// Publishes returns the number of Publish calls.
func (c *CountingClient) Publishes() int { return int(c.publishes.Load()) }

// Env is the wizard a script runs against.
type Env struct {
	Session     *draftsync.Session
	Coordinator *draftsync.Coordinator
	Registry    *draftsync.Registry
	Pricing     *course.PricingCalculator
	Client      *CountingClient
	Store       state.Loader

	pricing *draftsync.Handle
}

// NewEnv wires a course wizard on top of store. When resourceID is set the
// stored draft is loaded and editing resumes from it.
func NewEnv(ctx context.Context, store state.Store, resourceID string, opts ...draftsync.Option) (*Env, error) {
	session := draftsync.NewSession()
	var resumed *course.Draft
	if resourceID != "" {
		record, ok, err := store.Load(ctx, resourceID)
		if err != nil {
			return nil, fmt.Errorf("script: load %s: %w", resourceID, err)
		}
		if !ok {
			return nil, fmt.Errorf("script: load %s: %w", resourceID, state.ErrNotFound)
		}
		if session, err = draftsync.HydrateSession(record, nil); err != nil {
			return nil, fmt.Errorf("script: %w", err)
		}
		draft, err := course.DecodeDraft(record)
		if err != nil {
			return nil, fmt.Errorf("script: %w", err)
		}
		resumed = &draft
	}

	registry := draftsync.NewRegistry()
	builder, err := course.NewBuilder(registry)
	if err != nil {
		return nil, err
	}
	client := &CountingClient{Client: store}
	coord, err := draftsync.NewCoordinator(session, builder, client, opts...)
	if err != nil {
		return nil, err
	}
	pricing := course.NewPricingCalculator(course.WithChangeHook(coord.MarkDirty))
	if resumed != nil {
		pricing.Load(resumed.Pricing)
	}
	return &Env{
		Session:     session,
		Coordinator: coord,
		Registry:    registry,
		Pricing:     pricing,
		Client:      client,
		Store:       store,
	}, nil
}

// MountPricing registers the calculator as the pricing provider.
func (e *Env) MountPricing() error {
	if e.pricing != nil {
		return nil
	}
	handle, err := e.Pricing.Mount(e.Registry)
	if err != nil {
		return err
	}
	e.pricing = &handle
	return nil
}

// UnmountPricing removes the calculator. The builder keeps using its last
// snapshot.
func (e *Env) UnmountPricing() {
	if e.pricing == nil {
		return
	}
	e.pricing.Deregister()
	e.pricing = nil
}

// PricingMounted reports whether the calculator is registered.
func (e *Env) PricingMounted() bool {
	return e.pricing != nil
}
