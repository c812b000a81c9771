package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Service is the contract the Controller drives: an id, a declared
// relationship to other services, and a Launch method that walks its
// ServiceContext through PREPARE, ONLINE, and CLEANUP in order.
//
// A well-behaved Launch calls sc.Prepare, then sc.Online, then sc.Cleanup
// exactly once each, in that order, and returns once CLEANUP's body is done.
// Launch is run on its own goroutine by the Controller; it should honor
// ctx.Done() and sc.ShouldExit() inside its ONLINE body to exit cooperatively.
type Service interface {
	ID() string
	Dependencies() []string
	Before() []string
	After() []string
	Launch(ctx context.Context, sc *ServiceContext) error
}

// Base is embedded by concrete services to satisfy the identity/dependency
// half of the Service interface, leaving only Launch to implement.
type Base struct {
	IDValue      string
	DependsOnIDs []string
	BeforeIDs    []string
	AfterIDs     []string
}

func (b Base) ID() string             { return b.IDValue }
func (b Base) Dependencies() []string { return b.DependsOnIDs }
func (b Base) Before() []string       { return b.BeforeIDs }
func (b Base) After() []string        { return b.AfterIDs }

// resourceService adapts an acquire/release pair into a Service: acquire runs
// inside PREPARE, the resource is held (passthrough) through ONLINE, and
// release runs inside CLEANUP. Grounded on firework's LifespanHelper.
type resourceService struct {
	Base
	acquire func(ctx context.Context) (release func(), err error)
}

// NewResourceService builds a Service around a resource that is acquired once
// at PREPARE time and released once at CLEANUP time, for services whose only
// lifecycle concern is "hold this open while online" (a DB pool, an HTTP
// client, a file lock). An empty id gets a generated one, for callers
// creating services dynamically that have no natural stable name of their own.
func NewResourceService(id string, acquire func(ctx context.Context) (release func(), err error), deps ...string) Service {
	if id == "" {
		id = uuid.NewString()
	}
	return &resourceService{
		Base:    Base{IDValue: id, DependsOnIDs: deps},
		acquire: acquire,
	}
}

func (s *resourceService) Launch(ctx context.Context, sc *ServiceContext) error {
	var release func()
	if err := sc.Prepare(ctx, func(ctx context.Context) error {
		r, err := s.acquire(ctx)
		if err != nil {
			return err
		}
		release = r
		return nil
	}); err != nil {
		return err
	}

	if err := sc.Online(ctx, func(ctx context.Context) error {
		return sc.WaitForExit(ctx)
	}); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Cleanup must always be allowed to run to completion once reached, even
	// if the ctx that woke us from Online is already cancelled.
	return sc.Cleanup(context.Background(), func(context.Context) error {
		if release != nil {
			release()
		}
		return nil
	})
}
