// Package submitlock rejects duplicate submissions of an action while a previous
// submission of the same action is still running.
//
// A second caller is never queued: it fails immediately with ErrInProgress so it can be
// told apart from business errors and ignored by the UI.
package submitlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInProgress is returned when a guarded action is already running.
var ErrInProgress = errors.New("submission already in progress")

// Lock guards a single logical action. The zero value is unlocked and ready for use.
// A Lock must not be shared between unrelated actions.
type Lock struct {
	busy atomic.Bool
}

// Locked reports whether an action is currently outstanding.
func (l *Lock) Locked() bool {
	return l.busy.Load()
}

// Run executes action unless another Run on l is outstanding, in which case it returns
// ErrInProgress without calling action. The lock is released once action returns or panics.
//
// Cancellation is not supported: action always runs to completion with a context that
// keeps ctx's values but ignores its cancellation.
func (l *Lock) Run(ctx context.Context, action func(ctx context.Context) error) error {
	if !l.busy.CompareAndSwap(false, true) {
		return ErrInProgress
	}
	defer l.busy.Store(false)
	return action(context.WithoutCancel(ctx))
}

// Do is Run for actions that produce a value.
func Do[T any](ctx context.Context, l *Lock, action func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := l.Run(ctx, func(ctx context.Context) error {
		v, err := action(ctx)
		out = v
		return err
	})
	return out, err
}

// Group is a keyed family of locks, one per key (for example one per user for the
// same action). Keys are forgotten once their action completes.
type Group struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Locked reports whether an action for key is currently outstanding.
func (g *Group) Locked(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[key]
	return ok
}

// Run behaves like Lock.Run for the lock identified by key.
func (g *Group) Run(ctx context.Context, key string, action func(ctx context.Context) error) error {
	if !g.acquire(key) {
		return ErrInProgress
	}
	defer g.release(key)
	return action(context.WithoutCancel(ctx))
}

// DoKey is Do for a Group key.
func DoKey[T any](ctx context.Context, g *Group, key string, action func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Run(ctx, key, func(ctx context.Context) error {
		v, err := action(ctx)
		out = v
		return err
	})
	return out, err
}

func (g *Group) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, ok := g.inFlight[key]; ok {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

func (g *Group) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}
