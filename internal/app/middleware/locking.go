package middleware

import (
	"context"
	"errors"

	"stayfinder/internal/app/bus"
)

var ErrLockUnavailable = errors.New("middleware: resource is busy, retry later")

// LockedCommand names the resource a command must hold exclusively.
type LockedCommand interface {
	bus.Message
	LockKey() string
}

// Locker grants exclusive access to a key until release is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type heldLocks struct {
	locker   Locker
	keys     map[string]bool
	releases []func()
}

func (h *heldLocks) acquire(ctx context.Context, key string) error {
	if h.keys[key] {
		return nil
	}
	release, err := h.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	h.keys[key] = true
	h.releases = append(h.releases, release)
	return nil
}

func (h *heldLocks) releaseAll() {
	for i := len(h.releases) - 1; i >= 0; i-- {
		h.releases[i]()
	}
}

type heldLocksKey struct{}

// Hold takes key for the rest of the command once the handler has learned
// which resource it touches. The lock is released with the command's own
// LockKey, after the transaction has finished. Without Serialize in the chain
// Hold does nothing.
func Hold(ctx context.Context, key string) error {
	held, ok := ctx.Value(heldLocksKey{}).(*heldLocks)
	if !ok || key == "" {
		return nil
	}
	return held.acquire(ctx, key)
}

// Serialize runs commands sharing a LockKey one at a time. It sits outside the
// transaction so the lock is held until commit.
func Serialize(locker Locker) bus.Middleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			held := &heldLocks{locker: locker, keys: map[string]bool{}}
			defer held.releaseAll()
			if locked, ok := msg.(LockedCommand); ok && locked.LockKey() != "" {
				if err := held.acquire(ctx, locked.LockKey()); err != nil {
					return nil, err
				}
			}
			return next.Dispatch(context.WithValue(ctx, heldLocksKey{}, held), msg)
		})
	}
}
