// Package lock serializes booking writes per spot. Writers for different
// spots never wait on each other.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, spotID string) (Unlock, error)
}

func lockKey(spotID string) string {
	return "spot_lock_" + spotID
}

// KeyedMutex is the in-process Locker: one single-slot channel per spot,
// dropped once nobody holds or waits for it.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	slot chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, spotID string) (Unlock, error) {
	k.mu.Lock()
	e, ok := k.entries[spotID]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		k.entries[spotID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		k.release(spotID, e, false)
		return nil, fmt.Errorf("waiting for spot %s: %w", spotID, ctx.Err())
	}

	return releaseOnce(func() { k.release(spotID, e, true) }), nil
}

func releaseOnce(fn func()) Unlock {
	var once sync.Once
	return func() { once.Do(fn) }
}

func (k *KeyedMutex) release(spotID string, e *entry, held bool) {
	if held {
		<-e.slot
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, spotID)
	}
}

// size reports how many spots currently have holders or waiters.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// acquire polls try until it succeeds, fails, or ctx ends. Contention is not
// an error; callers only see the final outcome.
func acquire(ctx context.Context, interval time.Duration, try func(context.Context) (bool, error)) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		timer.Reset(interval)
	}
}
