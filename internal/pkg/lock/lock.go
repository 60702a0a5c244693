// Package lock provides per-key locking. The API process uses it to
// serialise clock transitions and timeline writes for a single match.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with a holder count used for cleanup.
type keyMutex struct {
	mu      sync.Mutex
	holders int
}

// KeyLock hands out one mutex per int64 key.
type KeyLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[int64]*keyMutex)}
}

// acquire returns the mutex for key and registers the caller as a holder.
func (kl *KeyLock) acquire(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km, ok := kl.locks[key]
	if !ok {
		km = &keyMutex{}
		kl.locks[key] = km
	}
	km.holders++
	return km
}

// release drops the caller's registration and forgets idle keys.
func (kl *KeyLock) release(key int64, km *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km.holders--
	if km.holders == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key int64) {
	kl.acquire(key).mu.Lock()
}

// Unlock releases the lock for key.
func (kl *KeyLock) Unlock(key int64) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	km.mu.Unlock()
	kl.release(key, km)
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyLock) TryLock(key int64) bool {
	km := kl.acquire(key)
	if km.mu.TryLock() {
		return true
	}
	kl.release(key, km)
	return false
}

// LockWithTimeout attempts to acquire the lock, giving up after timeout or
// when ctx is done.
func (kl *KeyLock) LockWithTimeout(ctx context.Context, key int64, timeout time.Duration) bool {
	km := kl.acquire(key)

	done := make(chan struct{})
	go func() {
		km.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine still gets the mutex eventually; hand it back.
		go func() {
			<-done
			km.mu.Unlock()
			kl.release(key, km)
		}()
		return false
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key, failing with
// ErrLockTimeout if the lock is not obtained within timeout.
func (kl *KeyLock) WithLockContext(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked reports whether key is currently held. The answer may be stale
// as soon as it is returned.
func (kl *KeyLock) IsLocked(key int64) bool {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return false
	}
	if km.mu.TryLock() {
		km.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of keys currently tracked.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
