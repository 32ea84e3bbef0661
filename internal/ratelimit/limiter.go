// Package ratelimit provides per-client login attempt throttling for the
// mock messaging site.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the throttling configuration.
type Config struct {
	AttemptsPerSecond float64       // Sustained login attempts per second per client
	Burst             int           // Burst size per client
	CleanupInterval   time.Duration // How often to drop idle client entries
}

// DefaultConfig throttles hard enough to make credential stuffing annoying
// without getting in the way of a human retyping a password.
var DefaultConfig = Config{
	AttemptsPerSecond: 1,
	Burst:             5,
	CleanupInterval:   time.Hour,
}

type limiterEntry struct {
	limiter *rate.Limiter
	// lastUsed holds unix nanos. Atomic because the fast path refreshes it
	// under the read lock, where concurrent logins from one client race.
	lastUsed atomic.Int64
}

func (e *limiterEntry) touch() {
	e.lastUsed.Store(time.Now().UnixNano())
}

// LoginLimiter throttles login attempts per client address.
type LoginLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewLoginLimiter creates a limiter and starts its background cleanup.
func NewLoginLimiter(config Config) *LoginLimiter {
	ll := &LoginLimiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	ll.wg.Add(1)
	go ll.cleanupLoop()

	return ll
}

// Allow reports whether a login attempt from the given client is allowed.
func (ll *LoginLimiter) Allow(client string) bool {
	return ll.getLimiter(client).Allow()
}

func (ll *LoginLimiter) getLimiter(client string) *rate.Limiter {
	// Fast path: existing entry under read lock.
	ll.mu.RLock()
	entry, exists := ll.limiters[client]
	if exists {
		entry.touch()
		ll.mu.RUnlock()
		return entry.limiter
	}
	ll.mu.RUnlock()

	ll.mu.Lock()
	defer ll.mu.Unlock()

	// Double-check after acquiring write lock.
	if entry, exists := ll.limiters[client]; exists {
		entry.touch()
		return entry.limiter
	}

	entry = &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(ll.config.AttemptsPerSecond), ll.config.Burst),
	}
	entry.touch()
	ll.limiters[client] = entry
	return entry.limiter
}

// Cleanup removes entries idle for longer than the cleanup interval.
func (ll *LoginLimiter) Cleanup() {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	cutoff := time.Now().Add(-ll.config.CleanupInterval).UnixNano()
	for client, entry := range ll.limiters {
		if entry.lastUsed.Load() < cutoff {
			delete(ll.limiters, client)
		}
	}
}

func (ll *LoginLimiter) cleanupLoop() {
	defer ll.wg.Done()

	ticker := time.NewTicker(ll.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ll.Cleanup()
		case <-ll.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (ll *LoginLimiter) Stop() {
	close(ll.stopCh)
	ll.wg.Wait()
}

// Len returns the number of tracked clients. Useful for tests.
func (ll *LoginLimiter) Len() int {
	ll.mu.RLock()
	defer ll.mu.RUnlock()
	return len(ll.limiters)
}
