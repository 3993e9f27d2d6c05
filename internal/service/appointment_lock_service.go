package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAppointmentBusy is returned when the per-appointment lock cannot be
// acquired within the retry window.
var ErrAppointmentBusy = errors.New("another payment for this appointment is in progress")

// AppointmentLocker serializes payment mutations per appointment. Two
// concurrent writes reading the same paid-so-far total could push the ledger
// past servicePrice x quantity; everything that appends a payment runs under
// this lock.
type AppointmentLocker interface {
	WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error
}

// =============================================================================
// Redis-backed locker (multi-instance deployments)
// =============================================================================

const (
	lockKeyPrefix     = "lock:appointment:"
	lockRetryInterval = 50 * time.Millisecond
	lockRetryWindow   = 3 * time.Second
)

// unlockScript deletes the lock key only when it still holds our token, so an
// expired-and-reacquired lock is never released by the previous holder.
var unlockScript = redis.NewScript(`
	local val = redis.call("GET", KEYS[1])
	if val == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

type redisAppointmentLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAppointmentLocker(client *redis.Client, ttl time.Duration) AppointmentLocker {
	return &redisAppointmentLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisAppointmentLocker) WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + appointmentID.String()
	token := uuid.NewString()

	deadline := time.Now().Add(lockRetryWindow)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire appointment lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrAppointmentBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	defer func() {
		_, _ = unlockScript.Run(context.Background(), l.client, []string{key}, token).Result()
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// =============================================================================
// In-process locker (single-instance deployments, tests)
// =============================================================================

const (
	mutexCleanupInterval = 10 * time.Minute
	mutexStaleThreshold  = 10 * time.Minute
)

type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

type localAppointmentLocker struct {
	mutexes sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewLocalAppointmentLocker creates an in-process locker. Starts a background
// goroutine that evicts stale mutexes; call Stop() during graceful shutdown.
func NewLocalAppointmentLocker() *localAppointmentLocker {
	l := &localAppointmentLocker{
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Stop gracefully shuts down the cleanup goroutine. Safe to call multiple times.
func (l *localAppointmentLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
	}
}

func (l *localAppointmentLocker) WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error {
	mt := l.getMutex(appointmentID)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return fn(ctx)
}

func (l *localAppointmentLocker) getMutex(appointmentID uuid.UUID) *mutexWithTimestamp {
	mt, _ := l.mutexes.LoadOrStore(appointmentID, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (l *localAppointmentLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanupStale()
		}
	}
}

func (l *localAppointmentLocker) cleanupStale() {
	cutoff := time.Now().Add(-mutexStaleThreshold).Unix()

	l.mutexes.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		// TryLock first: if someone holds it, it is not stale.
		if mt.mu.TryLock() {
			// lastUsed is checked inside the lock so a concurrent acquire
			// cannot slip between check and delete.
			if mt.lastUsed.Load() < cutoff {
				l.mutexes.Delete(key)
			}
			mt.mu.Unlock()
		}
		return true
	})
}
