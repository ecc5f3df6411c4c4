package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a per-process sliding window limiter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
	done    chan struct{}
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewMemory(maxRequests int, window time.Duration) *Memory {
	l := &Memory{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go l.cleanupOldBuckets()
	return l
}

func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-l.window)
	kept := b.requests[:0]
	for _, t := range b.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.requests = kept
	b.lastSeen = now

	if len(b.requests) >= l.maxReqs {
		return false, nil
	}
	b.requests = append(b.requests, now)
	return true, nil
}

func (l *Memory) cleanupOldBuckets() {
	for {
		select {
		case <-l.cleanup.C:
			l.mu.Lock()
			stale := time.Now().Add(-l.window - time.Minute)
			for key, b := range l.buckets {
				if b.lastSeen.Before(stale) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (l *Memory) Stop() {
	l.cleanup.Stop()
	close(l.done)
}
