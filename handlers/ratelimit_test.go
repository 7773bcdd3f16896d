package handlers

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter()
	ip := "127.0.0.1"

	if !limiter.Allow(ip) {
		t.Errorf("Expected IP to be allowed initially")
	}

	for i := 0; i < maxAttempts-1; i++ {
		limiter.RecordFailure(ip)
	}
	if !limiter.Allow(ip) {
		t.Errorf("Expected IP to be allowed after %d failures", maxAttempts-1)
	}

	limiter.RecordFailure(ip)
	if limiter.Allow(ip) {
		t.Errorf("Expected IP to be blocked after %d failures", maxAttempts)
	}
	if !limiter.Allow("127.0.0.2") {
		t.Errorf("Blocking one IP must not affect another")
	}

	limiter.Reset(ip)
	if !limiter.Allow(ip) {
		t.Errorf("Expected IP to be allowed after reset")
	}
}

func TestRateLimiterBlockExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newRateLimiter()
	limiter.now = clock.Now
	ip := "10.0.0.2"

	for i := 0; i < maxAttempts; i++ {
		limiter.RecordFailure(ip)
	}
	if limiter.Allow(ip) {
		t.Fatal("Expected IP to be blocked")
	}

	clock.Advance(blockDuration + time.Second)
	if !limiter.Allow(ip) {
		t.Errorf("Expected block to expire after %v", blockDuration)
	}
}

func TestRateLimiterWindowRestarts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newRateLimiter()
	limiter.now = clock.Now
	ip := "10.0.0.3"

	for i := 0; i < maxAttempts-1; i++ {
		limiter.RecordFailure(ip)
	}
	clock.Advance(windowDuration + time.Second)

	// The old failures fell out of the window, so this one starts a new count.
	limiter.RecordFailure(ip)
	if !limiter.Allow(ip) {
		t.Errorf("Expected IP to be allowed after the window restarted")
	}
}

func TestRateLimiterParallel(t *testing.T) {
	limiter := newRateLimiter()
	ip := "10.0.0.1"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.RecordFailure(ip)
		}()
	}
	wg.Wait()

	if limiter.Allow(ip) {
		t.Errorf("Expected IP to be blocked after concurrent failures")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	if got := getClientIP(r); got != "192.0.2.7" {
		t.Errorf("getClientIP = %q", got)
	}
	r.RemoteAddr = "unix-socket"
	if got := getClientIP(r); got != "unix-socket" {
		t.Errorf("getClientIP without port = %q", got)
	}
}
