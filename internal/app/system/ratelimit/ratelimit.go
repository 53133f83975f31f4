// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per duration and starts a
// goroutine that drops expired windows. Call Close to stop it.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go l.sweepLoop(duration * 2)
	return l
}

// Allow records a request for key and reports whether it is within limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset forgets key, e.g. after a successful sign-in.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Close stops the sweep goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}

var trustProxy atomic.Bool

// TrustProxyHeaders controls whether ClientIP reads X-Forwarded-For and
// X-Real-IP. Enable it only behind a reverse proxy that sets them; anyone can
// send those headers directly.
func TrustProxyHeaders(on bool) {
	trustProxy.Store(on)
}

// ClientIP returns the host part of RemoteAddr. When proxy headers are
// trusted it prefers the last X-Forwarded-For hop, which is the one the
// proxy appended, then X-Real-IP.
func ClientIP(r *http.Request) string {
	if trustProxy.Load() {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AuthLimiter throttles sign-in and registration by client IP and by the
// email being tried.
type AuthLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewAuthLimiter uses 10 attempts per IP per minute and 5 per email per
// 5 minutes.
func NewAuthLimiter() *AuthLimiter {
	return NewAuthLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

func NewAuthLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *AuthLimiter {
	return &AuthLimiter{ip: New(ipLimit, ipWindow), email: New(emailLimit, emailWindow)}
}

// Check records an attempt. When it is refused, msg is safe to show.
func (a *AuthLimiter) Check(r *http.Request, email string) (ok bool, msg string) {
	if !a.ip.Allow(ClientIP(r)) {
		return false, "Too many attempts. Please wait a minute before trying again."
	}
	if key := emailKey(email); key != "" && !a.email.Allow(key) {
		return false, "Too many attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetEmail clears the per-email count after a successful sign-in.
func (a *AuthLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		a.email.Reset(key)
	}
}

func (a *AuthLimiter) Close() {
	a.ip.Close()
	a.email.Close()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
