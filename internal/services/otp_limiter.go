package services

import (
	"strings"
	"sync"
	"time"
)

// OTPLimiter caps passcode issuance per recipient address over a sliding
// one-hour window. State is in-process only: it is not shared across
// instances and resets on restart, which is acceptable for single-instance
// deployments only.
type OTPLimiter struct {
	mu      sync.Mutex
	issued  map[string][]time.Time
	max     int
	window  time.Duration
	nowFunc func() time.Time
}

// NewOTPLimiter allows max issuances per address per sliding hour.
func NewOTPLimiter(max int) *OTPLimiter {
	l := &OTPLimiter{
		issued:  make(map[string][]time.Time),
		max:     max,
		window:  time.Hour,
		nowFunc: time.Now,
	}
	go l.cleanup()
	return l
}

// Allow reports whether another code may be issued to email, and records
// the issuance if so.
func (l *OTPLimiter) Allow(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	now := l.nowFunc()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.issued[email][:0]
	for _, t := range l.issued[email] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.issued[email] = recent
		return false
	}

	l.issued[email] = append(recent, now)
	return true
}

// Remaining reports how many more codes may be issued to email right now.
func (l *OTPLimiter) Remaining(email string) int {
	email = strings.ToLower(strings.TrimSpace(email))
	cutoff := l.nowFunc().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, t := range l.issued[email] {
		if t.After(cutoff) {
			count++
		}
	}
	if count >= l.max {
		return 0
	}
	return l.max - count
}

// cleanup drops addresses whose entire window has expired.
func (l *OTPLimiter) cleanup() {
	for {
		time.Sleep(10 * time.Minute)
		cutoff := l.nowFunc().Add(-l.window)

		l.mu.Lock()
		for email, times := range l.issued {
			live := false
			for _, t := range times {
				if t.After(cutoff) {
					live = true
					break
				}
			}
			if !live {
				delete(l.issued, email)
			}
		}
		l.mu.Unlock()
	}
}
