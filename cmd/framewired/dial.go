package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/danmuck/framewire/internal/logging"
)

// backoff spaces dial retries: initial * multiplier^(attempt-1), capped at max.
type backoff struct {
	initial    time.Duration
	multiplier float64
	max        time.Duration
	jitter     bool
}

func defaultBackoff() backoff {
	return backoff{
		initial:    250 * time.Millisecond,
		multiplier: 2.0,
		max:        5 * time.Second,
		jitter:     true,
	}
}

// delay returns the wait before attempt n (1-based); the first attempt waits
// only the initial delay.
func (b backoff) delay(attempt int, rng *rand.Rand) time.Duration {
	if b.initial <= 0 {
		return 0
	}
	if attempt <= 1 {
		return b.initial
	}
	m := max(b.multiplier, 1.0)
	d := float64(b.initial) * math.Pow(m, float64(attempt-1))
	if b.max > 0 && d > float64(b.max) {
		d = float64(b.max)
	}
	if b.jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		d *= f
	}
	return time.Duration(d)
}

// dialRetry dials addr up to attempts times, sleeping between failures.
func dialRetry(ctx context.Context, addr string, attempts int, b backoff) (net.Conn, error) {
	log := logging.For("framewired")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var d net.Dialer
	var lastErr error
	for attempt := 1; attempt <= max(attempts, 1); attempt++ {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt >= attempts {
			break
		}
		wait := b.delay(attempt, rng)
		log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("framewired.dialRetry retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("framewired: dial %s after %d attempts: %w", addr, max(attempts, 1), lastErr)
}
