package main

import "time"

// tickLimiter paces the driver loop to a fixed tick rate.
type tickLimiter struct {
	rate int // ticks per second, <= 0 means unlimited
	next time.Time
}

func newTickLimiter(rate int) *tickLimiter {
	return &tickLimiter{rate: rate}
}

// Wait blocks until the next tick is due. Uses a hybrid sleep/spin approach
// for better precision on high tick rates.
func (l *tickLimiter) Wait() {
	if l.rate <= 0 {
		l.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(l.rate)

	if l.next.IsZero() {
		l.next = time.Now().Add(target)
	} else {
		l.next = l.next.Add(target)
	}

	for {
		remaining := time.Until(l.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
		if time.Until(l.next) <= 0 {
			break
		}
	}

	// If we're significantly late (e.g., a long tick), resync to avoid drift
	if late := -time.Until(l.next); late > target {
		l.next = time.Now().Add(target)
	}
}
