package session

import (
	"time"

	"edudash-assessment-service/internal/domain"
)

// Reconcile computes the authoritative remaining time for a session
// start from the quiz's fixed duration and its absolute deadline.
// A generous duration must not let the student run past a near
// deadline, and a distant deadline must not stretch a short duration,
// so the smaller of the two wins. Fractional seconds are truncated,
// never rounded up. Returns domain.ErrDeadlinePassed when the deadline
// is already behind now; no countdown may be started in that case.
func Reconcile(duration time.Duration, deadline, now time.Time) (int, error) {
	untilDeadline := deadline.Sub(now)
	if untilDeadline <= 0 {
		return 0, domain.ErrDeadlinePassed
	}
	remaining := duration
	if untilDeadline < remaining {
		remaining = untilDeadline
	}
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining / time.Second), nil
}
