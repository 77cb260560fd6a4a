package authapi

import (
	"context"
	"net"
	"time"
)

func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if h.audit == nil || ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	failures, err := h.audit.LoginFailuresByIP(ctx, ip, now.Add(-h.cfg.LoginIPWindow))
	if err != nil {
		return false, 0, err
	}
	blocked, retry := evaluateWindowThrottle(now, failures, h.cfg.LoginIPMax, h.cfg.LoginIPWindow)
	return blocked, retry, nil
}

// evaluateWindowThrottle blocks once limit failures fall inside window.
// failures must be sorted newest first. The block lifts when the limit-th newest
// failure ages out of the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 || window <= 0 {
		return false, 0
	}

	cut := now.Add(-window)
	inWindow := 0
	for _, ts := range failures {
		if ts.Before(cut) {
			break
		}
		inWindow++
	}
	if inWindow < limit {
		return false, 0
	}

	retry := failures[limit-1].Add(window).Sub(now)
	if retry <= 0 {
		return false, 0
	}
	return true, retry
}
