package gateway

import "time"

// runIdleMonitor wakes every idleTimeout and fires onIdle once the
// connection's last-activity age exceeds idleTimeout, then exits
// (spec.md §4.9 "Idle monitor"). Waking on a fixed interval rather than
// arming a fresh timer per activity means the effective detection bound
// is up to 2x idleTimeout — documented in SPEC_FULL.md's redesign notes,
// mirrored from the teacher registry Hub's eviction ticker.
func runIdleMonitor(stop <-chan struct{}, idleTimeout time.Duration, clock *activityClock, onIdle func()) {
	if idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(idleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if clock.idleFor() >= idleTimeout {
				onIdle()
				return
			}
		}
	}
}
