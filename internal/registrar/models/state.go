package models

// State is the lifecycle phase of a domain, derived from timestamps at the
// instant of evaluation. It is never persisted.
type State string

const (
	StateActive      State = "ACTIVE"
	StateGrace       State = "GRACE"
	StateReclaimable State = "RECLAIMABLE"
)

// Classify derives the state of r at now given the configured grace period.
//
//	ACTIVE       now <= expiry
//	GRACE        expiry < now <= expiry + grace
//	RECLAIMABLE  now > expiry + grace
func Classify(r *DomainRecord, now int64, gracePeriodSeconds int64) State {
	if now <= r.ExpiryTimestamp {
		return StateActive
	}
	if now-r.ExpiryTimestamp <= gracePeriodSeconds {
		return StateGrace
	}
	return StateReclaimable
}
