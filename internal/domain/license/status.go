package license

import "time"

// transitions lists the administrative status changes a license may take.
// Expiry is not listed: it is derived from the clock, not commanded.
// Cancelled is terminal.
var transitions = map[Status][]Status{
	StatusActive:    {StatusSuspended, StatusCancelled},
	StatusTrial:     {StatusActive, StatusSuspended, StatusCancelled},
	StatusExpired:   {StatusActive, StatusCancelled},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DeriveStatus reports the status of l as of the given instant. A license in
// active or trial status whose expiry has passed reports expired; every other
// status reports unchanged (a cancelled license never reports expired). Read
// paths use this instead of the persisted status, which may lag until the next
// write-triggering operation.
func DeriveStatus(l *License, asOf time.Time) Status {
	if (l.Status == StatusActive || l.Status == StatusTrial) && l.ExpiresAt.Valid && asOf.After(l.ExpiresAt.Time) {
		return StatusExpired
	}
	return l.Status
}
