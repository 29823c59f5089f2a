// Package recurrence computes due dates for recurring tasks.
package recurrence

import (
	"fmt"
	"time"

	"taskmanager/internal/model"
)

const day = 24 * time.Hour

// Next returns the next due date for freq relative to now.
//
// Daily and weekly add elapsed time. Monthly uses calendar arithmetic: the
// same day-of-month in the following month at local midnight, normalized by
// time.Date, so Jan 31 rolls over to early March. Unknown frequencies return
// now unchanged.
func Next(freq model.Frequency, now time.Time) time.Time {
	switch freq {
	case model.FrequencyDaily:
		return now.Add(day)
	case model.FrequencyWeekly:
		return now.Add(7 * day)
	case model.FrequencyMonthly:
		return time.Date(now.Year(), now.Month()+1, now.Day(), 0, 0, 0, 0, now.Location())
	default:
		return now
	}
}

// Policy decides whether an update to a recurring task advances its due date.
type Policy string

const (
	// AdvanceOnEveryUpdate recomputes the due date on every update call.
	AdvanceOnEveryUpdate Policy = "every-update"
	// AdvanceOnCompletion recomputes only when completed flips false -> true.
	AdvanceOnCompletion Policy = "on-completion"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case AdvanceOnEveryUpdate, AdvanceOnCompletion:
		return p, nil
	case "":
		return AdvanceOnEveryUpdate, nil
	default:
		return "", fmt.Errorf("unknown recurrence policy %q", s)
	}
}

// ShouldAdvance reports whether a recurring task moving from wasCompleted to
// completed should get a new due date under p.
func (p Policy) ShouldAdvance(wasCompleted, completed bool) bool {
	if p == AdvanceOnCompletion {
		return !wasCompleted && completed
	}
	return true
}
