package notifications

import (
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
)

// FilterDue returns the matches whose deadline lies in [today, today+days].
// Both bounds are inclusive; matches without a deadline are dropped.
func FilterDue(today civil.Date, days int, matches []Match) []Match {
	cutoff := today.AddDays(days)

	var due []Match
	for _, m := range matches {
		if m.Deadline == nil {
			continue
		}
		if m.Deadline.Before(today) || m.Deadline.After(cutoff) {
			continue
		}
		due = append(due, m)
	}
	return due
}

// BuildMessage renders the alert text for a due scholarship.
func BuildMessage(m Match) string {
	daysLeft := "?"
	if m.DaysUntilDue != nil {
		daysLeft = strconv.Itoa(*m.DaysUntilDue)
	}
	deadline := "?"
	if m.Deadline != nil {
		deadline = m.Deadline.String()
	}
	return fmt.Sprintf("Deadline alert: '%s' closes on %s (%s days remaining). Apply now!",
		m.Name, deadline, daysLeft)
}
