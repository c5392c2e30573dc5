package notifications

import "log/slog"

// ValidAlertDays reports whether days is an accepted alert threshold.
func ValidAlertDays(days int) bool {
	return days >= MinAlertBeforeDays && days <= MaxAlertBeforeDays
}

// ResolvePreferences builds the user → alert_before_days mapping for a run.
// Stored preferences are taken first; every known user without one gets
// DefaultAlertBeforeDays. Out-of-range stored values are clamped and logged.
func ResolvePreferences(userIDs []string, prefs []Preference, logger *slog.Logger) map[string]int {
	days := make(map[string]int, len(userIDs))

	for _, p := range prefs {
		if p.UserID == "" {
			continue
		}
		d := p.AlertBeforeDays
		if !ValidAlertDays(d) {
			clamped := min(max(d, MinAlertBeforeDays), MaxAlertBeforeDays)
			logger.Warn("alert preference out of range, clamping",
				"user_id", p.UserID, "alert_before_days", d, "clamped", clamped)
			d = clamped
		}
		days[p.UserID] = d
	}

	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := days[id]; !ok {
			days[id] = DefaultAlertBeforeDays
		}
	}
	return days
}
