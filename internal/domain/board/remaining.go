package board

import "time"

const day = 24 * time.Hour

// Urgency classifies an item by days left until its end date.
type Urgency string

const (
	UrgencyOverdue Urgency = "overdue"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyNormal  Urgency = "normal"
)

// RemainingDays returns ceil((endDate - asOf) / 24h). Callers rendering a board
// must pass a single asOf for the whole render.
func RemainingDays(it WorkItem, asOf time.Time) int {
	d := it.EndDate.Sub(asOf)
	days := int(d / day)
	// integer division truncates toward zero, which is already the ceiling for negatives
	if d%day > 0 {
		days++
	}
	return days
}

// Classify maps remaining days to an urgency given the urgent threshold in days.
func Classify(days, urgentDays int) Urgency {
	switch {
	case days < 0:
		return UrgencyOverdue
	case days < urgentDays:
		return UrgencyUrgent
	default:
		return UrgencyNormal
	}
}
