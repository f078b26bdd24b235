// README: Maintenance records and the overdue scan.
package maintenance

import (
	"time"

	"fleetops/internal/types"
)

type Status string

const (
	// StatusPending means the record is overdue: its mileage threshold has
	// been reached without the work being done.
	StatusPending    Status = "PENDING"
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Record struct {
	ID               types.ID
	TruckID          types.ID
	Description      string
	ScheduledMileage *float64
	ScheduledDate    *time.Time
	Status           Status
	Priority         Priority
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// overdue reports whether the truck's odometer puts this record past its
// threshold. Records already flagged PENDING never re-fire.
func overdue(r Record, currentMileage float64) bool {
	if r.Status != StatusScheduled || r.ScheduledMileage == nil {
		return false
	}
	return currentMileage >= *r.ScheduledMileage
}

// OverdueRecords returns the records a mileage reading newly pushes past
// their scheduled threshold.
func OverdueRecords(records []Record, currentMileage float64) []Record {
	var out []Record
	for _, r := range records {
		if overdue(r, currentMileage) {
			out = append(out, r)
		}
	}
	return out
}
