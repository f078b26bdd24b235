// README: Notification dispatch contract consumed by the core modules.
package notify

// Event names emitted by the core. The names and payload field names are a
// cross-system contract; downstream consumers match on them verbatim.
const (
	EventTripScheduled        = "trip.scheduled"
	EventTripDelayed          = "trip.delayed"
	EventTripCompleted        = "trip.completed"
	EventTripLowProfit        = "trip.low_profit"
	EventExpenseCreated       = "expense.created"
	EventExpenseHighValue     = "expense.high_value"
	EventMaintenanceScheduled = "maintenance.scheduled"
	EventMaintenanceOverdue   = "maintenance.overdue"
	EventMaintenanceCompleted = "maintenance.completed"
)

// Dispatcher delivers events fire-and-forget, at most once. Implementations
// must never block the caller or surface delivery failures; the triggering
// operation has already committed by the time Send runs.
type Dispatcher interface {
	Send(eventName string, payload map[string]any)
}

// Nop discards every event. Used in tests and when no webhook is configured.
type Nop struct{}

func (Nop) Send(string, map[string]any) {}
