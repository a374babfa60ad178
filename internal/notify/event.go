package notify

// EventType names a successful state-changing operation in the escalation chain.
type EventType string

const (
	EventReportSubmitted         EventType = "report.submitted"
	EventFeedbackAttached        EventType = "report.feedback_attached"
	EventReportFinalized         EventType = "report.finalized"
	EventSummaryCreated          EventType = "summary.created"
	EventSummaryFeedbackAttached EventType = "summary.feedback_attached"
	EventAssignmentCreated       EventType = "assignment.created"
	EventMonitoringLogCreated    EventType = "monitoring.created"
	EventMonitoringLogResponded  EventType = "monitoring.responded"
)

// Event is emitted after an entity write commits. Recipients were resolved by
// the emitting service from current storage state.
type Event struct {
	Type         EventType `json:"type"`
	ActorID      string    `json:"actor_id"`
	EntityID     string    `json:"entity_id"`
	RecipientIDs []string  `json:"recipient_ids"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
}
