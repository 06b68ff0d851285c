package logging

// Structured log keys shared across packages.
const (
	FieldComponent = "component"
	// FieldEventType classifies warnings for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is the suggested next step.
	FieldErrorHint = "error_hint"
	// FieldImpact describes what the user loses because of a warning.
	FieldImpact = "impact"

	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"

	FieldRunID = "run_id"
	// FieldFile is the audio file being processed; the console handler lifts
	// it into the header line.
	FieldFile  = "file"
	FieldTitle = "title"
)
