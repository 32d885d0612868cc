package models

// change feed event types
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
)

// OrderEvent is one change feed message. It carries the full order
// snapshot, never a diff, so subscribers can merge it idempotently
// regardless of arrival order or duplication.
type OrderEvent struct {
	Type  string `json:"type"`
	Order Order  `json:"order"`
}
