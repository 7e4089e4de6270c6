package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PURCHASE_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string field from the payload, "" when absent.
func (e BaseEvent) String(key string) string {
	if v, ok := e.Data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

const (
	UserRegistered    = "USER_REGISTERED"
	PlanPublished     = "PLAN_PUBLISHED"
	PurchaseInitiated = "PURCHASE_INITIATED"
	PurchaseCompleted = "PURCHASE_COMPLETED"
	DownloadIssued    = "DOWNLOAD_LINK_ISSUED"
	DownloadRedeemed  = "DOWNLOAD_REDEEMED"
)
