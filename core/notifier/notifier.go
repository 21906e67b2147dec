package notifier

// EventType identifies the kind of progress event emitted during a sync
// run.
type EventType string

const (
	EventSyncStarted   EventType = "sync_started"
	EventProcessing    EventType = "processing"
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventSkipped       EventType = "skipped"
	EventError         EventType = "error"
	EventSyncCompleted EventType = "sync_completed"
)

// Stats is the aggregated outcome snapshot carried by the completion event.
type Stats struct {
	TotalGroups     int `json:"totalGroups"`
	Processed       int `json:"processed"`
	Created         int `json:"created"`
	Updated         int `json:"updated"`
	Deleted         int `json:"deleted"`
	Skipped         int `json:"skipped"`
	Errored         int `json:"errored"`
	VariantsCreated int `json:"variantsCreated"`
	VariantsUpdated int `json:"variantsUpdated"`
}

// Event is one structured progress message. Every event carries the product
// title it refers to (when applicable) plus the processed/total counters;
// type-specific fields are set only for their event type.
type Event struct {
	Type            EventType `json:"type"`
	RunID           string    `json:"runId,omitempty"`
	ProductTitle    string    `json:"productTitle,omitempty"`
	Processed       int       `json:"processed"`
	Total           int       `json:"total"`
	VariantsCreated int       `json:"variantsCreated,omitempty"`
	VariantsUpdated int       `json:"variantsUpdated,omitempty"`
	Error           string    `json:"error,omitempty"`
	Stats           *Stats    `json:"stats,omitempty"`
}

// Notifier receives progress events for a shop. Implementations must not
// block: the pipeline calls Send from its worker goroutines.
type Notifier interface {
	Send(shop string, event Event)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Send(shop string, event Event) {
	for _, n := range m {
		n.Send(shop, event)
	}
}
