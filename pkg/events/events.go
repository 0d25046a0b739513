package events

// EventType identifies a state change worth announcing to watchers.
type EventType string

const (
	EventTypePlayerAvailable     EventType = "player_available"
	EventTypeAvailabilityRemoved EventType = "availability_removed"
	EventTypeGameStarted         EventType = "game_started"
	EventTypeMoveMade            EventType = "move_made"
	EventTypeGameFinished        EventType = "game_finished"
)

// Event is a single broadcast entry. Data is event-specific and is
// serialized as-is for subscribers.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
