package pubsub

// Topics carried on the engine event bus.
const (
	TopicNodeCreated     = "node.created"
	TopicPatchCreated    = "patch.created"
	TopicMirrorCreated   = "mirror.created"
	TopicStateChanged    = "node.state_changed"
	TopicActionCompleted = "action.completed"
	TopicActionRejected  = "action.rejected"
	TopicMappingCreated  = "mapping.created"
)

// Topics returns every topic the engine publishes on.
func Topics() []string {
	return []string{
		TopicNodeCreated,
		TopicPatchCreated,
		TopicMirrorCreated,
		TopicStateChanged,
		TopicActionCompleted,
		TopicActionRejected,
		TopicMappingCreated,
	}
}

// Event is the envelope delivered to subscribers. VirtualTime is the
// engine clock reading when the event was produced, At the wall-clock
// unix time.
type Event struct {
	Topic       string `json:"topic"`
	VirtualTime uint64 `json:"virtual_time"`
	At          int64  `json:"at"`
	Payload     any    `json:"payload,omitempty"`
}
