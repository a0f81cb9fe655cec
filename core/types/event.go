package types

// Event is the concrete payload engines emit and subscribers receive. ID and
// Height are stamped by the node at emission time; engines fill only Type and
// Attributes.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Height     uint64            `json:"height"`
	Attributes map[string]string `json:"attributes"`
}

// EventType implements the events.Event interface.
func (e *Event) EventType() string { return e.Type }
