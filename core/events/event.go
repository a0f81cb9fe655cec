package events

// Event is a structured state change produced by an engine: a loan funded, a
// pool rebalanced, a stake claimed.
type Event interface {
	EventType() string
}

// Emitter fans events out to whoever is listening (the RPC stream, the audit
// indexer).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards everything. Engines start with it so emission is
// always safe before a node wires itself in.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}
