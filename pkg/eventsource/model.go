package eventsource

// Projector is the read-only half of a domain model: given an event, it
// returns the updated model. S is typically the model's own concrete type
// (e.g. "type DiceState struct{...}" implementing "PlayEvent(DomainEvent) DiceState"),
// so PlayEvent is a pure function from (old state, event) to new state —
// required for the round-trip property (P1) and for the cache-sync loop's
// fast path to be a single call.
type Projector[S any] interface {
	PlayEvent(evt DomainEvent) S
}

// Aggregate is the write half of a domain model: in addition to being a
// Projector, it decides what a command means against the current state.
// TryCommand must be pure/deterministic: the same (state, command) pair
// must always produce the same events, because a version conflict replays
// it (§4.6, §9 "Retry policy").
type Aggregate[S any] interface {
	Projector[S]
	TryCommand(cmd Command) ([]DomainEvent, error)
}

// EventCodec bridges the domain's concrete DomainEvent values and the
// JSON payload bytes persisted by the Store. Decode receives the record's
// full wire type name (prefix + ".evt." + snake_variant) so a single codec
// can multiplex every event variant a state emits.
type EventCodec interface {
	EncodeEvent(evt DomainEvent) ([]byte, error)
	DecodeEvent(typeName string, payload []byte) (DomainEvent, error)
}

// CommandCodec serializes a Command's payload for persistence. Commands
// are written but never decoded back by the core (§3: "persisted as a
// record but never replayed into state"), so there is no DecodeCommand.
type CommandCodec interface {
	EncodeCommand(cmd Command) ([]byte, error)
}
