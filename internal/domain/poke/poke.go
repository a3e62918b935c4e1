// Package poke is an example write-model used to exercise the repository
// core: a counter (nb) mutated by Add/Set/Poke commands, grounded on the
// teacher's examples/enrollment (JSON payload shape, one struct per
// command/event). It is test fixture, not library surface — §1 of the
// spec places example domains out of scope for the core.
package poke

import (
	"encoding/json"
	"fmt"

	"go-eventsource/pkg/eventsource"
)

// Prefix is this state's stable wire-name prefix (§4.1).
const Prefix = "Poke"

// State is the materialized counter.
type State struct {
	NB int `json:"nb"`
}

// AddCommand adds nb to the counter.
type AddCommand struct {
	NB int `json:"nb"`
}

func (AddCommand) CommandVariant() string { return "Add" }

// SetCommand replaces the counter with nb.
type SetCommand struct {
	NB int `json:"nb"`
}

func (SetCommand) CommandVariant() string { return "Set" }

// PokeCommand adds nb to the counter, same shape as AddCommand under a
// different name — the two exist side by side to show that naming keys
// off the command's own declared variant, not its payload shape.
type PokeCommand struct {
	NB int `json:"nb"`
}

func (PokeCommand) CommandVariant() string { return "Poke" }

// AddedEvent records that nb was added to the counter.
type AddedEvent struct {
	NB int `json:"nb"`
}

func (AddedEvent) EventVariant() string { return "Added" }

// RemovedEvent records that nb was removed from the counter.
type RemovedEvent struct {
	NB int `json:"nb"`
}

func (RemovedEvent) EventVariant() string { return "Removed" }

// PlayEvent folds a single event into the counter (§4.8: pure, no I/O).
func (s State) PlayEvent(evt eventsource.DomainEvent) State {
	switch e := evt.(type) {
	case AddedEvent:
		return State{NB: s.NB + e.NB}
	case RemovedEvent:
		return State{NB: s.NB - e.NB}
	default:
		return s
	}
}

// TryCommand decides what a command means against the current counter.
func (s State) TryCommand(cmd eventsource.Command) ([]eventsource.DomainEvent, error) {
	switch c := cmd.(type) {
	case AddCommand:
		return []eventsource.DomainEvent{AddedEvent{NB: c.NB}}, nil
	case PokeCommand:
		return []eventsource.DomainEvent{AddedEvent{NB: c.NB}}, nil
	case SetCommand:
		return []eventsource.DomainEvent{
			RemovedEvent{NB: s.NB},
			AddedEvent{NB: c.NB},
		}, nil
	default:
		return nil, fmt.Errorf("poke: unknown command %T", cmd)
	}
}

// Codec bridges poke's commands/events and JSON payload bytes.
type Codec struct{}

func (Codec) EncodeEvent(evt eventsource.DomainEvent) ([]byte, error) {
	return json.Marshal(evt)
}

func (Codec) EncodeCommand(cmd eventsource.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func (Codec) DecodeEvent(typeName string, payload []byte) (eventsource.DomainEvent, error) {
	switch typeName {
	case eventsource.EventName(Prefix, AddedEvent{}):
		var e AddedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case eventsource.EventName(Prefix, RemovedEvent{}):
		var e RemovedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("poke: unknown event type %q", typeName)
	}
}
