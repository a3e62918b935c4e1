// Package dice is an example write-model used to exercise concurrent
// command submission against the same entity (P3 "conflict absorption"):
// TakeTime simulates a slow domain decision so two concurrent callers
// race to append.
package dice

import (
	"encoding/json"
	"fmt"
	"time"

	"go-eventsource/pkg/eventsource"
)

// Prefix is this state's stable wire-name prefix.
const Prefix = "Dice"

// State holds the names recorded so far, in append order.
type State struct {
	Names []string `json:"names"`
}

// TakeTimeCommand simulates a slow decision proportional to Millis before
// emitting its event — long enough for two concurrent callers to overlap.
type TakeTimeCommand struct {
	Millis int    `json:"millis"`
	Name   string `json:"name"`
}

func (TakeTimeCommand) CommandVariant() string { return "TakeTime" }

// TimeTakenEvent records that Name finished its simulated wait.
type TimeTakenEvent struct {
	Name string `json:"name"`
}

func (TimeTakenEvent) EventVariant() string { return "TimeTaken" }

func (s State) PlayEvent(evt eventsource.DomainEvent) State {
	e, ok := evt.(TimeTakenEvent)
	if !ok {
		return s
	}
	names := make([]string, len(s.Names), len(s.Names)+1)
	copy(names, s.Names)
	names = append(names, e.Name)
	return State{Names: names}
}

func (s State) TryCommand(cmd eventsource.Command) ([]eventsource.DomainEvent, error) {
	c, ok := cmd.(TakeTimeCommand)
	if !ok {
		return nil, fmt.Errorf("dice: unknown command %T", cmd)
	}
	if c.Millis > 0 {
		time.Sleep(time.Duration(c.Millis) * time.Millisecond)
	}
	return []eventsource.DomainEvent{TimeTakenEvent{Name: c.Name}}, nil
}

// Codec bridges dice's commands/events and JSON payload bytes.
type Codec struct{}

func (Codec) EncodeEvent(evt eventsource.DomainEvent) ([]byte, error) {
	return json.Marshal(evt)
}

func (Codec) EncodeCommand(cmd eventsource.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func (Codec) DecodeEvent(typeName string, payload []byte) (eventsource.DomainEvent, error) {
	if typeName != eventsource.EventName(Prefix, TimeTakenEvent{}) {
		return nil, fmt.Errorf("dice: unknown event type %q", typeName)
	}
	var e TimeTakenEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}
