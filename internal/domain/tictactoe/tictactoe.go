// Package tictactoe is an example write-model exercising a composite
// event enum: startedEvent/endedEvent (the "public" half) are wrapped in
// PublicEvent, the private per-move cellPlayedEvent is wrapped in
// PrivateEvent, and each arm's EventVariant delegates entirely to the inner
// event (§4.1 "composite event enum"). The arms differ only in wire type
// name: a category stream carries both, an event-type stream carries only
// the type it names.
package tictactoe

import (
	"encoding/json"
	"fmt"

	"go-eventsource/pkg/eventsource"
)

// Prefix is this state's stable wire-name prefix.
const Prefix = "TicTacToe"

// Mark is a player's symbol.
type Mark int

const (
	NoMark Mark = iota
	Circle
	Cross
)

// State is the 3x3 board plus the winner, once decided.
type State struct {
	Board  [9]Mark
	Winner Mark
	Next   Mark
}

// CreateCommand starts a fresh game.
type CreateCommand struct{}

func (CreateCommand) CommandVariant() string { return "Create" }

// PlayCommand places mark at position Pos (0-8).
type PlayCommand struct {
	Pos  int
	Mark Mark
}

func (PlayCommand) CommandVariant() string { return "Play" }

// CirclePlay and CrossPlay are convenience constructors matching the scenario
// vocabulary in spec.md §8 ("Circle(1); Cross(0); Circle(3)").
func CirclePlay(pos int) PlayCommand { return PlayCommand{Pos: pos, Mark: Circle} }
func CrossPlay(pos int) PlayCommand  { return PlayCommand{Pos: pos, Mark: Cross} }

// startedEvent and endedEvent are the public events, wrapped in PublicEvent.
type startedEvent struct{}

func (startedEvent) EventVariant() string { return "Started" }

type endedEvent struct {
	Winner Mark `json:"winner"`
}

func (endedEvent) EventVariant() string { return "Ended" }

// cellPlayedEvent is a private per-move event: part of the entity's own
// history, but not meant to carry meaning to an outside subscriber on its
// own (it needs full board context to interpret).
type cellPlayedEvent struct {
	Pos  int  `json:"pos"`
	Mark Mark `json:"mark"`
}

func (cellPlayedEvent) EventVariant() string { return "CellPlayed" }

// PublicEvent and PrivateEvent are the two composite arms: each wraps an
// inner DomainEvent and delegates naming to it entirely, per §4.1 — the
// composite's own Go type never appears in a wire name.
type PublicEvent struct{ Inner eventsource.DomainEvent }

func (p PublicEvent) EventVariant() string { return p.Inner.EventVariant() }

type PrivateEvent struct{ Inner eventsource.DomainEvent }

func (p PrivateEvent) EventVariant() string { return p.Inner.EventVariant() }

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func (s State) PlayEvent(evt eventsource.DomainEvent) State {
	switch e := evt.(type) {
	case PublicEvent:
		return s.PlayEvent(e.Inner)
	case PrivateEvent:
		return s.PlayEvent(e.Inner)
	case startedEvent:
		s.Next = Circle
		return s
	case cellPlayedEvent:
		s.Board[e.Pos] = e.Mark
		if e.Mark == Circle {
			s.Next = Cross
		} else {
			s.Next = Circle
		}
		return s
	case endedEvent:
		s.Winner = e.Winner
		return s
	default:
		return s
	}
}

func (s State) TryCommand(cmd eventsource.Command) ([]eventsource.DomainEvent, error) {
	switch c := cmd.(type) {
	case CreateCommand:
		return []eventsource.DomainEvent{PublicEvent{Inner: startedEvent{}}}, nil
	case PlayCommand:
		if s.Winner != NoMark {
			return nil, fmt.Errorf("tictactoe: game already won by %v", s.Winner)
		}
		if c.Pos < 0 || c.Pos > 8 || s.Board[c.Pos] != NoMark {
			return nil, fmt.Errorf("tictactoe: cell %d is not playable", c.Pos)
		}
		if s.Next != NoMark && s.Next != c.Mark {
			return nil, fmt.Errorf("tictactoe: it is not %v's turn", c.Mark)
		}

		events := []eventsource.DomainEvent{PrivateEvent{Inner: cellPlayedEvent{Pos: c.Pos, Mark: c.Mark}}}

		board := s.Board
		board[c.Pos] = c.Mark
		if winner := winnerOf(board); winner != NoMark {
			events = append(events, PublicEvent{Inner: endedEvent{Winner: winner}})
		}
		return events, nil
	default:
		return nil, fmt.Errorf("tictactoe: unknown command %T", cmd)
	}
}

func winnerOf(board [9]Mark) Mark {
	for _, line := range lines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != NoMark && a == b && b == c {
			return a
		}
	}
	return NoMark
}

// Codec bridges tictactoe's commands/events and JSON payload bytes. Wire
// type names are computed from the inner event, so decoding switches on
// the inner variant's name and re-wraps it in the matching composite arm.
type Codec struct{}

func (Codec) EncodeCommand(cmd eventsource.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func (Codec) EncodeEvent(evt eventsource.DomainEvent) ([]byte, error) {
	switch e := evt.(type) {
	case PublicEvent:
		return json.Marshal(e.Inner)
	case PrivateEvent:
		return json.Marshal(e.Inner)
	default:
		return json.Marshal(evt)
	}
}

func (Codec) DecodeEvent(typeName string, payload []byte) (eventsource.DomainEvent, error) {
	switch typeName {
	case eventsource.EventName(Prefix, startedEvent{}):
		return PublicEvent{Inner: startedEvent{}}, nil
	case eventsource.EventName(Prefix, endedEvent{}):
		var e endedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return PublicEvent{Inner: e}, nil
	case eventsource.EventName(Prefix, cellPlayedEvent{}):
		var e cellPlayedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return PrivateEvent{Inner: e}, nil
	default:
		return nil, fmt.Errorf("tictactoe: unknown event type %q", typeName)
	}
}
