package eventsource

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope is the causal-genealogy wrapper attached to every persisted
// record (§4.4). It carries the record's own id, which the Store persists
// as the record id, plus the fields serialized into the record's metadata
// blob: correlation id, causation id, and whether the record is a command
// or an event.
type Envelope struct {
	id            uuid.UUID
	correlationID uuid.UUID
	causationID   uuid.UUID
	isEvent       bool
}

// ID returns the record's own id.
func (e Envelope) ID() uuid.UUID { return e.id }

// CorrelationID returns the id shared by every record descending from the
// same root command.
func (e Envelope) CorrelationID() uuid.UUID { return e.correlationID }

// CausationID returns the id of the record that immediately caused this one.
func (e Envelope) CausationID() uuid.UUID { return e.causationID }

// IsEvent reports whether the record is an event (true) or a command (false).
func (e Envelope) IsEvent() bool { return e.isEvent }

// EnvelopeFromCommand builds the first envelope of a batch, for a command.
// If parent is nil the record seeds its own correlation chain
// (correlation = causation = id). If parent is non-nil, the batch inherits
// the parent's correlation id, and this record's causation id is the
// parent's id — this is how a command issued in reaction to another
// command/event links back into the parent's genealogy.
func EnvelopeFromCommand(parent *Envelope) Envelope {
	id := uuid.New()
	if parent == nil {
		return Envelope{id: id, correlationID: id, causationID: id, isEvent: false}
	}
	return Envelope{id: id, correlationID: parent.correlationID, causationID: parent.id, isEvent: false}
}

// EnvelopeFromEvent builds an envelope for an event following prev (always
// present within a batch: either the command envelope or the previous
// event's envelope). correlation id is copied from prev; causation id is
// prev's id.
func EnvelopeFromEvent(prev Envelope) Envelope {
	id := uuid.New()
	return Envelope{id: id, correlationID: prev.correlationID, causationID: prev.id, isEvent: true}
}

// envelopeWire is the JSON shape persisted as a record's metadata blob.
// The envelope's own id is NOT re-serialized here: the Store keeps it as
// the record id, outside the metadata blob (§4.4).
type envelopeWire struct {
	CorrelationID string `json:"$correlationId"`
	CausationID   string `json:"$causationId"`
	IsEvent       bool   `json:"is_event"`
}

// MarshalMetadata serializes the envelope to the JSON metadata blob shape
// defined in §6.
func (e Envelope) MarshalMetadata() ([]byte, error) {
	b, err := json.Marshal(envelopeWire{
		CorrelationID: e.correlationID.String(),
		CausationID:   e.causationID.String(),
		IsEvent:       e.isEvent,
	})
	if err != nil {
		return nil, newSerializationFailed("Envelope.MarshalMetadata", err)
	}
	return b, nil
}

// isEventRecord reports whether a persisted record's metadata blob marks
// it as an event (true) or a command (false), without requiring its
// correlation/causation ids to parse as UUIDs. The reconstruction
// algorithm (§4.5) only needs this single bit to decide whether to replay
// a record.
func isEventRecord(metadata []byte) (bool, error) {
	var wire struct {
		IsEvent bool `json:"is_event"`
	}
	if err := json.Unmarshal(metadata, &wire); err != nil {
		return false, newSerializationFailed("isEventRecord", err)
	}
	return wire.IsEvent, nil
}

// UnmarshalEnvelope parses a persisted record's metadata blob and the
// store-assigned record id back into an Envelope.
func UnmarshalEnvelope(recordID uuid.UUID, metadata []byte) (Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(metadata, &wire); err != nil {
		return Envelope{}, newSerializationFailed("UnmarshalEnvelope", err)
	}
	correlationID, err := uuid.Parse(wire.CorrelationID)
	if err != nil {
		return Envelope{}, newSerializationFailed("UnmarshalEnvelope", err)
	}
	causationID, err := uuid.Parse(wire.CausationID)
	if err != nil {
		return Envelope{}, newSerializationFailed("UnmarshalEnvelope", err)
	}
	return Envelope{
		id:            recordID,
		correlationID: correlationID,
		causationID:   causationID,
		isEvent:       wire.IsEvent,
	}, nil
}
