package eventsource

import "fmt"

// Stream describes which logical stream a reader or subscriber targets.
// Exactly one of its constructors should be used; the zero value is not a
// valid Stream.
type Stream struct {
	kind        streamKind
	entity      ModelKey
	family      string
	eventType   string
	correlation string
}

type streamKind int

const (
	streamEntity streamKind = iota
	streamCategory
	streamEventType
	streamCorrelation
)

// EntityStream targets a single entity's own stream.
func EntityStream(key ModelKey) Stream {
	return Stream{kind: streamEntity, entity: key}
}

// CategoryStream targets the server-synthesized fan-in over every entity
// sharing a family prefix.
func CategoryStream(family string) Stream {
	return Stream{kind: streamCategory, family: canonicalizeFamily(family)}
}

// EventTypeStream targets the server-synthesized fan-in over every record
// of a given type name.
func EventTypeStream(typeName string) Stream {
	return Stream{kind: streamEventType, eventType: typeName}
}

// CorrelationStream targets the fan-out of every record sharing a
// correlation id.
func CorrelationStream(correlationID string) Stream {
	return Stream{kind: streamCorrelation, correlation: correlationID}
}

// Name renders the Stream to the name the EventStore sees, per §4.3:
// Entity -> key.Format(); Category -> "$ce-<family>"; EventType -> "$et-<name>";
// Correlation -> "bc-<uuid>". These prefixes assume an EventStore that
// synthesizes category and event-type fan-out streams, as documented on
// the Store interface.
func (s Stream) Name() string {
	switch s.kind {
	case streamEntity:
		return s.entity.Format()
	case streamCategory:
		return "$ce-" + s.family
	case streamEventType:
		return "$et-" + s.eventType
	case streamCorrelation:
		return "bc-" + s.correlation
	default:
		panic(fmt.Sprintf("eventsource: invalid stream descriptor %#v", s))
	}
}

// IsEntity reports whether the Stream targets a single entity, returning
// that entity's ModelKey when it does.
func (s Stream) IsEntity() (ModelKey, bool) {
	return s.entity, s.kind == streamEntity
}

// IsCategory reports whether the Stream is a category (family) fan-in.
func (s Stream) IsCategory() bool { return s.kind == streamCategory }

// IsEventType reports whether the Stream is an event-type fan-in.
func (s Stream) IsEventType() bool { return s.kind == streamEventType }

// IsCorrelation reports whether the Stream is a correlation fan-out.
func (s Stream) IsCorrelation() bool { return s.kind == streamCorrelation }

// FilterValue returns the family, type name, or correlation id a
// non-entity Stream filters on, for adapters that translate Stream into a
// storage-specific query. It returns false for an entity Stream.
func (s Stream) FilterValue() (string, bool) {
	switch s.kind {
	case streamCategory:
		return s.family, true
	case streamEventType:
		return s.eventType, true
	case streamCorrelation:
		return s.correlation, true
	default:
		return "", false
	}
}
