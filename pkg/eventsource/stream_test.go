package eventsource

import (
	"testing"

	"github.com/google/uuid"
)

func TestStreamNames(t *testing.T) {
	key := NewModelKey("Poke", uuid.New())

	tests := []struct {
		name   string
		stream Stream
		want   string
	}{
		{name: "entity", stream: EntityStream(key), want: key.Format()},
		{name: "category", stream: CategoryStream("Poke"), want: "$ce-Poke"},
		{name: "category canonicalizes family", stream: CategoryStream("user-profile"), want: "$ce-user_profile"},
		{name: "event type", stream: EventTypeStream("Poke.evt.added"), want: "$et-Poke.evt.added"},
		{name: "correlation", stream: CorrelationStream("abc-123"), want: "bc-abc-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stream.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamIsEntity(t *testing.T) {
	key := NewModelKey("Poke", uuid.New())
	entity := EntityStream(key)

	got, ok := entity.IsEntity()
	if !ok {
		t.Fatal("IsEntity() should be true for an entity stream")
	}
	if got.Format() != key.Format() {
		t.Errorf("IsEntity() returned %v, want %v", got, key)
	}

	if _, ok := CategoryStream("Poke").IsEntity(); ok {
		t.Error("IsEntity() should be false for a category stream")
	}
}

func TestStreamFilterValue(t *testing.T) {
	if _, ok := EntityStream(NewModelKeyV4("Poke")).FilterValue(); ok {
		t.Error("FilterValue() should be false for an entity stream")
	}

	val, ok := CategoryStream("Poke").FilterValue()
	if !ok || val != "Poke" {
		t.Errorf("FilterValue() on category = (%q, %v), want (%q, true)", val, ok, "Poke")
	}

	val, ok = EventTypeStream("Poke.evt.added").FilterValue()
	if !ok || val != "Poke.evt.added" {
		t.Errorf("FilterValue() on event type = (%q, %v)", val, ok)
	}

	val, ok = CorrelationStream("xyz").FilterValue()
	if !ok || val != "xyz" {
		t.Errorf("FilterValue() on correlation = (%q, %v)", val, ok)
	}
}
