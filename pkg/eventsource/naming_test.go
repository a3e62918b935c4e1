package eventsource

import "testing"

type fakeAddCommand struct{}

func (fakeAddCommand) CommandVariant() string { return "Add" }

type fakeHTTPErrorEvent struct{}

func (fakeHTTPErrorEvent) EventVariant() string { return "HTTPError" }

type fakeSomeOtherVariantEvent struct{}

func (fakeSomeOtherVariantEvent) EventVariant() string { return "SomeOtherVariant" }

func TestCommandName(t *testing.T) {
	got := CommandName("Poke", fakeAddCommand{})
	want := "Poke.CMD.Add"
	if got != want {
		t.Errorf("CommandName() = %q, want %q", got, want)
	}
}

func TestEventNameSnakeCases(t *testing.T) {
	tests := []struct {
		name string
		evt  DomainEvent
		want string
	}{
		{name: "simple variant", evt: fakeSomeOtherVariantEvent{}, want: "Poke.evt.some_other_variant"},
		{name: "acronym is a single word", evt: fakeHTTPErrorEvent{}, want: "Poke.evt.http_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventName("Poke", tt.evt)
			if got != tt.want {
				t.Errorf("EventName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Added":            "added",
		"SomeOtherVariant": "some_other_variant",
		"HTTPError":        "http_error",
		"CirclePlayed":     "circle_played",
		"A":                "a",
		"":                 "",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

// compositeEvent exercises the naming-delegation rule (§4.1): a composite
// event enum's EventVariant forwards entirely to the inner event.
type compositeEvent struct{ inner DomainEvent }

func (c compositeEvent) EventVariant() string { return c.inner.EventVariant() }

func TestCompositeEventDelegatesNaming(t *testing.T) {
	composite := compositeEvent{inner: fakeSomeOtherVariantEvent{}}
	got := EventName("Game", composite)
	want := "Game.evt.some_other_variant"
	if got != want {
		t.Errorf("EventName() on composite = %q, want %q", got, want)
	}
}
