package eventsource

import (
	"testing"

	"github.com/google/uuid"
)

func TestModelKeyFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		family string
	}{
		{name: "simple family", family: "Poke"},
		{name: "family with hyphen", family: "user-profile"},
		{name: "family with dot", family: "user.profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewModelKeyV4(tt.family)

			formatted := key.Format()
			parsed, err := ParseModelKey(formatted)
			if err != nil {
				t.Fatalf("ParseModelKey(%q) returned error: %v", formatted, err)
			}
			if parsed.Family() != key.Family() {
				t.Errorf("family mismatch: got %q, want %q", parsed.Family(), key.Family())
			}
			if parsed.ID() != key.ID() {
				t.Errorf("id mismatch: got %v, want %v", parsed.ID(), key.ID())
			}
		})
	}
}

func TestModelKeyCanonicalizesFamily(t *testing.T) {
	key := NewModelKey("user-profile.v2", uuid.New())
	if key.Family() != "user_profile_v2" {
		t.Errorf("Family() = %q, want %q", key.Family(), "user_profile_v2")
	}
}

func TestNewModelKeyV8IsDeterministic(t *testing.T) {
	a := NewModelKeyV8("Order", "external-order-id", "ORD-123")
	b := NewModelKeyV8("Order", "external-order-id", "ORD-123")

	if a.Format() != b.Format() {
		t.Errorf("NewModelKeyV8 is not deterministic: %q != %q", a.Format(), b.Format())
	}

	c := NewModelKeyV8("Order", "external-order-id", "ORD-124")
	if a.Format() == c.Format() {
		t.Errorf("NewModelKeyV8 produced the same key for different external data")
	}
}

func TestNewModelKeyV8SetsVersionAndVariant(t *testing.T) {
	key := NewModelKeyV8("Order", "kind", "data")
	id := key.ID()

	if id.Version() != 8 {
		t.Errorf("uuid version = %d, want 8", id.Version())
	}
	if id.Variant() != uuid.RFC4122 {
		t.Errorf("uuid variant = %v, want RFC4122", id.Variant())
	}
}

func TestNewModelKeyV7IsTimeOrdered(t *testing.T) {
	a, err := NewModelKeyV7("Order")
	if err != nil {
		t.Fatalf("NewModelKeyV7 returned error: %v", err)
	}
	if a.ID().Version() != 7 {
		t.Errorf("uuid version = %d, want 7", a.ID().Version())
	}
}

func TestParseModelKeyRejectsMalformed(t *testing.T) {
	tests := []string{
		"no-separator-at-all-just-an-id",
		"family-not-a-uuid",
		"",
	}
	for _, s := range tests {
		if _, err := ParseModelKey(s); err == nil {
			t.Errorf("ParseModelKey(%q) should have failed", s)
		}
	}
}
