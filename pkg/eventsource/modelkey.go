package eventsource

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ModelKey identifies one entity: a stream family name plus a UUID. It
// formats to the canonical stream name the EventStore uses for that entity.
//
// Construction canonicalizes the family: hyphens and dots are replaced with
// underscores so the family never collides with the "-" separator used in
// the formatted form.
type ModelKey struct {
	family string
	id     uuid.UUID
}

// NewModelKey builds a ModelKey from a family name and an existing UUID.
func NewModelKey(family string, id uuid.UUID) ModelKey {
	return ModelKey{family: canonicalizeFamily(family), id: id}
}

// NewModelKeyV4 builds a ModelKey with a fresh random (v4) UUID.
func NewModelKeyV4(family string) ModelKey {
	return NewModelKey(family, uuid.New())
}

// NewModelKeyV7 builds a ModelKey with a fresh time-ordered (v7) UUID.
func NewModelKeyV7(family string) (ModelKey, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return ModelKey{}, fmt.Errorf("eventsource: generate uuid v7: %w", err)
	}
	return NewModelKey(family, id), nil
}

// NewModelKeyV8 builds a deterministic ModelKey from a namespace ("kind")
// and external data: the UUID is SHA-1(kind || externalData), truncated to
// 16 bytes, with the version (8) and variant bits set per RFC 9562 so the
// result is a well-formed UUID while remaining a pure function of its
// inputs. Same inputs always produce the same key.
func NewModelKeyV8(family, kind, externalData string) ModelKey {
	h := sha1.New()
	h.Write([]byte(kind))
	h.Write([]byte(externalData))
	sum := h.Sum(nil)

	var raw [16]byte
	copy(raw[:], sum[:16])

	// Version 8: top nibble of byte 6 is 1000.
	raw[6] = (raw[6] & 0x0F) | 0x80
	// Variant: top two bits of byte 8 are 10.
	raw[8] = (raw[8] & 0x3F) | 0x80

	id, err := uuid.FromBytes(raw[:])
	if err != nil {
		// raw is always exactly 16 bytes; FromBytes cannot fail here.
		panic(fmt.Sprintf("eventsource: impossible uuid v8 construction: %v", err))
	}
	return NewModelKey(family, id)
}

func canonicalizeFamily(family string) string {
	family = strings.ReplaceAll(family, "-", "_")
	family = strings.ReplaceAll(family, ".", "_")
	return family
}

// Family returns the (already canonicalized) family name.
func (k ModelKey) Family() string { return k.family }

// ID returns the entity's UUID.
func (k ModelKey) ID() uuid.UUID { return k.id }

// Format returns the canonical stream name: "<family>-<uuid>".
func (k ModelKey) Format() string {
	return k.family + "-" + k.id.String()
}

// String implements fmt.Stringer as Format.
func (k ModelKey) String() string { return k.Format() }

// ParseModelKey reverses Format: the prefix before the first "-" is the
// family, everything after is parsed as a UUID.
func ParseModelKey(s string) (ModelKey, error) {
	idx := strings.Index(s, "-")
	if idx < 0 {
		return ModelKey{}, newIdentityMalformed("ParseModelKey", fmt.Errorf("missing '-' separator in %q", s))
	}
	family := s[:idx]
	idPart := s[idx+1:]
	id, err := uuid.Parse(idPart)
	if err != nil {
		return ModelKey{}, newIdentityMalformed("ParseModelKey", fmt.Errorf("bad uuid %q: %w", idPart, err))
	}
	return ModelKey{family: family, id: id}, nil
}
