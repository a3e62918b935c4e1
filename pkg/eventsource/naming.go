package eventsource

import (
	"strings"
	"unicode"
)

// Command is a domain-defined intent against a state. CommandVariant
// returns the variant's tag in its declared casing (e.g. "Add"); it is
// combined with a state's prefix to build the stable wire name.
type Command interface {
	CommandVariant() string
}

// DomainEvent is a domain-defined immutable fact. EventVariant returns the
// variant's tag in pascal case (e.g. "SomeOtherVariant"); it is
// snake_cased and combined with a state's prefix to build the stable wire
// name.
//
// A composite event enum (a tag over nested event enums) implements
// EventVariant by delegating to the inner event's EventVariant — its own
// outer variants contribute nothing to the wire name.
type DomainEvent interface {
	EventVariant() string
}

// CommandName returns the stable wire name "<prefix>.CMD.<Variant>" for a
// command issued against a state with the given prefix.
func CommandName(prefix string, cmd Command) string {
	return prefix + ".CMD." + cmd.CommandVariant()
}

// EventName returns the stable wire name "<prefix>.evt.<snake_variant>" for
// an event emitted by a state with the given prefix.
func EventName(prefix string, evt DomainEvent) string {
	return prefix + ".evt." + snakeCase(evt.EventVariant())
}

// snakeCase converts a PascalCase/camelCase identifier to snake_case, the
// standard conversion used for event variant names. Consecutive capitals
// (e.g. an acronym) are treated as a single word boundary with the
// preceding word, so "HTTPError" becomes "http_error", not "h_t_t_p_error".
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			isFirst := i == 0
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !isFirst && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
