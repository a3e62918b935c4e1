// Package memstore is an in-process fake of eventsource.Store and
// eventsource.Cache, used by pkg/eventsource's unit tests to exercise the
// repository core without a Postgres/Redis dependency. It is not a
// SPEC_FULL component in its own right — it stands in for the Postgres
// adapter the way the teacher's channel_eventstore.go stands in for a
// lighter-weight store during its own tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"go-eventsource/pkg/eventsource"
)

type storedRecord struct {
	id       uuid.UUID
	typeName string
	payload  []byte
	metadata []byte
	revision uint64
	streamID string // the entity stream this record belongs to
}

// Store is an in-memory eventsource.Store.
type Store struct {
	mu      sync.Mutex
	streams map[string][]storedRecord // entity stream name -> records
	all     []storedRecord            // global append order, for category/event-type fan-out (a correlation stream matches no records)
	subs    map[subKey]*subscription
	notify  chan struct{} // closed and replaced on every append
}

type subKey struct {
	stream string
	group  string
}

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{
		streams: make(map[string][]storedRecord),
		subs:    make(map[subKey]*subscription),
		notify:  make(chan struct{}),
	}
}

func (s *Store) ReadStream(ctx context.Context, stream eventsource.Stream, fromRevision uint64) (eventsource.RecordIterator, error) {
	s.mu.Lock()
	matching := s.matchLocked(stream)
	s.mu.Unlock()

	_, isEntity := stream.IsEntity()
	if !isEntity {
		return &iterator{records: matching}, nil
	}

	var filtered []storedRecord
	for _, r := range matching {
		if r.revision >= fromRevision {
			filtered = append(filtered, r)
		}
	}
	return &iterator{records: filtered}, nil
}

func (s *Store) matchLocked(stream eventsource.Stream) []storedRecord {
	if key, ok := stream.IsEntity(); ok {
		return append([]storedRecord(nil), s.streams[key.Format()]...)
	}
	name := stream.Name()
	var out []storedRecord
	for _, r := range s.all {
		if streamMatches(name, r) {
			out = append(out, r)
		}
	}
	return out
}

func streamMatches(name string, r storedRecord) bool {
	switch {
	case len(name) > 4 && name[:4] == "$ce-":
		family := name[4:]
		return streamFamily(r.streamID) == family
	case len(name) > 4 && name[:4] == "$et-":
		return r.typeName == name[4:]
	default:
		return false
	}
}

func streamFamily(entityStreamID string) string {
	for i := 0; i < len(entityStreamID); i++ {
		if entityStreamID[i] == '-' {
			return entityStreamID[:i]
		}
	}
	return entityStreamID
}

type iterator struct {
	records []storedRecord
	pos     int
}

func (it *iterator) Next(ctx context.Context) (*eventsource.PersistentRecord, error) {
	if it.pos >= len(it.records) {
		return nil, nil
	}
	r := it.records[it.pos]
	it.pos++
	return &eventsource.PersistentRecord{
		ID:       r.id.String(),
		TypeName: r.typeName,
		Payload:  r.payload,
		Revision: r.revision,
		Metadata: r.metadata,
	}, nil
}

func (it *iterator) Close() error { return nil }

func (s *Store) Append(ctx context.Context, stream eventsource.Stream, expected eventsource.ExpectedRevision, records []eventsource.RecordToAppend) (eventsource.AppendResult, error) {
	key, ok := stream.IsEntity()
	if !ok {
		return eventsource.AppendResult{}, eventsource.WrapEventStoreFailed("Append", fmt.Errorf("memstore: can only append to an entity stream"))
	}
	streamID := key.Format()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.streams[streamID]
	var current *uint64
	if len(existing) > 0 {
		rev := existing[len(existing)-1].revision
		current = &rev
	}

	if !expectedSatisfied(expected, current) {
		return eventsource.AppendResult{}, eventsource.NewConcurrencyConflict("Append", expected, current)
	}

	next := uint64(0)
	if current != nil {
		next = *current + 1
	}

	var last uint64
	for _, rec := range records {
		meta, err := rec.Envelope.MarshalMetadata()
		if err != nil {
			return eventsource.AppendResult{}, err
		}
		sr := storedRecord{
			id:       rec.Envelope.ID(),
			typeName: rec.TypeName,
			payload:  rec.Payload,
			metadata: meta,
			revision: next,
			streamID: streamID,
		}
		s.streams[streamID] = append(s.streams[streamID], sr)
		s.all = append(s.all, sr)
		last = next
		next++
	}

	close(s.notify)
	s.notify = make(chan struct{})

	return eventsource.AppendResult{LastRevision: last}, nil
}

func expectedSatisfied(expected eventsource.ExpectedRevision, current *uint64) bool {
	if expected.IsAny() {
		return true
	}
	if expected.IsNoStream() {
		return current == nil
	}
	exact, _ := expected.ExactValue()
	return current != nil && *current == exact
}

type subscription struct {
	mu       sync.Mutex
	cursor   int
	ch       chan eventsource.Delivery
	acked    chan struct{}
}

func (s *Store) CreatePersistentSubscription(ctx context.Context, stream eventsource.Stream, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey{stream: stream.Name(), group: group}
	if _, exists := s.subs[key]; exists {
		return eventsource.ErrResourceAlreadyExists
	}
	s.subs[key] = &subscription{
		ch:    make(chan eventsource.Delivery),
		acked: make(chan struct{}, 1),
	}
	return nil
}

func (s *Store) SubscribePersistent(ctx context.Context, stream eventsource.Stream, group string) (<-chan eventsource.Delivery, error) {
	s.mu.Lock()
	key := subKey{stream: stream.Name(), group: group}
	sub, ok := s.subs[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memstore: no subscription for %s/%s, call CreatePersistentSubscription first", key.stream, key.group)
	}

	go s.pump(ctx, stream, sub)
	return sub.ch, nil
}

// pump delivers matching records one at a time, waiting for an ack before
// sending the next — enforcing buffer size 1 the way §4.7.2/§6 requires.
func (s *Store) pump(ctx context.Context, stream eventsource.Stream, sub *subscription) {
	defer close(sub.ch)
	for {
		s.mu.Lock()
		matching := s.matchLocked(stream)
		notify := s.notify
		s.mu.Unlock()

		if sub.cursor < len(matching) {
			r := matching[sub.cursor]
			delivery := eventsource.Delivery{
				Record: eventsource.PersistentRecord{
					ID:       r.id.String(),
					TypeName: r.typeName,
					Payload:  r.payload,
					Revision: r.revision,
					Metadata: r.metadata,
				},
				StreamID: r.streamID,
				Ack: func(ctx context.Context) error {
					sub.acked <- struct{}{}
					return nil
				},
			}
			select {
			case sub.ch <- delivery:
			case <-ctx.Done():
				return
			}
			select {
			case <-sub.acked:
				sub.cursor++
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return
		}
	}
}

// Cache is an in-memory eventsource.Cache.
type Cache struct {
	mu   sync.Mutex
	blob map[string][]byte
}

// NewCache creates an empty in-memory Cache.
func NewCache() *Cache {
	return &Cache{blob: make(map[string][]byte)}
}

func (c *Cache) Get(ctx context.Context, key eventsource.ModelKey) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.blob[key.Format()]
	return b, ok, nil
}

func (c *Cache) Set(ctx context.Context, key eventsource.ModelKey, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blob[key.Format()] = blob
	return nil
}
