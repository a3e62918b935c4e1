package eventsource

import (
	"context"
	"log"
)

// base holds the machinery shared by DtoRepository and StateRepository:
// the reconstruction algorithm (§4.5) and the projection/cache-sync loop
// (§4.7). Two roles, one machinery — generalized over the domain model S
// the way design note 9 recommends: an interface with the capabilities the
// repository needs (PlayEvent, and for the write role, TryCommand), plus a
// prefix and default-construction supplied at wiring time rather than
// demanded as methods on S.
type base[S Projector[S]] struct {
	store      Store
	cache      Cache
	prefix     string
	codec      EventCodec
	newDefault func() S
}

// GetModel reconstructs an entity's current model by fusing the cached
// snapshot with a tail replay from the event store (§4.5). Reads never
// write back to the cache — only CacheDTO does (§3 ownership rule).
func (b *base[S]) GetModel(ctx context.Context, key ModelKey) (Snapshot[S], error) {
	return b.reconstruct(ctx, key)
}

func (b *base[S]) reconstruct(ctx context.Context, key ModelKey) (Snapshot[S], error) {
	snap, err := b.loadCachedSnapshot(ctx, key)
	if err != nil {
		return Snapshot[S]{}, err
	}

	from := nextFromPosition(snap.Position)
	it, err := b.store.ReadStream(ctx, EntityStream(key), from)
	if err != nil {
		return Snapshot[S]{}, newEventStoreFailed("GetModel", err)
	}
	defer it.Close()

	if err := b.replayInto(ctx, it, &snap); err != nil {
		return Snapshot[S]{}, err
	}
	return snap, nil
}

// replayInto drains it, applying every record to snap in order.
func (b *base[S]) replayInto(ctx context.Context, it RecordIterator, snap *Snapshot[S]) error {
	for {
		rec, err := it.Next(ctx)
		if err != nil {
			return newEventStoreFailed("GetModel", err)
		}
		if rec == nil {
			return nil
		}
		if err := b.applyRecord(snap, *rec); err != nil {
			return err
		}
	}
}

func (b *base[S]) loadCachedSnapshot(ctx context.Context, key ModelKey) (Snapshot[S], error) {
	blob, found, err := b.cache.Get(ctx, key)
	if err != nil {
		return Snapshot[S]{}, newCacheFailed("GetModel", err)
	}
	if !found {
		return Snapshot[S]{Position: nil, Model: b.newDefault()}, nil
	}
	return decodeSnapshot[S](blob)
}

// applyRecord plays a single record into snap in place, per §4.5 step 4:
// events are applied via PlayEvent, commands are skipped (never replayed
// into state), and the position always advances to the record's revision.
func (b *base[S]) applyRecord(snap *Snapshot[S], rec PersistentRecord) error {
	isEvent, err := isEventRecord(rec.Metadata)
	if err != nil {
		return err
	}
	if isEvent {
		evt, err := b.codec.DecodeEvent(rec.TypeName, rec.Payload)
		if err != nil {
			return newSerializationFailed("GetModel", err)
		}
		snap.Model = snap.Model.PlayEvent(evt)
	}
	rev := rec.Revision
	snap.Position = &rev
	return nil
}

func (b *base[S]) persistSnapshot(ctx context.Context, key ModelKey, snap Snapshot[S]) error {
	blob, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := b.cache.Set(ctx, key, blob); err != nil {
		return newCacheFailed("CacheDTO", err)
	}
	return nil
}

// ordering classifies a delivered record's revision against the cache's
// current position, per §4.7.c.
type ordering int

const (
	orderingLess ordering = iota
	orderingEqual
	orderingGreater
)

func compareOrdering(pos *uint64, revision uint64) ordering {
	if revision == 0 {
		if pos != nil {
			return orderingGreater
		}
		return orderingEqual
	}
	if pos == nil {
		return orderingLess
	}
	switch {
	case *pos < revision-1:
		return orderingLess
	case *pos == revision-1:
		return orderingEqual
	default:
		return orderingGreater
	}
}

// CacheDTO runs the projection/cache-sync loop (§4.7): it ensures a
// persistent subscription exists on stream under group, then consumes it
// with ack-before-next discipline, advancing the cached snapshot for every
// entity whose records arrive. It loops indefinitely, returning on the first
// store, cache, decoding or stream-id error, or when ctx is cancelled or the
// delivery channel is closed.
func (b *base[S]) CacheDTO(ctx context.Context, stream Stream, group string) error {
	if err := b.store.CreatePersistentSubscription(ctx, stream, group); err != nil && !IsResourceAlreadyExists(err) {
		return newEventStoreFailed("CacheDTO", err)
	}

	deliveries, err := b.store.SubscribePersistent(ctx, stream, group)
	if err != nil {
		return newEventStoreFailed("CacheDTO", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := b.handleDelivery(ctx, delivery); err != nil {
				return err
			}
			if err := delivery.Ack(ctx); err != nil {
				return newEventStoreFailed("CacheDTO", err)
			}
		}
	}
}

// handleDelivery dispatches one delivered record per §4.7.d. Any error it
// returns (a stream id that does not parse surfaces as IdentityMalformed)
// makes CacheDTO exit without acking the record; every path that returns
// nil is acked, including the Greater (stale/duplicate) case.
func (b *base[S]) handleDelivery(ctx context.Context, d Delivery) error {
	key, err := ParseModelKey(d.StreamID)
	if err != nil {
		return newIdentityMalformed("CacheDTO", err)
	}

	snap, err := b.loadCachedSnapshot(ctx, key)
	if err != nil {
		return err
	}

	switch compareOrdering(snap.Position, d.Record.Revision) {
	case orderingEqual:
		if err := b.applyRecord(&snap, d.Record); err != nil {
			return err
		}
		return b.persistSnapshot(ctx, key, snap)

	case orderingLess:
		from := nextFromPosition(snap.Position)
		it, err := b.store.ReadStream(ctx, EntityStream(key), from)
		if err != nil {
			return newEventStoreFailed("CacheDTO", err)
		}
		defer it.Close()
		if err := b.replayInto(ctx, it, &snap); err != nil {
			return err
		}
		return b.persistSnapshot(ctx, key, snap)

	default: // orderingGreater
		log.Printf("eventsource: cache_dto received stale record for %s at revision %d (cache already at %v)",
			key.Format(), d.Record.Revision, snap.Position)
		return nil
	}
}

// DtoRepository provides read-only materialization of a read-model D
// (a DTO), kept in sync by CacheDTO.
type DtoRepository[D Projector[D]] struct {
	base[D]
}

// NewDtoRepository wires a DtoRepository for read-model D, with the given
// stable wire-name prefix, event codec, and default-state factory.
func NewDtoRepository[D Projector[D]](store Store, cache Cache, prefix string, codec EventCodec, newDefault func() D) *DtoRepository[D] {
	return &DtoRepository[D]{base[D]{
		store:      store,
		cache:      cache,
		prefix:     prefix,
		codec:      codec,
		newDefault: newDefault,
	}}
}

// StateRepository is the command handler for a write-model S: it computes
// the events a command produces, appends them with optimistic concurrency
// and a causally linked envelope chain, and retries transparently on
// conflict (§4.6).
type StateRepository[S Aggregate[S]] struct {
	base[S]
	cmdCodec CommandCodec
}

// NewStateRepository wires a StateRepository for write-model S.
func NewStateRepository[S Aggregate[S]](store Store, cache Cache, prefix string, codec EventCodec, cmdCodec CommandCodec, newDefault func() S) *StateRepository[S] {
	return &StateRepository[S]{
		base: base[S]{
			store:      store,
			cache:      cache,
			prefix:     prefix,
			codec:      codec,
			newDefault: newDefault,
		},
		cmdCodec: cmdCodec,
	}
}

// AddCommand reconstructs the current state, asks it to decide the command,
// and appends the resulting batch under an expected-revision guard, per
// §4.6. On a version conflict it retries unboundedly (§5 "Timeouts /
// retries"); a domain rejection is terminal and is surfaced as a
// DomainRejectedError wrapping the domain's own error. parent, when
// non-nil, is the causal envelope of the command/event that triggered this
// one; the new batch inherits its correlation id (§4.4).
func (r *StateRepository[S]) AddCommand(ctx context.Context, key ModelKey, cmd Command, parent *Envelope) (S, error) {
	var zero S
	for {
		snap, err := r.reconstruct(ctx, key)
		if err != nil {
			return zero, err
		}

		events, err := snap.Model.TryCommand(cmd)
		if err != nil {
			return zero, newDomainRejected("AddCommand", err)
		}

		expected := NoStream()
		if snap.Position != nil {
			expected = Exact(*snap.Position)
		}

		records, err := r.buildBatch(cmd, events, parent)
		if err != nil {
			return zero, err
		}

		if _, err := r.store.Append(ctx, EntityStream(key), expected, records); err != nil {
			if IsConcurrencyConflict(err) {
				continue
			}
			return zero, newEventStoreFailed("AddCommand", err)
		}

		result := snap.Model
		for _, evt := range events {
			result = result.PlayEvent(evt)
		}
		return result, nil
	}
}

// buildBatch materializes the causally linked record batch for one
// command and the events it produced (§3 invariant 3 and 4): the command
// envelope comes first with is_event=false, followed by one event
// envelope per event, each linked to its predecessor.
func (r *StateRepository[S]) buildBatch(cmd Command, events []DomainEvent, parent *Envelope) ([]RecordToAppend, error) {
	cmdPayload, err := r.cmdCodec.EncodeCommand(cmd)
	if err != nil {
		return nil, newSerializationFailed("AddCommand", err)
	}

	cmdEnvelope := EnvelopeFromCommand(parent)
	records := make([]RecordToAppend, 0, len(events)+1)
	records = append(records, RecordToAppend{
		TypeName: CommandName(r.prefix, cmd),
		Payload:  cmdPayload,
		Envelope: cmdEnvelope,
	})

	prev := cmdEnvelope
	for _, evt := range events {
		payload, err := r.codec.EncodeEvent(evt)
		if err != nil {
			return nil, newSerializationFailed("AddCommand", err)
		}
		evtEnvelope := EnvelopeFromEvent(prev)
		records = append(records, RecordToAppend{
			TypeName: EventName(r.prefix, evt),
			Payload:  payload,
			Envelope: evtEnvelope,
		})
		prev = evtEnvelope
	}
	return records, nil
}
