package eventsource

import "context"

// RecordIterator streams PersistentRecords forward from a read. Next
// returns (nil, nil) once exhausted, mirroring the teacher's
// EventIterator.Next() contract of returning nil with no error at EOF.
type RecordIterator interface {
	Next(ctx context.Context) (*PersistentRecord, error)
	Close() error
}

// Delivery is one record handed to a persistent-subscription consumer.
// StreamID is the entity stream the record actually lives on — when the
// subscription targets a category, event-type, or correlation fan-out
// stream, this is the resolved link's target, never the synthetic stream
// name, so the consumer can always recover the owning ModelKey (§4.7.a).
// Ack must be called before the next Delivery is sent; the store
// implementation enforces buffer size 1 (§4.7.2, §6).
type Delivery struct {
	Record   PersistentRecord
	StreamID string
	Ack      func(ctx context.Context) error
}

// Store is the abstraction over the external append-only event log (§6).
// Implementations must be safe for concurrent use by many Repository
// instances.
type Store interface {
	// ReadStream returns a forward-reading iterator over stream starting at
	// fromRevision (inclusive).
	ReadStream(ctx context.Context, stream Stream, fromRevision uint64) (RecordIterator, error)

	// Append atomically persists records as one batch, guarded by expected.
	// On a revision mismatch it returns a ConcurrencyConflictError; no
	// record is made visible.
	Append(ctx context.Context, stream Stream, expected ExpectedRevision, records []RecordToAppend) (AppendResult, error)

	// CreatePersistentSubscription creates a durable, server-managed cursor
	// named group over stream. If that subscription already exists it is
	// left unchanged and ErrResourceAlreadyExists is returned (bare or
	// wrapped), which CacheDTO treats as non-fatal.
	CreatePersistentSubscription(ctx context.Context, stream Stream, group string) error

	// SubscribePersistent returns a channel of Deliveries for the
	// subscription identified by (stream, group). The channel is closed
	// when ctx is cancelled or the subscription ends unrecoverably.
	SubscribePersistent(ctx context.Context, stream Stream, group string) (<-chan Delivery, error)
}
