package eventsource

import (
	"context"
	"encoding/json"
)

// Cache is the read-through cache contract (§6 "Cache contract"). Blobs are
// opaque to the cache backend; the core is responsible for encoding and
// decoding them. Cache is written only by the projection loop
// (Repository.CacheDTO) — readers (DtoRepository.GetModel /
// StateRepository.AddCommand's internal reconstruction) never write back.
type Cache interface {
	// Get returns the raw blob stored for key, or (nil, false) on a miss.
	Get(ctx context.Context, key ModelKey) ([]byte, bool, error)
	// Set stores the raw blob for key, overwriting any previous value.
	Set(ctx context.Context, key ModelKey, blob []byte) error
}

// snapshotWire is the on-the-wire shape of a cached snapshot, per §6:
// {"position": <u64|null>, "model": <domain-json>}.
type snapshotWire struct {
	Position *uint64         `json:"position"`
	Model    json.RawMessage `json:"model"`
}

// encodeSnapshot serializes a Snapshot[M] to the cache wire shape.
func encodeSnapshot[M any](snap Snapshot[M]) ([]byte, error) {
	modelJSON, err := json.Marshal(snap.Model)
	if err != nil {
		return nil, newSerializationFailed("encodeSnapshot", err)
	}
	blob, err := json.Marshal(snapshotWire{Position: snap.Position, Model: modelJSON})
	if err != nil {
		return nil, newSerializationFailed("encodeSnapshot", err)
	}
	return blob, nil
}

// decodeSnapshot parses the cache wire shape back into a Snapshot[M].
func decodeSnapshot[M any](blob []byte) (Snapshot[M], error) {
	var wire snapshotWire
	if err := json.Unmarshal(blob, &wire); err != nil {
		return Snapshot[M]{}, newSerializationFailed("decodeSnapshot", err)
	}
	var model M
	if len(wire.Model) > 0 {
		if err := json.Unmarshal(wire.Model, &model); err != nil {
			return Snapshot[M]{}, newSerializationFailed("decodeSnapshot", err)
		}
	}
	return Snapshot[M]{Position: wire.Position, Model: model}, nil
}

// NoopCache is a Cache that never stores anything: every Get is a miss and
// every Set is silently discarded. Useful for tests and for write models
// that don't want a materialized-state cache.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key ModelKey) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(ctx context.Context, key ModelKey, blob []byte) error {
	return nil
}
