package eventsource

import (
	"errors"
	"testing"
)

func TestIsConcurrencyConflict(t *testing.T) {
	t.Run("detects ConcurrencyConflictError", func(t *testing.T) {
		rev := uint64(3)
		err := NewConcurrencyConflict("Append", Exact(2), &rev)
		if !IsConcurrencyConflict(err) {
			t.Error("IsConcurrencyConflict should return true for ConcurrencyConflictError")
		}
	})

	t.Run("returns false for unrelated error", func(t *testing.T) {
		if IsConcurrencyConflict(errors.New("boom")) {
			t.Error("IsConcurrencyConflict should return false for a plain error")
		}
	})
}

func TestIsDomainRejectedAndAs(t *testing.T) {
	inner := errors.New("counter cannot go negative")
	err := WrapDomainRejected("TryCommand", inner)

	if !IsDomainRejected(err) {
		t.Error("IsDomainRejected should return true for DomainRejectedError")
	}

	rejected, ok := AsDomainRejected(err)
	if !ok {
		t.Fatal("AsDomainRejected should succeed for DomainRejectedError")
	}
	if !errors.Is(rejected.Err, inner) {
		t.Error("AsDomainRejected should preserve the wrapped cause")
	}
}

func TestIsEventStoreFailed(t *testing.T) {
	err := WrapEventStoreFailed("Append", errors.New("connection reset"))
	if !IsEventStoreFailed(err) {
		t.Error("IsEventStoreFailed should return true for EventStoreFailedError")
	}
	if IsEventStoreFailed(errors.New("unrelated")) {
		t.Error("IsEventStoreFailed should return false for a plain error")
	}
}

func TestIsCacheFailed(t *testing.T) {
	err := WrapCacheFailed("Get", errors.New("redis down"))
	if !IsCacheFailed(err) {
		t.Error("IsCacheFailed should return true for CacheFailedError")
	}
}

func TestIsResourceAlreadyExists(t *testing.T) {
	wrapped := errors.New("wrap: " + ErrResourceAlreadyExists.Error())
	if IsResourceAlreadyExists(wrapped) {
		t.Error("IsResourceAlreadyExists should not match a string-alike error, only errors.Is chains")
	}
	if !IsResourceAlreadyExists(ErrResourceAlreadyExists) {
		t.Error("IsResourceAlreadyExists should return true for the sentinel itself")
	}
	if !IsResourceAlreadyExists(errWrap(ErrResourceAlreadyExists)) {
		t.Error("IsResourceAlreadyExists should see through an errors.Join wrap")
	}
}

func errWrap(err error) error {
	return errors.Join(err)
}

func TestEventSourceErrorStringsAndUnwrap(t *testing.T) {
	inner := errors.New("bad payload")
	err := EventSourceError{Op: "DecodeEvent", Err: inner}

	if err.Error() != "DecodeEvent: bad payload" {
		t.Errorf("Error() = %q, want %q", err.Error(), "DecodeEvent: bad payload")
	}
	if err.Unwrap() != inner {
		t.Error("Unwrap() should return the wrapped cause")
	}

	bare := EventSourceError{Op: "DecodeEvent"}
	if bare.Error() != "DecodeEvent" {
		t.Errorf("Error() with no cause = %q, want %q", bare.Error(), "DecodeEvent")
	}
}
