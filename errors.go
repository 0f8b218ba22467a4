package offheap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/offheap/internal/arena"
	"github.com/hupe1980/offheap/internal/directory"
	"github.com/hupe1980/offheap/resource"
)

var (
	// ErrNotInitialized is returned when the allocator has not been opened or
	// has already been closed.
	ErrNotInitialized = errors.New("offheap: allocator not initialized")

	// ErrOutOfMemory is matched by every *OutOfMemoryError.
	ErrOutOfMemory = errors.New("offheap: out of memory")

	// ErrDuplicateName is returned when a name is already in use.
	ErrDuplicateName = errors.New("offheap: duplicate name")

	// ErrNotFound is returned when a name does not resolve to a live object.
	ErrNotFound = errors.New("offheap: not found")

	// ErrOutOfBounds indicates an arena access past its capacity. It is not
	// reachable through the public API unless accounting is broken.
	ErrOutOfBounds = errors.New("offheap: arena access out of bounds")

	// ErrEmptyObject is returned when a value encodes to zero bytes.
	ErrEmptyObject = errors.New("offheap: object encodes to zero bytes")

	// ErrTypeMismatch is returned when a fetch target's type differs from the
	// type the object was stored with.
	ErrTypeMismatch = errors.New("offheap: type mismatch")

	// ErrInvalidTarget is returned when a fetch target is not a non-nil pointer.
	ErrInvalidTarget = errors.New("offheap: fetch target must be a non-nil pointer")

	// ErrInvalidCapacity is returned by Open for a non-positive capacity.
	ErrInvalidCapacity = errors.New("offheap: capacity must be positive")
)

// OutOfMemoryError reports an allocation that does not fit.
//
// Free is the accounted free space. An allocation can also fail with
// Free >= Requested when no contiguous run of that size exists.
type OutOfMemoryError struct {
	Requested uint64
	Free      uint64
}

func (e *OutOfMemoryError) Error() string {
	if e.Requested <= e.Free {
		return fmt.Sprintf("offheap: out of memory: needed %d contiguous bytes, %d free but fragmented", e.Requested, e.Free)
	}
	return fmt.Sprintf("offheap: out of memory: needed %d bytes, but has %d", e.Requested, e.Free)
}

// Is reports whether target is ErrOutOfMemory.
func (e *OutOfMemoryError) Is(target error) bool { return target == ErrOutOfMemory }

// TypeMismatchError carries both type tags of a failed fetch.
type TypeMismatchError struct {
	Name   string
	Stored string
	Target string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("offheap: type mismatch: %s holds %s, target is %s", e.Name, e.Stored, e.Target)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, directory.ErrDuplicateName):
		return fmt.Errorf("%w: %w", ErrDuplicateName, err)
	case errors.Is(err, directory.ErrZeroSize):
		return fmt.Errorf("%w: %w", ErrEmptyObject, err)
	case errors.Is(err, arena.ErrOutOfBounds):
		return fmt.Errorf("%w: %w", ErrOutOfBounds, err)
	case errors.Is(err, arena.ErrClosed):
		return fmt.Errorf("%w: %w", ErrNotInitialized, err)
	case errors.Is(err, arena.ErrInvalidCapacity):
		return fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	return err
}
