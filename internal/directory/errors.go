package directory

import "errors"

var (
	// ErrDuplicateName is returned when a live block already uses the name.
	ErrDuplicateName = errors.New("directory: block name already exists")

	// ErrNotFound is returned when a name does not resolve to a live block.
	ErrNotFound = errors.New("directory: block not found")

	// ErrZeroSize is returned when inserting an empty extent.
	ErrZeroSize = errors.New("directory: block size must be positive")

	// ErrAddressInUse is returned when a candidate lands on a tracked address.
	ErrAddressInUse = errors.New("directory: address already tracked")

	// ErrInvalidBlock is returned for root or deleted insert candidates.
	ErrInvalidBlock = errors.New("directory: invalid insert candidate")

	// ErrNoSpace is returned when no free run fits and the candidate would
	// end past the extent limit.
	ErrNoSpace = errors.New("directory: no space for block")

	// ErrCorrupt is returned by Verify when an invariant does not hold.
	ErrCorrupt = errors.New("directory: invariant violated")
)
