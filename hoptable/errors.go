package hoptable

import "github.com/agilira/go-errors"

// ErrCodeCapacity marks an insert that could not place a key within
// ADD_RANGE of its home and could not displace a closer neighbor either.
// It is surfaced to the caller and never retried internally.
const ErrCodeCapacity errors.ErrorCode = "STM_CAPACITY"

func newCapacityError(key any, hopRange, addRange int) error {
	return errors.NewWithContext(ErrCodeCapacity, "no free slot within ADD_RANGE and no displacement possible", map[string]interface{}{
		"key":       key,
		"hop_range": hopRange,
		"add_range": addRange,
	})
}

// IsCapacity reports whether err is the capacity-exhaustion outcome of
// Insert.
func IsCapacity(err error) bool {
	return errors.HasCode(err, ErrCodeCapacity)
}
