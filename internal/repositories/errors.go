package repositories

import "errors"

// ErrNotFound signals an absent exam or session. Callers distinguish it from
// storage failures via IsNotFoundError.
var ErrNotFound = errors.New("not found")

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
