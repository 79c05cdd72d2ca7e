package thread

import "errors"

var (
	// ErrNotFound means the comment id is absent from the current data set.
	// Callers should treat it as stale data and re-fetch.
	ErrNotFound = errors.New("comment not found")
	// ErrInvalidTransition is returned for actions the moderation state forbids,
	// e.g. replying to a pending comment.
	ErrInvalidTransition = errors.New("invalid comment transition")
	// ErrConflict is returned when an expected version no longer matches.
	ErrConflict = errors.New("comment was modified concurrently")
	// ErrAlreadyLiked is returned by server-side like dedup.
	ErrAlreadyLiked = errors.New("comment already liked")
)

// PersistenceError wraps a storage or network failure of a gateway call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it already carries one of
// the domain sentinels.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyLiked) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
