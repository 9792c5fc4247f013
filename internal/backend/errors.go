package backend

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is the single failure condition the client
// reports for chat, knowledge, and search calls. Transport errors and
// non-success HTTP statuses both collapse to it; callers never branch
// on anything finer.
var ErrBackendUnavailable = errors.New("backend unavailable")

// UnavailableError carries the operation and transport detail behind a
// backend failure. It unwraps to ErrBackendUnavailable so callers can
// match with errors.Is without knowing the concrete type.
type UnavailableError struct {
	Op         string // "chat", "knowledge", "search"
	HTTPStatus int    // 0 when the request never produced a response
	Err        error  // underlying transport or decode error, if any
}

func (e *UnavailableError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return ErrBackendUnavailable }

// IsUnavailable reports whether err is a collapsed backend failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
