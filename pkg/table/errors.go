package table

import (
	"errors"
	"fmt"
)

var (
	ErrNoColumns = errors.New("table: no columns")
	ErrBadLimit  = errors.New("table: limit must be positive")
	ErrNoSurface = errors.New("table: surface is required")
	ErrNoFetch   = errors.New("table: fetch function is required")
	ErrBusy      = errors.New("table: fetch in flight")
	ErrNotCached = errors.New("table: page not cached")
)

// Detailer is implemented by transport errors that carry a secondary
// description next to their message.
type Detailer interface {
	Detail() string
}

// FetchError reports a failed page fetch. The engine keeps its last-good
// cursor, cache and rows when one is returned.
type FetchError struct {
	Page    int
	Message string
	Detail  string
	Err     error
}

func newFetchError(page int, err error) *FetchError {
	fe := &FetchError{Page: page, Message: err.Error(), Err: err}
	var d Detailer
	if errors.As(err, &d) {
		fe.Detail = d.Detail()
	}
	return fe
}

func (e *FetchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("table: fetch page %d: %s (%s)", e.Page, e.Message, e.Detail)
	}
	return fmt.Sprintf("table: fetch page %d: %s", e.Page, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransformError reports a column rule failure. Rows are never rendered with
// a partially applied transform.
type TransformError struct {
	Column   string
	RecordID int
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("table: transform %q for record %d: %v", e.Column, e.RecordID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
