package report

import "errors"

// ErrMalformedInput is the sentinel fatal error for any CSV parsing
// failure: wrong column count, an unparseable number, an unrecognized
// enum value. Per spec.md §7 this aborts the run; it is always wrapped
// with more detail via fmt.Errorf's %w.
var ErrMalformedInput = errors.New("malformed input")
