// Package sentinel holds sentinel errors for infrastructure facts. Stores and
// infrastructure layers return these (optionally wrapped) so services can
// translate them into coded domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrNoChange: the write was a no-op because the value was already current
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domainerrors
// directly.
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrNoChange    = errors.New("no change")
	ErrUnavailable = errors.New("unavailable")
)
