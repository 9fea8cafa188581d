package repository

import "errors"

// Sentinel kinds for snapshot errors.
var (
	// ErrUnavailable means no snapshot could be produced because the source
	// failed. It wraps the source error.
	ErrUnavailable = errors.New("dataset unavailable")
	// ErrStore is returned by stores that cannot read or write.
	ErrStore = errors.New("snapshot store error")
)
