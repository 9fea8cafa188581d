package service

import "errors"

var (
	// ErrUnknownPerson is returned when a name matches no PAX in the snapshot.
	ErrUnknownPerson = errors.New("unknown person")
	// ErrInvalidParam is returned for malformed query parameters.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrBusy is returned when the refresh queue is full.
	ErrBusy = errors.New("refresh queue full")
	// ErrNotStarted is returned by operations that need Start first.
	ErrNotStarted = errors.New("service not started")
)
