package model

import "errors"

var (
	// ErrValidation marks malformed input such as a blank customer name or service label.
	ErrValidation = errors.New("validation error")
	// ErrData marks a request or event naming a screen identity that is not configured.
	ErrData = errors.New("unknown screen")
	// ErrTransport marks a failed call to the system of record.
	ErrTransport = errors.New("transport error")
	// ErrUnauthorized is returned when the acting user may not change screens or the catalog.
	ErrUnauthorized = errors.New("not authorized")
)
