package provider

import "errors"

var (
	// ErrNotConfigured is returned by the factory when a backend lacks its
	// credentials, before any request is made.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrMalformedPayload means the backend answered with neither text nor
	// tool calls, or with tool arguments that are not a JSON object.
	ErrMalformedPayload = errors.New("malformed provider payload")

	// ErrNoSession is returned by Continue on a stateful backend that has
	// no open session to continue.
	ErrNoSession = errors.New("no active provider session")
)
