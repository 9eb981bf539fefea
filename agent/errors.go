package agent

import "errors"

var (
	// ErrAgentNotConfigured is returned before any request when no webhook
	// URL is set.
	ErrAgentNotConfigured = errors.New("agent webhook URL not configured")

	// ErrAgentUnavailable is returned once every retry has failed. It never
	// wraps the last transport error so callers can show one fixed message.
	ErrAgentUnavailable = errors.New("agent unavailable after retries")

	// ErrAsyncWebhook means the webhook acknowledged the request with
	// "Accepted" instead of answering it. That is a webhook configuration
	// problem, so it is not retried.
	ErrAsyncWebhook = errors.New("agent webhook answered \"Accepted\": asynchronous webhooks are not supported, configure it to respond when the workflow finishes")

	// ErrMalformedResponse marks a body that is not a JSON object.
	ErrMalformedResponse = errors.New("malformed agent response")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so WithRetry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether retrying err is pointless. Context errors are
// not permanent here: an http.Client timeout matches context.DeadlineExceeded
// and is retried. Cancellation of the caller's context is checked by
// WithRetry itself.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) ||
		errors.Is(err, ErrAsyncWebhook) ||
		errors.Is(err, ErrAgentNotConfigured)
}

func unwrapPermanent(err error) error {
	if p, ok := err.(*permanentError); ok {
		return p.err
	}
	return err
}
