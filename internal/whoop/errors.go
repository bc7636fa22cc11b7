package whoop

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration indicates the provider client id, secret, or redirect URI is missing.
	ErrConfiguration = errors.New("whoop.configuration")
	// ErrNotConnected indicates no credential has been stored yet.
	ErrNotConnected = errors.New("whoop.not_connected")
	// ErrInvalidState indicates the callback state does not match the issued nonce.
	ErrInvalidState = errors.New("whoop.invalid_state")
	// ErrMissingCode indicates the callback carried no authorization code.
	ErrMissingCode = errors.New("whoop.missing_code")

	errUpstreamStatus = errors.New("whoop.upstream_status")
)

// FetchError describes a failed data fetch against the Whoop API.
type FetchError struct {
	Resource   string
	StatusCode int
	Body       any
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("whoop.fetch.%s: status %d: %v", e.Resource, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("whoop.fetch.%s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Payload returns the upstream response body when one was received, else the error text.
func (e *FetchError) Payload() any {
	if e.Body != nil {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return nil
}

// UpstreamUnavailableError reports that both the cycle and the sleep fetch failed.
type UpstreamUnavailableError struct {
	Cycles error
	Sleep  error
}

func (e *UpstreamUnavailableError) Error() string {
	parts := []string{"whoop.upstream_unavailable"}
	if e.Cycles != nil {
		parts = append(parts, "cycles: "+e.Cycles.Error())
	}
	if e.Sleep != nil {
		parts = append(parts, "sleep: "+e.Sleep.Error())
	}
	return strings.Join(parts, "; ")
}

// CyclesPayload returns the diagnostic payload of the cycle fetch failure.
func (e *UpstreamUnavailableError) CyclesPayload() any {
	return errorPayload(e.Cycles)
}

// SleepPayload returns the diagnostic payload of the sleep fetch failure.
func (e *UpstreamUnavailableError) SleepPayload() any {
	return errorPayload(e.Sleep)
}

func errorPayload(err error) any {
	if err == nil {
		return nil
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Payload()
	}
	return err.Error()
}
