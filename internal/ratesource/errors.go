package ratesource

import "fmt"

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// TransportError covers connection failures, timeouts and cancellation.
	TransportError ErrorKind = iota + 1
	// BadStatus is any non-200 response.
	BadStatus
	// MalformedPayload is a 200 response that does not carry both prices.
	MalformedPayload
)

func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "transport"
	case BadStatus:
		return "bad_status"
	case MalformedPayload:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

// FetchError is the classified failure carried by a failed FetchOutcome.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case BadStatus:
		return fmt.Sprintf("server error: code %d", e.StatusCode)
	case MalformedPayload:
		return fmt.Sprintf("malformed payload: %v", e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func transportErr(format string, err error) *FetchError {
	return &FetchError{Kind: TransportError, Err: fmt.Errorf(format, err)}
}

func malformedErr(format string, args ...any) *FetchError {
	return &FetchError{Kind: MalformedPayload, Err: fmt.Errorf(format, args...)}
}
