package provider

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks request problems detected before any network I/O.
var ErrConfiguration = errors.New("configuration error")

// ErrUnsupportedProvider indicates the provider key is not registered or lacks a custom endpoint.
var ErrUnsupportedProvider = fmt.Errorf("%w: unsupported provider", ErrConfiguration)

// ErrMissingAPIKey indicates a provider that requires authentication received an empty key.
var ErrMissingAPIKey = fmt.Errorf("%w: api key is required", ErrConfiguration)

// ErrMissingModel indicates the custom provider was used without a model id.
var ErrMissingModel = fmt.Errorf("%w: custom model is required", ErrConfiguration)

// ErrMalformedResponse indicates a vendor success body lacked the expected nesting.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrTransport matches every *TransportError.
var ErrTransport = errors.New("transport error")

// ErrUnsupportedOperation indicates the provider cannot fulfill the requested action.
var ErrUnsupportedOperation = errors.New("unsupported provider operation")

// FallbackErrorMessage is used when neither the vendor nor the transport explain a failure.
const FallbackErrorMessage = "failed to get response from AI service"

// TransportError is the single normalized failure of a grading or connection call.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

// Unwrap exposes ErrTransport and the underlying cause to errors.Is/As.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

var _ error = (*TransportError)(nil)
