package httpclient

import "fmt"

// UpstreamError represents a non-2xx response from an upstream service.
// The raw body is preserved so callers can surface it in API errors.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// DecodeError marks a 2xx response whose body could not be decoded into
// the expected shape. Never retryable.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
