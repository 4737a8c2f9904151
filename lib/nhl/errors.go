package nhl

import "fmt"

// RemoteFetchError reports a transport failure or non-2xx response from the
// stats API.
type RemoteFetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Endpoint, e.StatusCode)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }
