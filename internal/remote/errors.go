package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError reports a failed call to the API. StatusCode is zero when the
// request never got a response.
type FetchError struct {
	Resource   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("fetching %s: status %d: %s", e.Resource, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching %s: status %d", e.Resource, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s: %v", e.Resource, e.Err)
	}
	return "fetching " + e.Resource
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether the API rejected the session.
func IsUnauthorized(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsNotFound reports whether the API answered 404.
func IsNotFound(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode == http.StatusNotFound
	}
	return false
}

// UserMessage returns the message the API put in the error body, if any.
func UserMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return ""
}
