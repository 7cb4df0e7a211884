package conversation

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage rejects blank input before any routing happens.
var ErrEmptyMessage = errors.New("conversation: message is required")

// UpstreamError marks a language-model failure. It is the only adapter
// failure that reaches the host; geocoding, places and search misses are
// answered conversationally instead.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("conversation: %s failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
