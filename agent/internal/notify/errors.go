package notify

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is wrapped when a channel's environment variables
// are unset.
var ErrMissingCredentials = errors.New("missing credentials")

// DeliveryError reports a failed delivery to one channel.
type DeliveryError struct {
	Channel string
	// Status is the HTTP status code returned by the endpoint, or 0 when no
	// response was received.
	Status int
	// Body is the start of the endpoint's error response, if any.
	Body string
	Err  error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("notify %s: endpoint returned HTTP %d: %s", e.Channel, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("notify %s: endpoint returned HTTP %d", e.Channel, e.Status)
	default:
		return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }
