// Package ami defines the control-channel contract the panel speaks against
// and the supervisor that keeps the link alive.
package ami

import "context"

// RawEvent is one parsed control-channel event: a name plus flat string
// fields. Field keys are lower-cased by the link implementation.
type RawEvent struct {
	Name   string
	Fields map[string]string
}

// Get returns the named field or "".
func (e RawEvent) Get(key string) string {
	return e.Fields[key]
}

// Action is one request submitted to the exchange. The link assigns the
// correlation id used to pair the response.
type Action struct {
	Name   string
	Fields map[string]string
}

// Response is the exchange's reply to an Action.
type Response struct {
	Success bool
	Message string
	Fields  map[string]string
}

// Link is a connected control-channel session. Events delivers parsed frames
// in arrival order until the link fails or is closed; Do submits an action
// and blocks until its correlated response arrives or ctx is done.
type Link interface {
	Events() <-chan RawEvent
	Do(ctx context.Context, a Action) (*Response, error)
	Close() error
	// Done is closed when the link is no longer usable. Err reports why.
	Done() <-chan struct{}
	Err() error
}

// Dialer establishes a fresh Link. The supervisor calls it on every
// (re)connect attempt.
type Dialer func(ctx context.Context) (Link, error)

// ActionSender is the subset of Link used by command handling. The supervisor
// implements it so that commands survive reconnects transparently.
type ActionSender interface {
	Do(ctx context.Context, a Action) (*Response, error)
}
