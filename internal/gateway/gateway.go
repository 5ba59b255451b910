// Package gateway is the boundary to the language model used for requests
// the assistant cannot handle locally.
package gateway

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one line of the conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request is everything the model sees for one free form utterance.
type Request struct {
	// Turns are the most recent turns, oldest first, excluding Text.
	Turns []Turn
	Text  string
	// Profile is a short plain-text description of the user.
	Profile string
}

// Gateway answers free form requests. Implementations must honour ctx.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindNetwork     ErrorKind = "network"
	KindStatus      ErrorKind = "status"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
)

// Error is returned for every gateway failure. Callers recover with a fixed
// fallback reply.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("gateway %s: http %d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("gateway %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable is the gateway used when no model is configured.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, Request) (string, error) {
	return "", &Error{Kind: KindUnavailable}
}
