package actor

import (
	"context"

	"github.com/amp-labs/amp-fsm/channels"
)

// Message represents a message sent to an actor, containing a request and an optional response channel.
// If ResponseChan is nil, the message is fire-and-forget. If provided, the actor will send the
// response (or error) to this channel after processing.
type Message[Request, Response any] struct {
	// Request is the data to be processed by the actor.
	Request Request
	// ResponseChan is an optional channel for receiving the response.
	// If nil, no response is expected (fire-and-forget).
	ResponseChan chan Result[Response]
}

// Reply delivers a response and closes the response channel. It is a no-op
// for fire-and-forget messages and for channels already closed.
func (m Message[Request, Response]) Reply(value Response, err error) {
	if m.ResponseChan == nil {
		return
	}

	_ = channels.SendContextCatchPanic(context.Background(), m.ResponseChan, Result[Response]{
		Value: value,
		Error: err,
	})

	channels.CloseChannelIgnorePanic(m.ResponseChan)
}

// Result carries either a response or the error that replaced it.
type Result[A any] struct {
	Value A
	Error error
}

func (t Result[A]) IsSuccess() bool {
	return t.Error == nil
}

func (t Result[A]) Get() (A, error) { //nolint:ireturn
	if t.Error != nil {
		var zero A

		return zero, t.Error
	}

	return t.Value, nil
}
