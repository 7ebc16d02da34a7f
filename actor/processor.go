package actor

import "log/slog"

// Processor handles one message at a time on the actor goroutine.
type Processor[Request, Response any] interface {
	Process(msg Message[Request, Response])
}

type processor[Request, Response any] struct {
	process func(Message[Request, Response])
}

func (p *processor[Request, Response]) Process(msg Message[Request, Response]) {
	p.process(msg)
}

func NewProcessor[Request, Response any](processorFunc func(Message[Request, Response])) Processor[Request, Response] {
	return &processor[Request, Response]{
		process: processorFunc,
	}
}

// SimpleProcessor adapts a plain function. Errors of fire-and-forget
// messages are logged since nobody else will see them.
func SimpleProcessor[Request, Response any](f func(req Request) (Response, error)) Processor[Request, Response] {
	return NewProcessor(func(msg Message[Request, Response]) {
		resp, err := f(msg.Request)
		if err != nil && msg.ResponseChan == nil {
			slog.Error("error processing message", "error", err)
		}

		msg.Reply(resp, err)
	})
}
