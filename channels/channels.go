// Package channels contains small helpers for working with Go channels
// whose lifetimes are controlled by someone else: closing twice, sending
// to a channel that may already be closed, and non-blocking delivery.
package channels

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned when a value is sent to a channel that has already been closed.
var ErrClosed = errors.New("send on closed channel")

// Create makes a channel with the given buffer size and returns its write end,
// its read end and a function reporting how many values are currently queued.
// A size of zero (or less) yields an unbuffered channel.
func Create[T any](size int) (chan<- T, <-chan T, func() int) {
	if size < 0 {
		size = 0
	}

	ch := make(chan T, size)

	return ch, ch, func() int {
		return len(ch)
	}
}

// CloseChannelIgnorePanic closes a channel like normal.
// However, if the channel has already been closed,
// it will suppress the resulting panic.
func CloseChannelIgnorePanic[T any](ch chan<- T) {
	if ch == nil {
		return
	}

	defer func() {
		// Recover from panic if the channel is already closed
		_ = recover()
	}()

	close(ch)
}

// SendContextCatchPanic sends value to ch, blocking until the value is taken,
// the context is done, or the channel turns out to be closed. A closed channel
// is reported as ErrClosed rather than crashing the sender. Sending to a nil
// channel is a no-op.
func SendContextCatchPanic[T any](ctx context.Context, ch chan<- T, value T) (err error) {
	if ch == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClosed, r)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- value:
		return nil
	}
}

// TrySend delivers value without blocking. It returns false when the channel
// is full, nil or closed.
func TrySend[T any](ch chan<- T, value T) (sent bool) {
	if ch == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case ch <- value:
		return true
	default:
		return false
	}
}
