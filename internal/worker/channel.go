package worker

import (
	"context"
	"sync"
	"time"
)

// envelope is the unit of transfer on a Channel. Seq pairs a response with
// the request that produced it.
type envelope struct {
	Seq     uint64
	Command Command
	Outcome Outcome
}

// Conn is one end of a duplex, ordered, blocking Channel. Both ends share a
// single closed signal; closing either end closes the channel.
type Conn struct {
	in     <-chan envelope
	out    chan<- envelope
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns the controller and execution-unit ends of a new Channel.
// Requests travel unbuffered so a send completes only once the unit has
// picked the command up; one response may be buffered.
func Pipe() (controller *Conn, unit *Conn) {
	requests := make(chan envelope)
	responses := make(chan envelope, 1)
	closed := make(chan struct{})
	once := &sync.Once{}
	controller = &Conn{in: responses, out: requests, closed: closed, once: once}
	unit = &Conn{in: requests, out: responses, closed: closed, once: once}
	return controller, unit
}

// Send delivers msg to the other end, blocking until it is accepted, the
// channel closes, or ctx ends.
func (c *Conn) Send(ctx context.Context, msg envelope) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}
	select {
	case <-c.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- msg:
		return nil
	}
}

// Recv blocks for the next message. A message already queued is returned
// even if the channel closed after it was sent.
func (c *Conn) Recv(ctx context.Context) (envelope, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.closed:
		return c.drain()
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}

// Poll waits up to timeout for a message. ok is false when the wait timed out.
func (c *Conn) Poll(timeout time.Duration) (msg envelope, ok bool, err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-c.in:
		return msg, true, nil
	case <-c.closed:
		msg, err := c.drain()
		if err != nil {
			return envelope{}, false, err
		}
		return msg, true, nil
	case <-timer.C:
		return envelope{}, false, nil
	}
}

func (c *Conn) drain() (envelope, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	default:
		return envelope{}, ErrChannelClosed
	}
}

// Close closes the channel for both ends. Safe to call repeatedly.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Closed reports whether the channel has been closed.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
