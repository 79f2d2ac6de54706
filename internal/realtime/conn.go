package realtime

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a connection. Transitions only move
// forward: Connecting -> Open -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const defaultQueueSize = 64

// Conn is one live transport session of a user. Outbound frames are queued
// on a bounded channel and drained by the transport writer; queueing never
// blocks the caller.
type Conn struct {
	id       string
	userID   string
	openedAt time.Time

	state atomic.Int32
	send  chan []byte
	done  chan struct{}
}

func newConn(userID string, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Conn{
		id:       uuid.NewString(),
		userID:   userID,
		openedAt: time.Now().UTC(),
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string          { return c.id }
func (c *Conn) UserID() string      { return c.userID }
func (c *Conn) OpenedAt() time.Time { return c.openedAt }
func (c *Conn) State() State        { return State(c.state.Load()) }

// Outbound yields encoded frames waiting to be written to the socket.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// Done is closed when the connection reaches StateClosed.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) markOpen() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// markClosed moves the connection to StateClosed and returns the state it
// left. Only the first call closes Done.
func (c *Conn) markClosed() State {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev != StateClosed {
		close(c.done)
	}
	return prev
}

// enqueue hands a frame to the writer. It fails instead of blocking when the
// connection is not open or its queue is full.
func (c *Conn) enqueue(frame []byte) bool {
	if c.State() != StateOpen {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}
