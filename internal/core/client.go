package core

import (
	"io"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/vovakirdan/tcprelay/internal/utils"
)

// MaxNameLength is the longest username kept, in characters.
const MaxNameLength = 200

// Client is one accepted connection as seen by the core layer.
// The outbox is drained by a single writer so writes to one socket never interleave.
type Client struct {
	ID      int64
	Session string
	Remote  string

	name   atomic.Pointer[string]
	outbox chan []byte
	done   chan struct{}
	once   sync.Once
	conn   io.Closer
}

// NewClient constructs an unauthenticated client. conn may be nil in tests.
func NewClient(id int64, remote string, outboxSize int, conn io.Closer) *Client {
	if outboxSize <= 0 {
		outboxSize = 1
	}
	return &Client{
		ID:      id,
		Session: utils.NewSessionID(),
		Remote:  remote,
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		conn:    conn,
	}
}

// Name returns the username, empty until the handshake succeeds.
func (c *Client) Name() string {
	if p := c.name.Load(); p != nil {
		return *p
	}
	return ""
}

// Authenticated reports whether a username has been set.
func (c *Client) Authenticated() bool {
	return c.name.Load() != nil
}

// SetName stores the truncated username. It can succeed only once.
func (c *Client) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	name = TruncateName(name)
	if !c.name.CompareAndSwap(nil, &name) {
		return ErrNameAlreadySet
	}
	return nil
}

// Outbox is the queue of payloads waiting to be written to the socket.
func (c *Client) Outbox() <-chan []byte {
	return c.outbox
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Enqueue appends payload to the outbox without blocking.
func (c *Client) Enqueue(payload []byte) error {
	if c.Closed() {
		return ErrClientClosed
	}
	select {
	case c.outbox <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSlowConsumer
	}
}

// Close marks the client closed and closes its connection. Safe to call repeatedly.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Info returns the identity pair shown to operators.
func (c *Client) Info() ClientInfo {
	return ClientInfo{ID: c.ID, Username: c.Name()}
}

// TruncateName cuts name to MaxNameLength characters.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	return string([]rune(name)[:MaxNameLength])
}
