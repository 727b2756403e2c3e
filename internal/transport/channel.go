// Package transport owns the local SOCK_SEQPACKET channel to the Eruption
// daemon.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/eruption-project/eruption-sdk/internal/framing"
)

const (
	// DefaultSocketPath is the daemon's well-known control socket.
	DefaultSocketPath = "/run/eruption/control.sock"
	// DefaultMaxMessageSize is the per-message buffer ceiling.
	DefaultMaxMessageSize = 4096

	network = "unixpacket"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrConnectionLost   = errors.New("lost connection to eruption")
	ErrTimeout          = errors.New("timed out waiting for eruption")
	ErrClosed           = errors.New("channel closed")
)

// Options tunes one channel.
type Options struct {
	// DialTimeout bounds Dial; zero leaves the deadline to ctx.
	DialTimeout time.Duration
	// ReceiveTimeout bounds each Receive; zero blocks until a reply arrives.
	ReceiveTimeout time.Duration
	// MaxMessageSize caps both outgoing and incoming messages.
	MaxMessageSize int
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.ReceiveTimeout < 0 {
		o.ReceiveTimeout = 0
	}
	if o.DialTimeout < 0 {
		o.DialTimeout = 0
	}
	return o
}

// Channel is one open connection to the control socket. It is not safe for
// concurrent use; callers serialize exchanges.
type Channel struct {
	path string
	opts Options

	mu   sync.Mutex
	conn *net.UnixConn
}

// Dial connects to the control socket at path.
func Dial(ctx context.Context, path string, opts Options) (*Channel, error) {
	opts = opts.withDefaults()

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, network, path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, path, err)
	}

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: dial %s: unexpected connection type %T", ErrConnectionFailed, path, conn)
	}

	return &Channel{path: path, opts: opts, conn: unixConn}, nil
}

// Path returns the socket address the channel was dialed with.
func (c *Channel) Path() string {
	return c.path
}

// MaxMessageSize returns the effective message ceiling.
func (c *Channel) MaxMessageSize() int {
	return c.opts.MaxMessageSize
}

// Send writes msg as exactly one packet.
func (c *Channel) Send(ctx context.Context, msg []byte) (int, error) {
	if len(msg) > c.opts.MaxMessageSize {
		return 0, fmt.Errorf("%w: %d bytes exceeds limit of %d", framing.ErrFrameTooLarge, len(msg), c.opts.MaxMessageSize)
	}

	conn, err := c.current()
	if err != nil {
		return 0, err
	}

	deadline, _ := ctx.Deadline()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set write deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetWriteDeadline(time.Unix(1, 0)) })
	defer stop()

	n, err := conn.Write(msg)
	if err != nil {
		return n, c.ioError(ctx, "send", err)
	}
	return n, nil
}

// Receive blocks until one packet arrives and returns it.
func (c *Channel) Receive(ctx context.Context) ([]byte, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(c.readDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	buf := make([]byte, c.opts.MaxMessageSize)
	n, _, flags, _, err := conn.ReadMsgUnix(buf, nil)
	if err != nil {
		return nil, c.ioError(ctx, "receive", err)
	}
	if flags&unix.MSG_TRUNC != 0 {
		return nil, fmt.Errorf("%w: reply exceeds %d byte receive buffer", framing.ErrFrameTooLarge, c.opts.MaxMessageSize)
	}
	if n == 0 {
		return nil, ErrConnectionLost
	}

	return buf[:n], nil
}

// Close releases the socket. Closing twice is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Channel) current() (*net.UnixConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrClosed
	}
	return c.conn, nil
}

// readDeadline picks the earlier of the context deadline and the receive
// timeout. The zero time disables the deadline.
func (c *Channel) readDeadline(ctx context.Context) time.Time {
	deadline, hasDeadline := ctx.Deadline()
	if c.opts.ReceiveTimeout > 0 {
		timeout := time.Now().Add(c.opts.ReceiveTimeout)
		if !hasDeadline || timeout.Before(deadline) {
			return timeout
		}
	}
	return deadline
}

func (c *Channel) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) {
		return fmt.Errorf("%s: %w", op, ErrConnectionLost)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
