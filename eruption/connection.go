package eruption

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/eruption-project/eruption-sdk/internal/fsm"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
	"github.com/eruption-project/eruption-sdk/internal/transport"
)

// ConnectionType selects the transport used to reach the daemon.
type ConnectionType int

const (
	// Local connects through the daemon's UNIX domain control socket.
	Local ConnectionType = iota
	// Remote is reserved; no remote transport exists.
	Remote
)

func (t ConnectionType) String() string {
	switch t {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("connection_type(%d)", int(t))
	}
}

// DefaultSocketPath is the daemon's well-known control socket address.
const DefaultSocketPath = transport.DefaultSocketPath

// Options configures a Connection.
type Options struct {
	Type ConnectionType
	// SocketPath defaults to DefaultSocketPath.
	SocketPath string
	// DialTimeout bounds Connect. Zero leaves it to ctx.
	DialTimeout time.Duration
	// ReceiveTimeout bounds the wait for each reply. Zero waits forever.
	ReceiveTimeout time.Duration
	// MaxMessageSize caps request and reply sizes; zero selects 4096 bytes.
	MaxMessageSize int
	Logger         *slog.Logger
}

// ServerStatus is the daemon's self-description.
type ServerStatus struct {
	Server string
}

// Connection is one session with the daemon. Exchanges are serialized: at
// most one request is in flight at a time.
type Connection struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state fsm.State
	ch    *transport.Channel
}

// New returns a disconnected Connection.
func New(opts Options) *Connection {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.SocketPath = transport.ResolveSocketPath(opts.SocketPath)

	return &Connection{
		opts:   opts,
		logger: logger.With("component", "eruption-sdk", "socket", opts.SocketPath),
		state:  fsm.StateDisconnected,
	}
}

// SocketPath returns the control socket address in use.
func (c *Connection) SocketPath() string {
	return c.opts.SocketPath
}

// Connect opens the control socket.
func (c *Connection) Connect(ctx context.Context) error {
	if c.opts.Type != Local {
		return fmt.Errorf("%w: %s", ErrUnsupportedConnectionType, c.opts.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, fsm.EventConnect)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAlreadyConnected, err)
	}

	ch, err := transport.Dial(ctx, c.opts.SocketPath, transport.Options{
		DialTimeout:    c.opts.DialTimeout,
		ReceiveTimeout: c.opts.ReceiveTimeout,
		MaxMessageSize: c.opts.MaxMessageSize,
	})
	if err != nil {
		c.logger.Debug("connect failed", "error", err.Error())
		return err
	}

	c.ch = ch
	c.state = next
	c.logger.Debug("connected")
	return nil
}

// Disconnect closes the control socket.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, fsm.EventDisconnect)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	closeErr := c.ch.Close()
	c.ch = nil
	c.state = next
	c.logger.Debug("disconnected")

	if closeErr != nil {
		return fmt.Errorf("close control socket: %w", closeErr)
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Disconnect has not run.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == fsm.StateConnected
}

// Ping sends a no-op request and waits for its acknowledgement.
func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.exchange(ctx, protocol.NoopRequest{})
	return err
}

// ServerStatus asks the daemon to describe itself.
func (c *Connection) ServerStatus(ctx context.Context) (ServerStatus, error) {
	resp, err := c.exchange(ctx, protocol.StatusRequest{})
	if err != nil {
		return ServerStatus{}, err
	}
	return ServerStatus{Server: resp.(protocol.StatusResponse).Description}, nil
}

// ActiveProfile returns the file path of the daemon's active profile.
func (c *Connection) ActiveProfile(ctx context.Context) (string, error) {
	resp, err := c.exchange(ctx, protocol.ActiveProfileRequest{})
	if err != nil {
		return "", err
	}
	return resp.(protocol.ActiveProfileResponse).ProfileFile, nil
}

// SwitchProfile asks the daemon to activate the profile at path. A refusal
// is reported as false with a nil error.
func (c *Connection) SwitchProfile(ctx context.Context, path string) (bool, error) {
	resp, err := c.exchange(ctx, protocol.SwitchProfileRequest{ProfileFile: path})
	if err != nil {
		return false, err
	}
	return resp.(protocol.SwitchProfileResponse).Switched, nil
}

// SetParameters updates the named parameters of one script in a profile.
func (c *Connection) SetParameters(ctx context.Context, profileFile, scriptFile string, params *Parameters) error {
	_, err := c.exchange(ctx, protocol.SetParametersRequest{
		ProfileFile: profileFile,
		ScriptFile:  scriptFile,
		Parameters:  params.Values(),
	})
	return err
}

// SubmitCanvas hands a full frame to the daemon for display.
func (c *Connection) SubmitCanvas(ctx context.Context, canvas *Canvas) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if canvas == nil {
		return fmt.Errorf("%w: nil canvas", ErrCanvasSize)
	}
	_, err := c.exchange(ctx, protocol.SetCanvasRequest{Canvas: canvas.Bytes()})
	return err
}

// NotifyDeviceHotplug tells the daemon a device was plugged or unplugged.
func (c *Connection) NotifyDeviceHotplug(ctx context.Context, info HotplugInfo) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	payload, err := info.Payload()
	if err != nil {
		return err
	}
	_, err = c.exchange(ctx, protocol.HotplugRequest{Payload: payload})
	return err
}

// exchange runs one round trip and checks the reply answers req.
func (c *Connection) exchange(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != fsm.StateConnected {
		return nil, ErrNotConnected
	}

	started := time.Now()
	resp, err := transport.Call(ctx, c.ch, req)
	if err != nil {
		c.logger.Debug("request failed", "kind", req.Kind().String(), "error", err.Error())
		if errors.Is(err, protocol.ErrMalformedMessage) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, req.Kind(), err)
		}
		return nil, fmt.Errorf("%s: %w", req.Kind(), err)
	}

	if resp.Kind() != req.Kind() {
		c.logger.Debug("reply kind mismatch", "kind", req.Kind().String(), "reply", resp.Kind().String())
		return nil, fmt.Errorf("%w: sent %s, received %s reply", ErrRequestFailed, req.Kind(), resp.Kind())
	}

	c.logger.Debug("request complete", "kind", req.Kind().String(), "duration_ms", time.Since(started).Milliseconds())
	return resp, nil
}
