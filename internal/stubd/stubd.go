// Package stubd answers the Eruption control protocol from in-memory state.
// It stands in for the daemon in tests and local development; it drives no
// hardware and runs no scripts.
package stubd

import (
	"context"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/eruption-project/eruption-sdk/internal/profile"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
	"github.com/eruption-project/eruption-sdk/internal/transport"
)

// DefaultDescription is reported by status requests unless overridden.
const DefaultDescription = "Eruption"

// Options seeds a Daemon.
type Options struct {
	Description   string
	ActiveProfile string
	// AcceptProfile decides whether a profile switch succeeds. Nil accepts
	// any path that loads as a valid profile file.
	AcceptProfile func(path string) bool
}

// Daemon holds the state one stub daemon exposes over the socket.
type Daemon struct {
	description   string
	acceptProfile func(string) bool

	mu            sync.Mutex
	activeProfile string
	parameters    map[scriptKey]map[string]string
	canvas        []byte
	frames        uint64
	hotplugs      [][]byte
	requests      []protocol.Kind
}

type scriptKey struct {
	profile string
	script  string
}

// New builds a Daemon from opts.
func New(opts Options) *Daemon {
	d := &Daemon{
		description:   opts.Description,
		acceptProfile: opts.AcceptProfile,
		activeProfile: opts.ActiveProfile,
		parameters:    make(map[scriptKey]map[string]string),
	}
	if d.description == "" {
		d.description = DefaultDescription
	}
	if d.acceptProfile == nil {
		d.acceptProfile = func(path string) bool {
			_, err := profile.Load(path)
			return err == nil
		}
	}
	return d
}

// Handle answers one request. It satisfies transport.Handler.
func (d *Daemon) Handle(_ context.Context, req protocol.Request) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req.Kind())

	switch r := req.(type) {
	case protocol.NoopRequest:
		return protocol.NoopResponse{}
	case protocol.StatusRequest:
		return protocol.StatusResponse{Description: d.description}
	case protocol.ActiveProfileRequest:
		return protocol.ActiveProfileResponse{ProfileFile: d.activeProfile}
	case protocol.SwitchProfileRequest:
		if !d.acceptProfile(r.ProfileFile) {
			return protocol.SwitchProfileResponse{Switched: false}
		}
		d.activeProfile = r.ProfileFile
		return protocol.SwitchProfileResponse{Switched: true}
	case protocol.SetParametersRequest:
		key := scriptKey{profile: r.ProfileFile, script: r.ScriptFile}
		values := d.parameters[key]
		if values == nil {
			values = make(map[string]string)
			d.parameters[key] = values
		}
		for _, p := range r.Parameters {
			values[p.Name] = p.Value
		}
		return protocol.SetParametersResponse{}
	case protocol.SetCanvasRequest:
		d.canvas = append(d.canvas[:0], r.Canvas...)
		d.frames++
		return protocol.SetCanvasResponse{}
	case protocol.HotplugRequest:
		d.hotplugs = append(d.hotplugs, append([]byte(nil), r.Payload...))
		return protocol.HotplugResponse{}
	}

	return nil
}

// ActiveProfile returns the current profile path.
func (d *Daemon) ActiveProfile() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeProfile
}

// Parameters returns the values stored for one profile script.
func (d *Daemon) Parameters(profileFile, scriptFile string) map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	values := d.parameters[scriptKey{profile: profileFile, script: scriptFile}]
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// Canvas returns the most recent canvas payload and how many were received.
func (d *Daemon) Canvas() ([]byte, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.canvas...), d.frames
}

// Hotplugs returns every hotplug payload received, oldest first.
func (d *Daemon) Hotplugs() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]byte, len(d.hotplugs))
	for i, p := range d.hotplugs {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// Requests returns the kinds of all requests handled, oldest first.
func (d *Daemon) Requests() []protocol.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Kind(nil), d.requests...)
}

// Listen binds the control socket at path, replacing a stale socket file.
func Listen(ctx context.Context, path string) (*net.UnixListener, error) {
	return transport.Acquire(ctx, path, 200*time.Millisecond, 4)
}

// ListenAndServe binds path and serves d until ctx is cancelled. The socket
// file is removed on return.
func (d *Daemon) ListenAndServe(ctx context.Context, path string, logger *slog.Logger) error {
	listener, err := Listen(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(path) }()

	if logger != nil {
		logger.Info("stub daemon listening", "socket", path, "description", d.description)
	}
	return transport.Serve(ctx, listener, d, transport.ServeOptions{Logger: logger})
}
