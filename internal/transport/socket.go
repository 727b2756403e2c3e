package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/eruption-project/eruption-sdk/internal/protocol"
)

var ErrAlreadyRunning = errors.New("control socket already served")

// ResolveSocketPath returns explicit when set, otherwise the daemon default.
func ResolveSocketPath(explicit string) string {
	if path := strings.TrimSpace(explicit); path != "" {
		return path
	}
	return DefaultSocketPath
}

// Acquire binds a control socket listener at path, unlinking a stale socket
// file left behind by a dead owner.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries int) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure socket dir: %w", err)
	}

	addr := &net.UnixAddr{Name: path, Net: network}
	for attempt := 0; attempt <= retries; attempt++ {
		listener, err := net.ListenUnix(network, addr)
		if err == nil {
			// clients of the daemon run unprivileged
			_ = os.Chmod(path, 0o666)
			return listener, nil
		}

		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen %s %s: %w", network, path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if probeErr != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
}

// Probe checks whether a responsive daemon is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	ch, err := Dial(ctx, path, Options{ReceiveTimeout: timeout})
	if err != nil {
		if IsSocketMissing(err) || IsConnectionRefused(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe socket: %w", err)
	}
	defer ch.Close()

	resp, err := Call(ctx, ch, protocol.StatusRequest{})
	if err != nil {
		return false, fmt.Errorf("probe socket: %w", err)
	}
	if resp.Kind() != protocol.KindStatus {
		return false, fmt.Errorf("probe socket: unexpected %s reply", resp.Kind())
	}
	return true, nil
}

// IsSocketMissing reports absent-socket failures.
func IsSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// IsConnectionRefused reports no-listener failures.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.ECONNREFUSED)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
