// Package doctor runs readiness diagnostics for config, the control socket,
// and the daemon behind it.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/eruption-project/eruption-sdk/eruption"
	"github.com/eruption-project/eruption-sdk/internal/config"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config, socket, and daemon checks for a loaded config.
// Daemon checks are skipped once the socket itself is unusable.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	socket := checkSocket(cfg.Config.SocketPath)
	checks = append(checks, socket)
	if socket.Pass {
		checks = append(checks, checkDaemon(ctx, cfg.Config))
	}

	checks = append(checks, checkLockDir(cfg.Config.Hotplug.LockFile))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	return Check{Name: "config", Pass: true, Message: cfg.Summary()}
}

// checkSocket validates that path exists and is a UNIX domain socket.
func checkSocket(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Check{Name: "socket", Pass: false, Message: fmt.Sprintf("%s does not exist; is the eruption daemon running?", path)}
		}
		return Check{Name: "socket", Pass: false, Message: err.Error()}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: "socket", Pass: false, Message: fmt.Sprintf("%s is not a socket (mode %s)", path, info.Mode())}
	}
	return Check{Name: "socket", Pass: true, Message: fmt.Sprintf("found %s", path)}
}

// checkDaemon connects and runs one status round trip.
func checkDaemon(ctx context.Context, cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	conn := eruption.New(eruption.Options{
		SocketPath:     cfg.SocketPath,
		ReceiveTimeout: cfg.ReceiveTimeout(),
		MaxMessageSize: cfg.MaxMessageSize,
	})
	if err := conn.Connect(ctx); err != nil {
		return Check{Name: "daemon", Pass: false, Message: err.Error()}
	}
	defer conn.Disconnect()

	status, err := conn.ServerStatus(ctx)
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("status request failed: %v", err)}
	}
	return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("server %q", status.Server)}
}

// checkLockDir confirms the hotplug lock file can be opened and locked.
func checkLockDir(lockFile string) Check {
	dir := filepath.Dir(lockFile)
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "hotplug.lock_file", Pass: false, Message: fmt.Sprintf("lock directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return Check{Name: "hotplug.lock_file", Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	lock := flock.New(lockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return Check{Name: "hotplug.lock_file", Pass: false, Message: fmt.Sprintf("cannot lock %s: %v", lockFile, err)}
	}
	if !locked {
		return Check{Name: "hotplug.lock_file", Pass: true, Message: fmt.Sprintf("%s held by a running helper", lockFile)}
	}
	if err := lock.Unlock(); err != nil {
		return Check{Name: "hotplug.lock_file", Pass: false, Message: fmt.Sprintf("release %s: %v", lockFile, err)}
	}
	return Check{Name: "hotplug.lock_file", Pass: true, Message: fmt.Sprintf("lock file %s", lockFile)}
}
