// Package hotplug forwards USB device arrival and removal to the daemon.
package hotplug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/eruption-project/eruption-sdk/eruption"
)

// ErrLocked reports that another helper instance holds the lock file.
var ErrLocked = errors.New("hotplug helper already running")

// Notifier delivers one hotplug notification. *eruption.Connection
// satisfies it.
type Notifier interface {
	NotifyDeviceHotplug(ctx context.Context, info eruption.HotplugInfo) error
}

// Helper serializes notifications across processes with a lock file and
// lets udev settle before each one.
type Helper struct {
	notifier    Notifier
	lock        *flock.Flock
	settleDelay time.Duration
	logger      *slog.Logger
}

// NewHelper builds a Helper locking lockFile.
func NewHelper(notifier Notifier, lockFile string, settleDelay time.Duration, logger *slog.Logger) *Helper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Helper{
		notifier:    notifier,
		lock:        flock.New(lockFile),
		settleDelay: settleDelay,
		logger:      logger.With("component", "hotplug"),
	}
}

// Notify takes the lock, waits out the settle delay, and forwards info.
// It returns ErrLocked without notifying when the lock is held elsewhere.
func (h *Helper) Notify(ctx context.Context, info eruption.HotplugInfo) error {
	ok, err := h.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", h.lock.Path(), err)
	}
	if !ok {
		h.logger.Warn("invoked while another helper holds the lock", "lock", h.lock.Path())
		return ErrLocked
	}
	defer func() {
		if err := h.lock.Unlock(); err != nil {
			h.logger.Warn("release lock failed", "lock", h.lock.Path(), "error", err.Error())
		}
	}()

	if h.settleDelay > 0 {
		timer := time.NewTimer(h.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := h.notifier.NotifyDeviceHotplug(ctx, info); err != nil {
		return fmt.Errorf("notify daemon: %w", err)
	}
	h.logger.Info("hotplug notification sent",
		"devpath", info.DevPath,
		"usb_vid", fmt.Sprintf("%04x", info.USBVendorID),
		"usb_pid", fmt.Sprintf("%04x", info.USBProductID),
	)
	return nil
}
