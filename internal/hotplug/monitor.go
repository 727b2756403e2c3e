package hotplug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pilebones/go-udev/netlink"

	"github.com/eruption-project/eruption-sdk/eruption"
)

// HandlerFunc receives one device event. action is "add" or "remove".
type HandlerFunc func(ctx context.Context, action string, info eruption.HotplugInfo) error

// Monitor listens for kernel USB device uevents.
type Monitor struct {
	subsystem string
	handler   HandlerFunc
	logger    *slog.Logger
}

// NewMonitor returns a Monitor for device events in subsystem.
func NewMonitor(subsystem string, handler HandlerFunc, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		subsystem: subsystem,
		handler:   handler,
		logger:    logger.With("component", "hotplug-monitor"),
	}
}

// Run connects to the kernel uevent socket and dispatches events until ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		return fmt.Errorf("connect netlink: %w", err)
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, m.matcher())
	m.logger.Info("hotplug monitor started", "subsystem", m.subsystem)

	for {
		select {
		case <-ctx.Done():
			close(quit)
			m.logger.Info("hotplug monitor stopped")
			return nil
		case uevent := <-queue:
			m.handle(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", "error", err.Error())
		}
	}
}

// matcher selects add/remove events for whole USB devices, skipping their
// interfaces.
func (m *Monitor) matcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": m.subsystem,
			"DEVTYPE":   "usb_device",
		},
	})
	return rules
}

func (m *Monitor) handle(ctx context.Context, uevent netlink.UEvent) {
	action := string(uevent.Action)
	info, err := InfoFromEnv(uevent.Env)
	if err != nil {
		m.logger.Debug("ignoring event", "action", action, "kobj", uevent.KObj, "error", err.Error())
		return
	}

	m.logger.Info("device event", "action", action, "devpath", info.DevPath)
	if m.handler == nil {
		return
	}
	if err := m.handler(ctx, action, info); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrLocked) {
			level = slog.LevelDebug
		}
		m.logger.Log(ctx, level, "hotplug handler failed", "action", action, "devpath", info.DevPath, "error", err.Error())
	}
}
