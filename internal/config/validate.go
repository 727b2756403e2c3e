package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const minMessageSize = 64

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	socketPath := strings.TrimSpace(cfg.SocketPath)
	if socketPath == "" {
		return nil, fmt.Errorf("socket_path must not be empty")
	}
	if !filepath.IsAbs(socketPath) {
		return nil, fmt.Errorf("socket_path must be absolute")
	}
	if cfg.ReceiveTimeoutMS < 0 {
		return nil, fmt.Errorf("receive_timeout_ms must be >= 0")
	}
	if cfg.MaxMessageSize < minMessageSize {
		return nil, fmt.Errorf("max_message_size must be >= %d", minMessageSize)
	}
	if !knownLevel(cfg.Log.Level) {
		return nil, fmt.Errorf("log.level must be one of: %s", strings.Join(logLevels, ", "))
	}
	if strings.TrimSpace(cfg.Hotplug.LockFile) == "" {
		return nil, fmt.Errorf("hotplug.lock_file must not be empty")
	}
	if cfg.Hotplug.SettleDelayMS < 0 {
		return nil, fmt.Errorf("hotplug.settle_delay_ms must be >= 0")
	}
	if strings.TrimSpace(cfg.Hotplug.Subsystem) == "" {
		return nil, fmt.Errorf("hotplug.subsystem must not be empty")
	}

	if cfg.ReceiveTimeoutMS == 0 {
		warnings = append(warnings, Warning{Message: "receive_timeout_ms=0 waits forever for daemon replies"})
	}
	if cfg.MaxMessageSize > 1<<20 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("max_message_size=%d is larger than any daemon reply", cfg.MaxMessageSize)})
	}

	return warnings, nil
}

func knownLevel(level string) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	for _, known := range logLevels {
		if level == known {
			return true
		}
	}
	return false
}
