package config

import "github.com/eruption-project/eruption-sdk/internal/transport"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		SocketPath:       transport.DefaultSocketPath,
		ReceiveTimeoutMS: 5000,
		MaxMessageSize:   transport.DefaultMaxMessageSize,
		Log:              LogConfig{Level: "info"},
		Hotplug: HotplugConfig{
			LockFile:      "/run/lock/eruption-hotplug-helper.lock",
			SettleDelayMS: 500,
			Subsystem:     "usb",
		},
	}
}
