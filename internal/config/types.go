// Package config resolves, parses, validates, and defaults eruption-sdk configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by eruption-sdk.
type Config struct {
	SocketPath       string
	ReceiveTimeoutMS int
	MaxMessageSize   int
	Log              LogConfig
	Hotplug          HotplugConfig
}

// LogConfig controls the JSONL log sink.
type LogConfig struct {
	Level string
}

// HotplugConfig controls the hotplug helper.
type HotplugConfig struct {
	LockFile      string
	SettleDelayMS int
	Subsystem     string
}

// ReceiveTimeout returns the reply wait as a duration.
func (c Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMS) * time.Millisecond
}

// SettleDelay returns the hotplug settle delay as a duration.
func (c HotplugConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
