package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

type jsoncConfig struct {
	SocketPath       *string       `json:"socket_path"`
	ReceiveTimeoutMS *int          `json:"receive_timeout_ms"`
	MaxMessageSize   *int          `json:"max_message_size"`
	Log              *jsoncLog     `json:"log"`
	Hotplug          *jsoncHotplug `json:"hotplug"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncHotplug struct {
	LockFile      *string `json:"lock_file"`
	SettleDelayMS *int    `json:"settle_delay_ms"`
	Subsystem     *string `json:"subsystem"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	// ToJSON blanks comments and trailing commas in place, so decoder
	// offsets still point into the original content.
	normalized := jsonc.ToJSON([]byte(content))

	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.SocketPath != nil {
		cfg.SocketPath = strings.TrimSpace(*payload.SocketPath)
	}
	if payload.ReceiveTimeoutMS != nil {
		cfg.ReceiveTimeoutMS = *payload.ReceiveTimeoutMS
	}
	if payload.MaxMessageSize != nil {
		cfg.MaxMessageSize = *payload.MaxMessageSize
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}

	if payload.Hotplug != nil {
		if payload.Hotplug.LockFile != nil {
			cfg.Hotplug.LockFile = strings.TrimSpace(*payload.Hotplug.LockFile)
		}
		if payload.Hotplug.SettleDelayMS != nil {
			cfg.Hotplug.SettleDelayMS = *payload.Hotplug.SettleDelayMS
		}
		if payload.Hotplug.Subsystem != nil {
			cfg.Hotplug.Subsystem = strings.TrimSpace(*payload.Hotplug.Subsystem)
		}
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
