// Package cli defines the eruption-sdk command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eruption-project/eruption-sdk/eruption"
	"github.com/eruption-project/eruption-sdk/internal/config"
	"github.com/eruption-project/eruption-sdk/internal/logging"
)

const annotationNoSetup = "eruption-sdk/no-setup"

// UsageError marks failures caused by how the command was invoked.
type UsageError struct {
	Err error
}

func (e UsageError) Error() string { return e.Err.Error() }

func (e UsageError) Unwrap() error { return e.Err }

// IsUsage reports whether err came from bad arguments, flags, or an
// unknown command.
func IsUsage(err error) bool {
	var usage UsageError
	if errors.As(err, &usage) {
		return true
	}
	return strings.HasPrefix(err.Error(), "unknown command")
}

// Env is the state shared by every command in one invocation.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Logger overrides the JSONL file logger when set.
	Logger *slog.Logger

	configFlag string
	socketFlag string

	loaded  config.Loaded
	logger  *slog.Logger
	logPath string
	closers []func() error
}

// Close releases resources opened while running commands.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// setup loads config and opens the log sink. Warnings go to stderr.
func (e *Env) setup() error {
	loaded, err := config.Load(e.configFlag)
	if err != nil {
		return err
	}
	e.loaded = loaded

	e.logger = e.Logger
	if e.logger == nil {
		runtime, err := logging.New(loaded.Config.Log.Level)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		e.closers = append(e.closers, runtime.Close)
		e.logger = runtime.Logger
		e.logPath = runtime.Path
	}

	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		e.logger.Warn("config warning", "line", w.Line, "message", w.Message)
		if loaded.Exists {
			fmt.Fprintf(e.Stderr, "warning: %s\n", msg)
		}
	}
	return nil
}

// Config returns the loaded configuration with flag overrides applied.
func (e *Env) Config() config.Config {
	cfg := e.loaded.Config
	if socket := strings.TrimSpace(e.socketFlag); socket != "" {
		cfg.SocketPath = socket
	}
	return cfg
}

func (e *Env) connection() *eruption.Connection {
	cfg := e.Config()
	return eruption.New(eruption.Options{
		SocketPath:     cfg.SocketPath,
		ReceiveTimeout: cfg.ReceiveTimeout(),
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         e.logger,
	})
}

// withConnection connects, runs fn, and disconnects.
func (e *Env) withConnection(ctx context.Context, fn func(*eruption.Connection) error) error {
	conn := e.connection()
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := conn.Disconnect(); err != nil {
			e.logger.Warn("disconnect failed", "error", err.Error())
		}
	}()
	return fn(conn)
}

// NewRootCommand builds the command tree bound to env.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "eruption-sdk",
		Short:         "Talk to the Eruption daemon over its control socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoSetup] == "true" {
				return nil
			}
			if err := env.setup(); err != nil {
				return err
			}
			env.logger.Info("command start",
				"command", cmd.CommandPath(),
				"config", env.loaded.Path,
				"log", env.logPath,
			)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return UsageError{Err: err}
	})

	root.PersistentFlags().StringVarP(&env.configFlag, "config", "c", "", "Config file path (default: $XDG_CONFIG_HOME/eruption-sdk/config.jsonc)")
	root.PersistentFlags().StringVar(&env.socketFlag, "socket", "", "Control socket path (default: "+eruption.DefaultSocketPath+")")

	root.AddCommand(
		newStatusCommand(env),
		newPingCommand(env),
		newProfileCommand(env),
		newParamCommand(env),
		newCanvasCommand(env),
		newHotplugCommand(env),
		newStubDaemonCommand(env),
		newDoctorCommand(env),
		newVersionCommand(env),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a UsageError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return UsageError{Err: err}
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return UsageError{Err: err}
		}
		return nil
	}
}
