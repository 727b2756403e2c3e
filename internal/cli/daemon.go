package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eruption-project/eruption-sdk/eruption"
	"github.com/eruption-project/eruption-sdk/internal/doctor"
	"github.com/eruption-project/eruption-sdk/internal/stubd"
	"github.com/eruption-project/eruption-sdk/internal/version"
)

func newStatusCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's status and active profile",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				status, err := conn.ServerStatus(ctx)
				if err != nil {
					return err
				}
				active, err := conn.ActiveProfile(ctx)
				if err != nil {
					return err
				}

				rows := [][]string{
					{"server", status.Server},
					{"active profile", active},
					{"socket", conn.SocketPath()},
				}
				fmt.Fprintln(env.Stdout, renderTable(env.Stdout, []string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newPingCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a no-op request and report the round trip time",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				started := time.Now()
				if err := conn.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintf(env.Stdout, "pong from %s in %s\n", conn.SocketPath(), time.Since(started).Round(time.Microsecond))
				return nil
			})
		},
	}
}

func newStubDaemonCommand(env *Env) *cobra.Command {
	var description string
	var activeProfile string

	cmd := &cobra.Command{
		Use:   "stub-daemon",
		Short: "Serve the control protocol from memory for local testing",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath := env.Config().SocketPath
			daemon := stubd.New(stubd.Options{Description: description, ActiveProfile: activeProfile})
			fmt.Fprintf(env.Stdout, "serving %s\n", socketPath)
			return daemon.ListenAndServe(cmd.Context(), socketPath, env.logger)
		},
	}
	cmd.Flags().StringVar(&description, "description", "eruption-sdk stub", "Status description to report")
	cmd.Flags().StringVar(&activeProfile, "active-profile", "", "Initial active profile path")
	return cmd
}

func newDoctorCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run configuration and daemon checks",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded := env.loaded
			loaded.Config = env.Config()

			report := doctor.Run(cmd.Context(), loaded)
			fmt.Fprintln(env.Stdout, report.String())
			if !report.OK() {
				return errDoctorFailed
			}
			return nil
		},
	}
}

func newVersionCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        exactArgs(0),
		Annotations: map[string]string{annotationNoSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(env.Stdout, version.String())
		},
	}
}
