package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eruption-project/eruption-sdk/eruption"
	"github.com/eruption-project/eruption-sdk/internal/profile"
)

var (
	errDoctorFailed  = errors.New("doctor checks failed")
	errSwitchRefused = errors.New("daemon refused the profile switch")
	errBadAssignment = errors.New("parameter must be name=value")
)

func newProfileCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and switch profiles",
	}
	cmd.AddCommand(
		newProfileActiveCommand(env),
		newProfileSwitchCommand(env),
		newProfileShowCommand(env),
		newProfileNewCommand(env),
	)
	return cmd
}

func newProfileActiveCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the active profile path",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				active, err := conn.ActiveProfile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(env.Stdout, active)
				return nil
			})
		},
	}
}

func newProfileSwitchCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "switch PATH",
		Short: "Activate the profile at PATH",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := absPath(args[0])
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				return switchProfile(cmd, env, conn, path)
			})
		},
	}
}

func switchProfile(cmd *cobra.Command, env *Env, conn *eruption.Connection, path string) error {
	switched, err := conn.SwitchProfile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if !switched {
		return fmt.Errorf("%w: %s", errSwitchRefused, path)
	}
	fmt.Fprintf(env.Stdout, "switched to %s\n", path)
	return nil
}

func newProfileShowCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show PATH",
		Short: "Print a profile file's scripts and parameter overrides",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Stdout, "%s (%s)\n", p.Name, p.ID)
			if p.Description != "" {
				fmt.Fprintln(env.Stdout, p.Description)
			}

			rows := make([][]string, 0, len(p.ActiveScripts))
			for _, script := range p.ActiveScripts {
				rows = append(rows, []string{script, "", "", ""})
			}
			scripts := make([]string, 0, len(p.Config))
			for script := range p.Config {
				scripts = append(scripts, script)
			}
			sort.Strings(scripts)
			for _, script := range scripts {
				for _, param := range p.Config[script] {
					rows = append(rows, []string{script, param.Name, param.Type, fmt.Sprint(param.Value)})
				}
			}
			fmt.Fprintln(env.Stdout, renderTable(env.Stdout, []string{"Script", "Parameter", "Type", "Value"}, rows, nil))
			return nil
		},
	}
}

func newProfileNewCommand(env *Env) *cobra.Command {
	var description string
	var output string
	var dir string
	var activate bool

	cmd := &cobra.Command{
		Use:   "new NAME SCRIPT...",
		Short: "Write a new profile running SCRIPT files",
		Args:  minimumArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := profile.New(args[0], description, args[1:])

			path := strings.TrimSpace(output)
			if path != "" {
				path = absPath(path)
				if err := profile.Write(path, p); err != nil {
					return err
				}
			} else {
				created, err := profile.CreateTemp(dir, p)
				if err != nil {
					return err
				}
				path = absPath(created)
			}
			fmt.Fprintln(env.Stdout, path)

			if !activate {
				return nil
			}
			return env.withConnection(cmd.Context(), func(conn *eruption.Connection) error {
				return switchProfile(cmd, env, conn, path)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Profile description")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Profile file to write (default: a new file in --dir)")
	cmd.Flags().StringVar(&dir, "dir", os.TempDir(), "Directory for generated profile files")
	cmd.Flags().BoolVar(&activate, "activate", false, "Switch to the profile after writing it")
	return cmd
}

func newParamCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "param PROFILE SCRIPT NAME=VALUE...",
		Short: "Set script parameters in a profile",
		Args:  minimumArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := eruption.NewParameters()
			for _, assignment := range args[2:] {
				name, value, ok := strings.Cut(assignment, "=")
				if !ok {
					return UsageError{Err: fmt.Errorf("%w: %q", errBadAssignment, assignment)}
				}
				if err := params.SetString(name, value); err != nil {
					return UsageError{Err: err}
				}
			}

			ctx := cmd.Context()
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				if err := conn.SetParameters(ctx, args[0], args[1], params); err != nil {
					return err
				}
				fmt.Fprintf(env.Stdout, "set %d parameter(s) on %s\n", params.Len(), args[1])
				return nil
			})
		},
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
