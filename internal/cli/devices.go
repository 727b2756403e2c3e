package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eruption-project/eruption-sdk/eruption"
	"github.com/eruption-project/eruption-sdk/internal/hotplug"
)

func newCanvasCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Submit canvas frames",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "fill COLOR",
		Short: "Paint every cell with COLOR (#rrggbb[aa] or r,g,b[,a])",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := eruption.ParseColor(args[0])
			if err != nil {
				return UsageError{Err: err}
			}
			canvas := eruption.NewCanvas()
			canvas.Fill(color)

			ctx := cmd.Context()
			return env.withConnection(ctx, func(conn *eruption.Connection) error {
				if err := conn.SubmitCanvas(ctx, canvas); err != nil {
					return err
				}
				fmt.Fprintf(env.Stdout, "submitted %d cells of %s\n", canvas.Len(), color)
				return nil
			})
		},
	})
	return cmd
}

func newHotplugCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotplug",
		Short: "Notify the daemon about USB device changes",
	}
	cmd.AddCommand(newHotplugNotifyCommand(env), newHotplugWatchCommand(env))
	return cmd
}

// connectionNotifier opens a fresh connection for each notification, so a
// daemon restart between events is harmless.
type connectionNotifier struct {
	env *Env
}

func (n connectionNotifier) NotifyDeviceHotplug(ctx context.Context, info eruption.HotplugInfo) error {
	return n.env.withConnection(ctx, func(conn *eruption.Connection) error {
		return conn.NotifyDeviceHotplug(ctx, info)
	})
}

func (e *Env) hotplugHelper() *hotplug.Helper {
	cfg := e.Config().Hotplug
	return hotplug.NewHelper(connectionNotifier{env: e}, cfg.LockFile, cfg.SettleDelay(), e.logger)
}

func newHotplugNotifyCommand(env *Env) *cobra.Command {
	var devPath string
	var vid string
	var pid string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send one hotplug notification",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := eruption.HotplugInfo{DevPath: strings.TrimSpace(devPath)}
			var err error
			if info.USBVendorID, err = hotplug.ParseID(vid); err != nil {
				return UsageError{Err: fmt.Errorf("--vid: %w", err)}
			}
			if info.USBProductID, err = hotplug.ParseID(pid); err != nil {
				return UsageError{Err: fmt.Errorf("--pid: %w", err)}
			}

			if err := env.hotplugHelper().Notify(cmd.Context(), info); err != nil {
				return err
			}
			fmt.Fprintln(env.Stdout, "notification sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&devPath, "devpath", "", "sysfs path of the device")
	cmd.Flags().StringVar(&vid, "vid", "0", "USB vendor id (hex)")
	cmd.Flags().StringVar(&pid, "pid", "0", "USB product id (hex)")
	return cmd
}

func newHotplugWatchCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Forward kernel USB device events until interrupted",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			helper := env.hotplugHelper()
			monitor := hotplug.NewMonitor(env.Config().Hotplug.Subsystem, func(ctx context.Context, action string, info eruption.HotplugInfo) error {
				fmt.Fprintf(env.Stdout, "%s %s %04x:%04x\n", action, info.DevPath, info.USBVendorID, info.USBProductID)
				return helper.Notify(ctx, info)
			}, env.logger)
			return monitor.Run(cmd.Context())
		},
	}
}
