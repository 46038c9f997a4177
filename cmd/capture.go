package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/internal/config"
	"github.com/spf13/cobra"
)

var exit = os.Exit

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	return exitOnError(newCaptureCmd(nil))
}

func newCaptureCmd(open capture.Opener) *cobra.Command {
	flags := &deviceFlags{open: open}
	var (
		timeout      time.Duration
		saveSettings bool
	)

	cmd := &cobra.Command{
		Use:   "capture <output>",
		Short: "Capture one frame to a file",
		Long: "Opens the device, negotiates format and controls from the config file and flags, " +
			"captures a single frame and writes its raw bytes to <output> (\"-\" for stdout). " +
			"With --save-settings the negotiated settings are written back to the config file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.initLogging()
			svc, err := flags.service(cmd, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var res *capture.Result
			if args[0] == "-" {
				res, err = svc.Capture(ctx)
				if err == nil {
					_, err = cmd.OutOrStdout().Write(res.Data)
				}
			} else {
				res, err = svc.CaptureToFile(ctx, args[0])
			}
			if err != nil {
				return err
			}

			if saveSettings {
				if err := config.SaveDeviceSettings(flags.configFile, res.Settings); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				logger.Info("Negotiated settings saved", "config", flags.configFile)
			}
			if args[0] != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %dx%d %d bytes -> %s\n",
					res.PixelFormat, res.Width, res.Height, len(res.Data), args[0])
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up when no frame arrives in time")
	cmd.Flags().BoolVar(&saveSettings, "save-settings", false, "Write the negotiated settings to the config file")
	return cmd
}
