package cmd

import (
	"fmt"
	"strings"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/spf13/cobra"
)

// CreateInfoCmd creates the info command.
func CreateInfoCmd() *cobra.Command {
	return exitOnError(newInfoCmd(nil))
}

func newInfoCmd(open capture.Opener) *cobra.Command {
	flags := &deviceFlags{open: open}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show driver and capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.initLogging()
			svc, err := flags.service(cmd, nil)
			if err != nil {
				return err
			}
			c, err := svc.Capability()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Device:       %s\n", svc.DevicePath())
			fmt.Fprintf(out, "Driver:       %s\n", c.Driver)
			fmt.Fprintf(out, "Card:         %s\n", c.Card)
			fmt.Fprintf(out, "Bus info:     %s\n", c.BusInfo)
			fmt.Fprintf(out, "Version:      %d.%d.%d\n", c.Version>>16&0xff, c.Version>>8&0xff, c.Version&0xff)
			fmt.Fprintf(out, "Capabilities: %s\n", strings.Join(c.Names(), ", "))
			if !c.CanCapture() || !c.CanStream() {
				fmt.Fprintln(out, "Warning: node cannot be used for streaming capture")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
