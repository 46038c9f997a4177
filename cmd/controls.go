package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateControlsCmd creates the controls command.
func CreateControlsCmd() *cobra.Command {
	return exitOnError(newControlsCmd(nil))
}

func newControlsCmd(open capture.Opener) *cobra.Command {
	flags := &deviceFlags{open: open}

	cmd := &cobra.Command{
		Use:   "controls [control...]",
		Short: "Show device controls",
		Long:  "Shows range, default and current value of the named controls, or of every known control the device supports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.initLogging()
			svc, err := flags.service(cmd, nil)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				values, err := svc.Controls()
				if err != nil {
					return err
				}
				return printControls(cmd.OutOrStdout(), values)
			}

			values := make([]v4l2.DeviceValue, 0, len(args))
			for _, name := range args {
				id, err := v4l2.ParseControl(name)
				if err != nil {
					return err
				}
				v, err := svc.Control(id)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				values = append(values, v)
			}
			return printControls(cmd.OutOrStdout(), values)
		},
	}
	flags.register(cmd)
	return cmd
}

func printControls(w io.Writer, values []v4l2.DeviceValue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tMIN\tMAX\tSTEP\tDEFAULT\tCURRENT\tFLAGS")
	for _, v := range values {
		flags := ""
		switch {
		case v.Disabled():
			flags = "disabled"
		case v.ReadOnly():
			flags = "read-only"
		case v.Inactive():
			flags = "inactive"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			v.ID, v.Type, v.Minimum, v.Maximum, v.Step, v.Default, v.Current, flags)
	}
	return tw.Flush()
}
