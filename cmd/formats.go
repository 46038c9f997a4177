package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	return exitOnError(newFormatsCmd(nil))
}

func newFormatsCmd(open capture.Opener) *cobra.Command {
	flags := &deviceFlags{open: open}
	var sizes bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported pixel formats",
		Long:  "Lists the pixel formats of the device. With --sizes every frame size and frame rate is listed too.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.initLogging()
			svc, err := flags.service(cmd, nil)
			if err != nil {
				return err
			}

			formats, err := svc.Formats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !sizes {
				return printFormats(out, formats)
			}
			for _, f := range formats {
				res, err := svc.Resolutions(f.PixelFormat)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (%s)\n", f.PixelFormat, f.Description)
				printResolutions(out, res)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&sizes, "sizes", false, "Also list frame sizes and frame rates")
	return cmd
}

func printFormats(w io.Writer, formats []v4l2.FormatInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FOURCC\tDESCRIPTION\tFLAGS")
	for _, f := range formats {
		var flags []string
		if f.Compressed {
			flags = append(flags, "compressed")
		}
		if f.Emulated {
			flags = append(flags, "emulated")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.PixelFormat, f.Description, strings.Join(flags, ","))
	}
	return tw.Flush()
}

func printResolutions(w io.Writer, res []capture.ResolutionInfo) {
	for _, r := range res {
		switch r.Type {
		case v4l2.ResolutionDiscrete:
			fmt.Fprintf(w, "  %dx%d", r.MaxWidth, r.MaxHeight)
			for i, iv := range r.Intervals {
				sep := " @"
				if i > 0 {
					sep = ","
				}
				fmt.Fprintf(w, "%s %.4g", sep, iv.Min.FPS())
			}
			fmt.Fprintln(w)
		default:
			fmt.Fprintf(w, "  %dx%d - %dx%d step %d/%d (%s)\n",
				r.MinWidth, r.MinHeight, r.MaxWidth, r.MaxHeight, r.StepWidth, r.StepHeight, r.Type)
		}
	}
}
