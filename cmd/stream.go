package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/internal/metrics"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

var errFrameLimit = errors.New("frame limit reached")

// CreateStreamCmd creates the stream command.
func CreateStreamCmd() *cobra.Command {
	return exitOnError(newStreamCmd(nil))
}

func newStreamCmd(open capture.Opener) *cobra.Command {
	flags := &deviceFlags{open: open}
	var (
		frames   uint64
		dumpDir  string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Capture continuously",
		Long: "Captures frames until interrupted or --frames is reached, logging frame rate periodically. " +
			"With --watch, control changes in the config file's [device] table are applied while streaming; " +
			"a reload replaces controls set with --set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := flags.initLogging()
			svc, err := flags.service(cmd, nil)
			if err != nil {
				return err
			}
			device := svc.DevicePath()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				w, err := svc.WatchSettings(flags.configFile)
				if err != nil {
					return fmt.Errorf("watch %s: %w", flags.configFile, err)
				}
				defer w.Stop()
			}
			if dumpDir != "" {
				if err := os.MkdirAll(dumpDir, 0o755); err != nil {
					return err
				}
			}

			go logRate(ctx, device, interval, func(fps float64, total uint64) {
				logger.Info("Streaming", "device", device, "fps", fmt.Sprintf("%.1f", fps), "frames", total)
			})

			var n uint64
			err = svc.Stream(ctx, func(data []byte, meta v4l2.FrameMeta) error {
				n++
				if dumpDir != "" {
					name := filepath.Join(dumpDir, fmt.Sprintf("frame-%06d.raw", meta.Sequence))
					if err := os.WriteFile(name, data, 0o644); err != nil {
						return &capture.WriteError{Path: name, Err: err}
					}
				}
				if frames > 0 && n >= frames {
					return errFrameLimit
				}
				return nil
			})
			if errors.Is(err, errFrameLimit) {
				err = nil
			}
			logger.Info("Stream finished", "device", device, "frames", n)
			return err
		},
	}
	flags.register(cmd)
	fs := cmd.Flags()
	fs.Uint64VarP(&frames, "frames", "n", 0, "Stop after this many frames, 0 for no limit")
	fs.StringVar(&dumpDir, "dump", "", "Write every frame into this directory")
	fs.BoolVarP(&watch, "watch", "w", false, "Apply config file control changes while streaming")
	fs.DurationVar(&interval, "stats-interval", 5*time.Second, "How often to log the frame rate")
	return cmd
}

// logRate reports the frame rate of device from its metrics every interval.
func logRate(ctx context.Context, device string, interval time.Duration, report func(fps float64, total uint64)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last uint64
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st := metrics.Stats(device)
			if st == nil {
				continue
			}
			fps := float64(st.Frames-last) / now.Sub(lastAt).Seconds()
			last, lastAt = st.Frames, now
			report(fps, st.Frames)
		}
	}
}
