package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/haveachin/bytecode/internal/watch"
	"github.com/haveachin/bytecode/pkg/bytecode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rowWidth   = bytecode.DefaultRowWidth
	color      = true
	skip       = 0
	watchInput = false

	dumpCmd = &cobra.Command{
		Use:   "dump FILE",
		Short: "Prints a hex dump of a file",
		Long:  "Prints a hex dump of FILE. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := dumpFile(cmd, name); err != nil {
				return err
			}

			if !cfg.Watch || name == "-" {
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			defer cancel()

			logger.Info("watching file", zap.String("file", name))
			w := watch.New(name, func() {
				if err := dumpFile(cmd, name); err != nil {
					logger.Error("failed to dump file",
						zap.String("file", name),
						zap.Error(err),
					)
				}
			}, logger)
			return w.Watch(ctx)
		},
	}
)

func init() {
	dumpCmd.Flags().IntVarP(&rowWidth, "row-width", "w", rowWidth, "number of bytes per row")
	dumpCmd.Flags().BoolVar(&color, "color", color, "highlight the header and the current position")
	dumpCmd.Flags().IntVarP(&skip, "skip", "s", skip, "number of bytes to advance before dumping")
	dumpCmd.Flags().BoolVar(&watchInput, "watch", watchInput, "dump again whenever the file changes")
}

func dumpFile(cmd *cobra.Command, name string) error {
	res, err := newLoader().Load(name)
	if err != nil {
		return err
	}

	c := res.Cursor
	c.Advance(cfg.Dump.Skip)
	if c.IsEnd() && cfg.Dump.Skip > 0 {
		logger.Warn("skipped past the end of the input",
			zap.String("file", name),
			zap.Int("skip", cfg.Dump.Skip),
			zap.Int("len", c.Len()),
		)
	}

	return c.Dump(cmd.OutOrStdout(), bytecode.DumpOptions{
		RowWidth: cfg.Dump.RowWidth,
		Color:    cfg.Dump.Color,
	})
}
