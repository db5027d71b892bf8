// Command danmakud watches the media player and loads danmaku overlays for
// each video that starts playing.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"danmaku/internal/config"
	"danmaku/internal/daemonrun"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:           "danmakud",
		Short:         "Danmaku overlay daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file path")
	flags.StringVar(&opts.SocketPath, "socket", "", "Path to the IPC socket")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	flags.BoolVar(&opts.Development, "dev", false, "Enable development logging")
	return cmd
}
