package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"danmaku/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		raw    bool
		filter logs.Filter
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DaemonLogPath()
			out := cmd.OutOrStdout()

			scan := lines
			if filter.Active() {
				// Filtering happens after the tail, so read further back.
				scan = lines * 20
			}
			tail, offset, err := logs.Last(path, scan)
			if err != nil {
				return err
			}
			var matched []string
			for _, line := range tail {
				if rendered, ok := renderLogLine(line, filter, raw); ok {
					matched = append(matched, rendered)
				}
			}
			if len(matched) > lines {
				matched = matched[len(matched)-lines:]
			}
			for _, line := range matched {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			follower := &logs.Follower{Path: path, Offset: offset}
			return follower.Follow(cmd.Context(), func(line string) {
				printLogLine(out, line, filter, raw)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unchanged")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only show records for this run id")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show records from this component")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}

func printLogLine(out io.Writer, line string, filter logs.Filter, raw bool) {
	if rendered, ok := renderLogLine(line, filter, raw); ok {
		fmt.Fprintln(out, rendered)
	}
}

func renderLogLine(line string, filter logs.Filter, raw bool) (string, bool) {
	rec, ok := logs.Parse(line)
	if !ok {
		return line, !filter.Active()
	}
	if !filter.Match(rec) {
		return "", false
	}
	if raw {
		return line, true
	}
	return logs.Format(rec), true
}
