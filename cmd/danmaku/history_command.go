package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"danmaku/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var video string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent danmaku runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit, video)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No playback history")
					return nil
				}
				fmt.Fprint(out, renderHistory(resp.Entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&video, "video", "", "Only show runs for this video path")
	return cmd
}

func renderHistory(entries []ipc.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.FinishedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(entry.Video),
			entry.Outcome,
			entry.Episode,
			strconv.Itoa(entry.Comments),
			entry.FinishedAt.Sub(entry.StartedAt).Round(10 * time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Finished", "Video", "Outcome", "Episode", "Comments", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}
