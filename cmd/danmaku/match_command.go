package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"danmaku/internal/dandanplay"
	"danmaku/internal/fingerprint"
	"danmaku/internal/logging"
)

type matchOutput struct {
	Video        string  `json:"video"`
	FileName     string  `json:"file_name"`
	Hash         string  `json:"hash,omitempty"`
	Size         *int64  `json:"size,omitempty"`
	EpisodeID    int64   `json:"episode_id"`
	AnimeTitle   string  `json:"anime_title"`
	EpisodeTitle string  `json:"episode_title"`
	Shift        float64 `json:"shift"`
	Confident    bool    `json:"confident"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var duration int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "match <video>",
		Short: "Fingerprint a video and look up its dandanplay episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(ctx)
			if err != nil {
				return err
			}
			identity, err := fingerprint.Compute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			match, err := client.Lookup(cmd.Context(), dandanplay.MatchQuery{
				FileName: identity.Name,
				Size:     identity.Size,
				Hash:     identity.Hash,
				Duration: duration,
			})
			if err != nil {
				return err
			}

			result := matchOutput{
				Video:        args[0],
				FileName:     identity.Name,
				Hash:         identity.Hash,
				Size:         identity.Size,
				EpisodeID:    match.EpisodeID,
				AnimeTitle:   match.AnimeTitle,
				EpisodeTitle: match.EpisodeTitle,
				Shift:        match.Shift,
				Confident:    match.Confident,
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episode:    %s\n", match.Label())
			fmt.Fprintf(out, "Episode ID: %d\n", match.EpisodeID)
			fmt.Fprintf(out, "Shift:      %ss\n", strconv.FormatFloat(match.Shift, 'f', -1, 64))
			fmt.Fprintf(out, "Confident:  %s\n", yesNo(match.Confident))
			if identity.HasHash() {
				fmt.Fprintf(out, "Hash:       %s\n", identity.Hash)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&duration, "duration", 0, "Video duration in seconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// newAPIClient builds a dandanplay client sharing the daemon's token cache.
func newAPIClient(ctx *commandContext) (*dandanplay.Client, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return dandanplay.NewClient(cfg.Dandanplay, cfg.TokenPath(), dandanplay.WithLogger(logging.NewNop()))
}
