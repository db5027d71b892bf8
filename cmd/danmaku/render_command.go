package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"danmaku/internal/dandanplay"
	"danmaku/internal/fingerprint"
	"danmaku/internal/overlay"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		episodeID int64
		shift     float64
		duration  int
		output    string
	)
	cmd := &cobra.Command{
		Use:   "render <video>",
		Short: "Fetch comments and write the ASS overlay without a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(ctx)
			if err != nil {
				return err
			}
			video := args[0]
			if !fingerprint.IsRemote(video) {
				if abs, absErr := filepath.Abs(video); absErr == nil {
					video = abs
				}
			}

			label := fmt.Sprintf("episode %d", episodeID)
			if episodeID == 0 {
				identity, err := fingerprint.Compute(cmd.Context(), video)
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
				episodeID = match.EpisodeID
				label = match.Label()
				if !cmd.Flags().Changed("shift") {
					shift = match.Shift
				}
			}

			raws, err := client.Comments(cmd.Context(), episodeID, nil)
			if err != nil {
				return err
			}
			doc := overlay.NewCompositor(overlay.LayoutFromConfig(cfg.Overlay)).Build(raws, shift)

			output = strings.TrimSpace(output)
			if output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), doc.String())
				return err
			}
			target, err := writeDocument(cfg.Paths.ProfileDir, video, output, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d comments for %s to %s\n", doc.Len(), label, target)
			return nil
		},
	}
	cmd.Flags().Int64Var(&episodeID, "episode", 0, "Skip matching and use this episode id")
	cmd.Flags().Float64Var(&shift, "shift", 0, "Seconds added to every comment time")
	cmd.Flags().IntVar(&duration, "duration", 0, "Video duration in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the overlay here instead of the profile directory (- for stdout)")
	return cmd
}

func writeDocument(profileDir, video, output string, doc overlay.Document) (string, error) {
	if output == "" {
		return overlay.WriteArtifact(profileDir, video, doc)
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, []byte(doc.String()), 0o644); err != nil {
		return "", fmt.Errorf("write overlay: %w", err)
	}
	return output, nil
}
