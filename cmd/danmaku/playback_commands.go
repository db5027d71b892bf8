package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"danmaku/internal/ipc"
)

func newPlaybackCommands(ctx *commandContext) []*cobra.Command {
	var duration int
	playCmd := &cobra.Command{
		Use:   "play <video>",
		Short: "Tell the daemon a video started playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Play(args[0], duration)
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Loading danmaku for", args[0])
				return nil
			})
		},
	}
	playCmd.Flags().IntVar(&duration, "duration", 0, "Video duration in seconds, improves matching")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Cancel the in-flight danmaku run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback stop sent")
				return nil
			})
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Make the daemon re-read its configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload()
				if err != nil {
					return err
				}
				if !resp.Reloaded {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings reload queued")
				return nil
			})
		},
	}

	return []*cobra.Command{playCmd, stopCmd, reloadCmd}
}
