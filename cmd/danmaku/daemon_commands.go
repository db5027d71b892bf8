package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"danmaku/internal/daemonctl"
	"danmaku/internal/ipc"
	"danmaku/internal/preflight"
)

const daemonBinary = "danmakud"

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Launch danmakud in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(exe, daemonLaunchOptions(ctx, logLevel), 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	shutdownCmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Terminate the danmakud process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Terminate(ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	var probe bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, player and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			var status *ipc.StatusResponse
			if client, err := ipc.Dial(ctx.socketPath()); err == nil {
				status, err = client.Status()
				client.Close()
				if err != nil {
					return fmt.Errorf("query daemon status: %w", err)
				}
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonLines(status, time.Now(), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			var checks []ipc.CheckResult
			if status != nil {
				checks = status.Checks
			}
			if status == nil || probe {
				checks = nil
				for _, r := range preflight.RunAll(cmd.Context(), ctx.configValue(), probe) {
					checks = append(checks, ipc.CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
			}
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range checkLines(checks, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&probe, "probe", false, "Also check that the dandanplay API is reachable")

	return []*cobra.Command{startCmd, shutdownCmd, statusCmd}
}

// daemonExecutable prefers a danmakud installed next to this binary.
func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), daemonBinary)
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(daemonBinary)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", daemonBinary, err)
	}
	return path, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: ctx.socketPath(),
		ConfigPath: ctx.configFlagValue(),
		LogLevel:   strings.TrimSpace(logLevel),
	}
}
