package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = ""

func displayVersion() string {
	if version != "" {
		return version
	}
	return "dev"
}

// options are shared by every subcommand.
type options struct {
	dataDir    string
	configPath string
	logLevel   string
	logPath    string

	logFile io.Closer
}

func (o *options) settingsPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return filepath.Join(o.dataDir, "settings.json")
}

// markerPath exists while a warm ramp is on the hardware.
func (o *options) markerPath() string {
	return filepath.Join(o.dataDir, "gamma.applied")
}

func (o *options) setup() error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("locate config dir: %w", err)
	}
	o.dataDir = filepath.Join(dir, "Restlight")
	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	o.logPath = filepath.Join(o.dataDir, "log.txt")
	f, err := setupLogging(o.logPath, o.logLevel)
	if err != nil {
		return err
	}
	o.logFile = f
	return nil
}

func (o *options) teardown() {
	if o.logFile != nil {
		_ = o.logFile.Close()
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "restlight",
		Short:         "Night light, screen dimmer and break reminders in the tray",
		Version:       displayVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "settings file (default <user config dir>/Restlight/settings.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newResetGammaCmd(opts))
	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newResetGammaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-gamma",
		Short: "Write a linear gamma ramp, undoing a warm ramp left by a killed process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resetGamma(opts.markerPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "gamma ramp reset")
			return nil
		},
	}
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print the virtual screen, gamma ramp and monitor brightness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Restlight %s\n", displayVersion())
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("restlight failed")
		fmt.Fprintln(os.Stderr, "restlight:", err)
		os.Exit(1)
	}
}
