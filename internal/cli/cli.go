// Package cli defines the minivsfs command line.
package cli

import (
	"fmt"
	"os"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"minivsfs/internal/config"
	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem"
)

type rootOptions struct {
	clock clock.Clock
	cfg   *config.Config

	configFile string
	logLevel   string
	logFormat  string
}

// NewRootCommand returns the minivsfs command tree. Timestamps written to
// images come from clk.
func NewRootCommand(clk clock.Clock) *cobra.Command {
	c := &rootOptions{clock: clk}

	cmd := &cobra.Command{
		Use:           "minivsfs",
		Short:         "Build and edit MiniVSFS disk images",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	installGlobalFlags(c, cmd.PersistentFlags())

	cmd.AddCommand(
		newMkfsCommand(c),
		newAddCommand(c),
		newLsCommand(c),
		newCatCommand(c),
		newCheckCommand(c),
	)
	return cmd
}

func installGlobalFlags(c *rootOptions, flags *pflag.FlagSet) {
	flags.StringVar(&c.configFile, "config", "", "Configuration file (default $"+config.EnvConfigPath+")")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
}

func (c *rootOptions) setup(cmd *cobra.Command) error {
	path := c.configFile
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, format := cfg.LogLevel, cfg.LogFormat
	if c.logLevel != "" {
		level = c.logLevel
	}
	if c.logFormat != "" {
		format = c.logFormat
	}
	if err := log.SetLevel(level); err != nil {
		return fmt.Errorf("%w: log level %q", errs.ErrIllegalArgument, level)
	}
	if err := log.SetFormat(log.OutputFormat(format)); err != nil {
		return fmt.Errorf("%w: log format %q", errs.ErrIllegalArgument, format)
	}
	log.L.Logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

func (c *rootOptions) options() filesystem.Options {
	return filesystem.Options{
		Policy:    c.cfg.LayoutPolicy(),
		Owner:     c.cfg.InodeOwner(),
		ProjectId: c.cfg.ProjectId,
		Clock:     c.clock,
	}
}
