// Package config loads the optional YAML configuration of the minivsfs
// tools.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/containerd/log"
	"gopkg.in/yaml.v3"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/filesystem/user"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "MINIVSFS_CONFIG"

type Policy struct {
	MinSizeKiB uint64 `yaml:"min_size_kib"`
	MaxSizeKiB uint64 `yaml:"max_size_kib"`
	MinInodes  uint64 `yaml:"min_inodes"`
	MaxInodes  uint64 `yaml:"max_inodes"`
}

type Owner struct {
	Uid uint32 `yaml:"uid"`
	Gid uint32 `yaml:"gid"`
}

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Policy    Policy `yaml:"policy"`
	Owner     Owner  `yaml:"owner"`
	ProjectId uint32 `yaml:"project_id"`
}

func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: string(log.TextFormat),
		Policy: Policy{
			MinSizeKiB: layout.DefaultPolicy.MinSizeKiB,
			MaxSizeKiB: layout.DefaultPolicy.MaxSizeKiB,
			MinInodes:  layout.DefaultPolicy.MinInodes,
			MaxInodes:  layout.DefaultPolicy.MaxInodes,
		},
		ProjectId: inode.DefaultProjectId,
	}
}

// LoadConfig reads path on top of the defaults. An empty path or a
// missing file yields the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, errs.IO("read config", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %w", errs.ErrIllegalArgument, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.LayoutPolicy().Validate(); err != nil {
		return err
	}
	if c.Policy.MaxInodes > layout.BitsPerBitmap {
		return fmt.Errorf("%w: max_inodes %d exceeds %d", errs.ErrIllegalArgument, c.Policy.MaxInodes, layout.BitsPerBitmap)
	}
	switch log.OutputFormat(c.LogFormat) {
	case log.TextFormat, log.JSONFormat:
	default:
		return fmt.Errorf("%w: log_format %q", errs.ErrIllegalArgument, c.LogFormat)
	}
	return nil
}

func (c *Config) LayoutPolicy() layout.Policy {
	return layout.Policy{
		MinSizeKiB: c.Policy.MinSizeKiB,
		MaxSizeKiB: c.Policy.MaxSizeKiB,
		MinInodes:  c.Policy.MinInodes,
		MaxInodes:  c.Policy.MaxInodes,
	}
}

// InodeOwner is the identity stamped into inodes the tools create.
func (c *Config) InodeOwner() user.User {
	if c.Owner.Uid == 0 && c.Owner.Gid == 0 {
		return user.Root()
	}
	return *user.NewUser("", c.Owner.Uid, c.Owner.Gid)
}
