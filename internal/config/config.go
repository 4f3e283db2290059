// Package config resolves installer settings from flags, FIRSTBOOT_* env
// vars and an optional config file, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firstboot/internal/build"
	"firstboot/internal/clock"
	"firstboot/internal/dirs"
	"firstboot/internal/model"
)

const envPrefix = "FIRSTBOOT"

// Config is the resolved installer configuration.
type Config struct {
	DataDir       string
	GitBinary     string
	Internal      bool
	BootstrapEnv  string
	HandoffDelay  time.Duration
	ClampProgress bool
	MinYear       int
	NoUI          bool
	Verbose       bool
	Log           coretypes.ServerLogConfig
}

// AddFlags registers every configurable flag on fs. Each is bound to the
// viper key of the same name with dashes replaced by underscores.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", model.DefaultDataDir, "Device data partition")
	_ = fs.MarkHidden("data-dir")
	fs.String("git-binary", "", "Path to git (default: git on PATH)")
	fs.Bool("internal", build.IsInternal(), "Write bootstrap params and set the SSH push remote")
	fs.String("bootstrap-env", "", "KEY=VALUE file merged into bootstrap params")
	fs.Duration("handoff-delay", 60*time.Second, "How long to wait after install before exiting")
	fs.Bool("clamp-progress", false, "Never let the progress bar move backwards")
	fs.Int("min-year", clock.DefaultMinYear, "First year the system clock is trusted")
	_ = fs.MarkHidden("min-year")
	fs.Bool("no-ui", false, "Disable the install screen; print plain progress lines")
	fs.BoolP("verbose", "v", false, "Show git commands and output")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.Bool("log-json", false, "Log as JSON")
	fs.String("log-file", "", "Write logs to this file instead of stderr")
}

// Init wires viper with env, flag bindings and the config file search path.
// A missing config file is not an error.
func Init(fs *pflag.FlagSet) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(key(f.Name), f)
	})

	for _, d := range dirs.ConfigDirs(viper.GetString("data_dir")) {
		viper.AddConfigPath(d)
	}
	viper.SetConfigName("config") // config.{yaml|yml|json|toml}

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load returns the resolved configuration. Call Init first.
func Load() (Config, error) {
	c := Config{
		DataDir:       viper.GetString("data_dir"),
		GitBinary:     viper.GetString("git_binary"),
		Internal:      viper.GetBool("internal"),
		BootstrapEnv:  viper.GetString("bootstrap_env"),
		HandoffDelay:  viper.GetDuration("handoff_delay"),
		ClampProgress: viper.GetBool("clamp_progress"),
		MinYear:       viper.GetInt("min_year"),
		NoUI:          viper.GetBool("no_ui"),
		Verbose:       viper.GetBool("verbose"),
		Log: coretypes.ServerLogConfig{
			Level:      viper.GetString("log_level"),
			UseJSON:    viper.GetBool("log_json"),
			Filename:   viper.GetString("log_file"),
			MaxSize:    20,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
	if c.DataDir == "" {
		c.DataDir = model.DefaultDataDir
	}
	if c.HandoffDelay < 0 {
		return c, fmt.Errorf("handoff delay must not be negative: %s", c.HandoffDelay)
	}
	if c.MinYear <= 0 {
		c.MinYear = clock.DefaultMinYear
	}
	return c, nil
}

// Options converts c into runtime options.
func (c Config) Options() model.Options {
	return model.Options{
		DataDir:       c.DataDir,
		GitBinary:     c.GitBinary,
		Internal:      c.Internal,
		BootstrapEnv:  c.BootstrapEnv,
		HandoffDelay:  c.HandoffDelay,
		ClampProgress: c.ClampProgress,
		MinYear:       c.MinYear,
		NoUI:          c.NoUI,
		Verbose:       c.Verbose,
	}
}

// SetupLogging configures the process logger from c.Log.
func SetupLogging(ctx context.Context, c Config) error {
	if c.Verbose && strings.EqualFold(c.Log.Level, "info") {
		c.Log.Level = "debug"
	}
	return log.SetupLog(ctx, &c.Log, "")
}

func key(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}
