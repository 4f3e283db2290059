package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"firstboot/internal/build"
	"firstboot/internal/config"
	"firstboot/internal/model"
)

const (
	ExitOK           = 0
	ExitCLIError     = 1
	ExitMissingDep   = 2
	ExitInstallError = 3
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

type ctxKey string

const configKey ctxKey = "config"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "firstboot",
		Short: "Install the device software on first boot",
		Long: "firstboot waits for a valid system clock, shallow-clones the release branch into a staging " +
			"directory, promotes it to the live location, optionally bootstraps device parameters and " +
			"installs the handoff script the boot chain runs next.",
		Version:           build.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfig,
		RunE:              runInstall,
	}

	config.AddFlags(root.PersistentFlags())

	root.AddCommand(newInstallCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root().PersistentFlags()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	c, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := config.SetupLogging(cmd.Context(), c); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	cmd.SetContext(context.WithValue(cmd.Context(), configKey, c))
	return nil
}

func configFrom(cmd *cobra.Command) (config.Config, error) {
	c, ok := cmd.Context().Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return c, nil
}

func layoutFrom(c config.Config) model.Layout {
	return model.NewLayout(c.DataDir)
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
