package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"firstboot/internal/pipeline"
	"firstboot/internal/progress"
	"firstboot/internal/status"
	"firstboot/internal/ui"
	"firstboot/internal/util/deps"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "install",
		Aliases:       []string{"run"},
		Short:         "Run the installer (default command)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runInstall,
	}
}

func runInstall(cmd *cobra.Command, _ []string) error {
	c, err := configFrom(cmd)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	gitPath, err := deps.FindGit(c.GitBinary)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}

	opts := c.Options()
	layout := layoutFrom(c)
	svcOpts := []pipeline.Option{
		pipeline.WithGitPath(gitPath),
		pipeline.WithOptions(opts),
		pipeline.WithLayout(layout),
	}
	if opts.Internal {
		params, err := pipeline.LoadBootstrapParams(opts.BootstrapEnv)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		svcOpts = append(svcOpts, pipeline.WithBootstrapParams(params))
	}

	statusFile := status.NewFile(layout.StatusFile)
	install := func(ctx context.Context, rep progress.Reporter) error {
		all := append([]pipeline.Option{pipeline.WithReporter(progress.Multi(statusFile, rep))}, svcOpts...)
		_, err := pipeline.NewService(all...).Run(ctx)
		return err
	}

	if !opts.NoUI && isTerminal() {
		err = ui.Run(cmd.Context(), install, opts.Verbose)
	} else {
		err = install(cmd.Context(), ui.NewPlain(cmd.OutOrStdout(), opts.Verbose))
	}
	if err != nil {
		return &ExitError{Code: ExitInstallError, Err: err}
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
