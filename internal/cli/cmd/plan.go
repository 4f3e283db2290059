package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firstboot/internal/fetcher"
	"firstboot/internal/finalizer"
	"firstboot/internal/pipeline"
	"firstboot/internal/util"
	"firstboot/internal/util/deps"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "plan",
		Short:         "Show what install would do without touching the filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := configFrom(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			gitPath, err := deps.FindGit(c.GitBinary)
			if err != nil {
				gitPath = "git"
			}
			l := layoutFrom(c)
			src := pipeline.DefaultSource()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Install plan:")
			fmt.Fprintf(out, "- Remote:         %s (%s)\n", src.RemoteURL, src.Branch)
			fmt.Fprintf(out, "- Clock:          wait until year >= %d\n", c.MinYear)
			fmt.Fprintf(out, "- Clean:          %s %s\n", l.Staging, l.Live)
			fmt.Fprintf(out, "- Clone:          %s\n", util.ShellQuote(gitPath, fetcher.CloneArgs(fetcher.Request{
				RemoteURL: src.RemoteURL,
				Branch:    src.Branch,
				Dest:      l.Staging,
			})))
			fmt.Fprintf(out, "- Promote:        %s -> %s\n", l.Staging, l.Live)
			if c.Internal {
				params, err := pipeline.LoadBootstrapParams(c.BootstrapEnv)
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				fmt.Fprintf(out, "- Bootstrap:      %s\n", l.ParamsDir)
				for _, k := range params.Keys() {
					fmt.Fprintf(out, "    %s\n", k)
				}
				fmt.Fprintf(out, "- Push remote:    %s\n", util.ShellQuote(gitPath, finalizer.SetPushURLArgs(l.Live, src.PushURL)))
			} else {
				fmt.Fprintln(out, "- Bootstrap:      disabled")
			}
			fmt.Fprintf(out, "- Handoff script: %s (from %s)\n", l.HandoffScript, l.LaunchScript)
			fmt.Fprintf(out, "- Handoff delay:  %s\n", c.HandoffDelay)
			return nil
		},
	}
}
