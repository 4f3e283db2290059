package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"firstboot/internal/clock"
	"firstboot/internal/util"
	"firstboot/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose git, the system clock and the data partition",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := configFrom(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			out := cmd.OutOrStdout()

			git, err := deps.FindGit(c.GitBinary)
			if err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			fmt.Fprintf(out, "Git:       %s\n", git)

			gate := clock.NewGate(clock.WithMinYear(c.MinYear))
			now := time.Now().UTC()
			if gate.Valid() {
				fmt.Fprintf(out, "Clock:     valid (%s)\n", now.Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "Clock:     not yet valid (%s, need year >= %d); install will wait\n", now.Format(time.RFC3339), gate.MinYear())
			}

			l := layoutFrom(c)
			fmt.Fprintf(out, "Data dir:  %s (%s)\n", l.DataDir, presence(util.Exists(l.DataDir)))
			fmt.Fprintf(out, "Live:      %s (%s)\n", l.Live, presence(util.Exists(l.Live)))
			fmt.Fprintf(out, "Handoff:   %s (%s)\n", l.HandoffScript, presence(util.Exists(l.HandoffScript)))
			return nil
		},
	}
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
