package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"firstboot/internal/status"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the state of the last install attempt",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := configFrom(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			path := layoutFrom(c).StatusFile
			snap, err := status.Read(path)
			if errors.Is(err, fs.ErrNotExist) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("no install has run (%s missing)", path)}
			}
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintf(out, "Run:      %s\n", snap.RunID)
			fmt.Fprintf(out, "State:    %s\n", snap.State)
			fmt.Fprintf(out, "Progress: %d%%\n", snap.Percent)
			if snap.Message != "" {
				fmt.Fprintf(out, "Message:  %s\n", snap.Message)
			}
			if snap.InstalledSize != "" {
				fmt.Fprintf(out, "Size:     %s\n", snap.InstalledSize)
			}
			if snap.HandoffScript != "" {
				fmt.Fprintf(out, "Handoff:  %s\n", snap.HandoffScript)
			}
			if snap.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", snap.Error)
			}
			fmt.Fprintf(out, "Updated:  %s\n", snap.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the raw status document")
	return cmd
}
