package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnqueueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "enqueue <report|cleanup|reminder>",
		Short:     "Enqueue a background task for immediate processing",
		ValidArgs: []string{"report", "cleanup", "reminder"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Enqueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (id=%s, queue=%s)\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
}
