package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewPosterCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "poster <title>",
		Short: "Look up a poster URL on TMDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			url, err := a.Posters.Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("poster for %q: %w", args[0], err)
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"title": args[0], "poster_url": url})
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
