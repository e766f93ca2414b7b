package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSearchCmd(open opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search catalog titles by substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			titles := a.Recommender.Search(args[0], limit)
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), titles)
			}
			for _, t := range titles {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of titles")
	return cmd
}
