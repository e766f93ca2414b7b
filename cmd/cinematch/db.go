package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSyncDBCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-db",
		Short: "Write catalog embeddings to the pgvector mirror",
		Long:  `Encode every catalog movie with the embedding model and upsert the vectors into PostgreSQL (requires DATABASE_URL).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.CheckEncoder(cmd.Context()); err != nil {
				return err
			}
			result, err := a.SyncDatabase(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d, skipped %d, deleted %d\n", result.Upserted, result.Skipped, result.Deleted)
			return nil
		},
	}
}

func NewNearestCmd(open opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "nearest <title>",
		Short: "Query the pgvector mirror for nearest neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			movies, err := a.Nearest(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), movies)
			}
			for i, m := range movies {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s  %.3f\n", i+1, m.Title, m.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of neighbours")
	return cmd
}
