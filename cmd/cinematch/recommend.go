package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/cinematch/internal/model"
)

func NewRecommendCmd(open opener) *cobra.Command {
	var topN int
	var posters bool

	cmd := &cobra.Command{
		Use:   "recommend <title>",
		Short: "Recommend movies similar to a title",
		Example: `  cinematch recommend Avatar
  cinematch recommend "The Dark Knight" -n 5 --posters
  cinematch recommend Avatar --strategy embedding --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if topN <= 0 {
				topN = a.Config.Recommend.TopN
			}
			recs, err := a.Recommender.Recommend(ctx, args[0], topN)
			if err != nil {
				return err
			}
			if posters {
				var g errgroup.Group
				g.SetLimit(4)
				for i := range recs {
					g.Go(func() error {
						if url, ok := a.Posters.Lookup(ctx, recs[i].Movie.Title); ok {
							recs[i].PosterURL = url
						}
						return nil
					})
				}
				g.Wait()
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			printRecommendations(cmd, args[0], a.Recommender.Strategy(), recs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topN, "top", "n", 0, "Number of recommendations (default from config)")
	cmd.Flags().BoolVar(&posters, "posters", false, "Look up poster URLs on TMDB")
	return cmd
}

func printRecommendations(cmd *cobra.Command, title, strategy string, recs []model.Recommendation) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Movies similar to %q (%s):\n", title, strategy)
	if len(recs) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for i, rec := range recs {
		year := ""
		if rec.Movie.Year > 0 {
			year = fmt.Sprintf(" (%d)", rec.Movie.Year)
		}
		fmt.Fprintf(out, "  %d. %s%s  %.3f  %s\n", i+1, rec.Movie.Title, year, rec.Score, rec.Reason)
		if rec.PosterURL != "" {
			fmt.Fprintf(out, "     %s\n", rec.PosterURL)
		}
	}
}
