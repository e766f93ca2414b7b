package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/user/cinematch/internal/app"
	"github.com/user/cinematch/internal/config"
)

// appLoader 按命令行覆盖项创建 App，测试中可替换
type appLoader func(strategy string) (*app.App, error)

func loadApp(strategy string) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if strategy != "" {
		cfg.Recommend.Strategy = strategy
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return app.New(cfg)
}

func NewRootCmd(version string, load appLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cinematch",
		Short:         "Content-based movie recommendations",
		Long:          `Find movies similar to a given title using TF-IDF tag vectors or sentence embeddings.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("strategy", "", "Vectorizer strategy (tfidf|embedding), overrides config")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	open := func(cmd *cobra.Command) (*app.App, error) {
		strategy, _ := cmd.Flags().GetString("strategy")
		return load(strategy)
	}

	rootCmd.AddCommand(
		NewRecommendCmd(open),
		NewSearchCmd(open),
		NewPosterCmd(open),
		NewSyncDBCmd(open),
		NewNearestCmd(open),
	)
	return rootCmd
}

type opener func(cmd *cobra.Command) (*app.App, error)

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
