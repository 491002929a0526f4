package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/coldtrace/taintcore/pkg/taintcore"
)

var mergeConfigURL string

var mergeCmd = &cobra.Command{
	Use:   "merge <callable> <source-a> <source-b>",
	Short: "Parse two model sources and print the model_merge join of one callable's models",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		callable, urlA, urlB := args[0], args[1], args[2]
		merged, err := runMerge(context.Background(), callable, urlA, urlB, mergeConfigURL)
		if err != nil {
			return err
		}
		fprintModel(cmd.OutOrStdout(), callable, merged)
		return nil
	},
}

// runMerge loads the model callable declares in each of urlA and urlB
// and returns their model_merge join. Split out from RunE so
// CLI-integration tests can assert on the merged Model directly.
func runMerge(ctx context.Context, callable, urlA, urlB, configURL string) (taintcore.Model, error) {
	fs := afs.New()

	cfg, err := loadConfiguration(ctx, fs, configURL)
	if err != nil {
		return taintcore.Model{}, err
	}
	a, err := loadModel(ctx, fs, urlA, cfg, callable)
	if err != nil {
		return taintcore.Model{}, err
	}
	b, err := loadModel(ctx, fs, urlB, cfg, callable)
	if err != nil {
		return taintcore.Model{}, err
	}
	return taintcore.MergeModels(a, b), nil
}

func loadModel(ctx context.Context, fs afs.Service, url string, cfg taintcore.Configuration, callable string) (taintcore.Model, error) {
	source, err := loadSource(ctx, fs, url)
	if err != nil {
		return taintcore.Model{}, err
	}
	res, err := taintcore.ParseModels(source, cliResolver{}, cfg, taintcore.ModelOptions{})
	if err != nil {
		return taintcore.Model{}, fmt.Errorf("%s: %w", url, err)
	}
	m, ok := res.Models[callable]
	if !ok {
		return taintcore.Model{}, fmt.Errorf("%s: no model declared for %q", url, callable)
	}
	return m, nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeConfigURL, "config", "", "afs URL of the Configuration YAML shared by both sources (optional)")
}
