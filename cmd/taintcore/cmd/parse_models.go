package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/pkg/taintcore"
)

var (
	parseModelsSourceURL string
	parseModelsConfigURL string
	parseModelsVerify    bool
)

var parseModelsCmd = &cobra.Command{
	Use:   "parse-models",
	Short: "Parse a model-source document and print the resulting callable summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runParseModels(context.Background(), parseModelsSourceURL, parseModelsConfigURL, parseModelsVerify)
		if err != nil {
			if taintcoreerr.IsInvalidModel(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), warn("invalid model: "+err.Error()))
			}
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range sortedKeys(res.Models) {
			fprintModel(out, name, res.Models[name])
		}
		if len(res.GlobalSinks) > 0 {
			fmt.Fprintln(out, "globals:")
			fprintEnvironment(out, "  sink  ", res.GlobalSinks)
		}
		return nil
	},
}

// runParseModels loads sourceURL (and, if set, configURL) via afs and
// parses the model-source document they name. Split out from RunE so
// CLI-integration tests can exercise the parsing outcome directly,
// without scraping printed output.
func runParseModels(ctx context.Context, sourceURL, configURL string, verify bool) (taintcore.ParseResult, error) {
	fs := afs.New()

	cfg, err := loadConfiguration(ctx, fs, configURL)
	if err != nil {
		return taintcore.ParseResult{}, err
	}
	source, err := loadSource(ctx, fs, sourceURL)
	if err != nil {
		return taintcore.ParseResult{}, err
	}
	return taintcore.ParseModels(source, cliResolver{}, cfg, taintcore.ModelOptions{Verify: verify})
}

func sortedKeys(models map[string]taintcore.Model) []string {
	out := make([]string, 0, len(models))
	for name := range models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	parseModelsCmd.Flags().StringVar(&parseModelsSourceURL, "source", "", "afs URL of the model-source document (required)")
	parseModelsCmd.Flags().StringVar(&parseModelsConfigURL, "config", "", "afs URL of the Configuration YAML (optional)")
	parseModelsCmd.Flags().BoolVar(&parseModelsVerify, "verify", false, "verify every modeled callable against the resolver")
	_ = parseModelsCmd.MarkFlagRequired("source")
}
