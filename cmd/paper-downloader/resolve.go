package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-downloader/internal/httputil"
	"github.com/pdiddy/paper-downloader/internal/resolve"
	"github.com/pdiddy/paper-downloader/internal/scholar"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <title>",
	Short: "Look up candidate PDF links for one paper title",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	addResolverFlags(resolveCmd.Flags())
	rootCmd.AddCommand(resolveCmd)
}

// addResolverFlags registers the flags shared by every command that queries
// the resolver.
func addResolverFlags(f *pflag.FlagSet) {
	f.Float64("eps", resolve.DefaultEps, "tie band around the best similarity score")
	f.Bool("legacy-words", false, "also run a bag-of-words query and union its results")
	f.String("match-mode", string(types.MatchTieBand), "record selection: tie-band or per-record")
	f.Float64("min-score", 0.9, "similarity floor for per-record selection")
}

// resolverConfig reads the resolver flags of cmd. The flags are bound when the
// command runs because run and resolve share the same keys.
func resolverConfig(cmd *cobra.Command) (types.ResolverConfig, error) {
	for key, flag := range map[string]string{
		"eps":          "eps",
		"legacy_words": "legacy-words",
		"match_mode":   "match-mode",
		"min_score":    "min-score",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return types.ResolverConfig{}, err
		}
	}

	mode := types.MatchMode(viper.GetString("match_mode"))
	switch mode {
	case types.MatchTieBand, types.MatchPerRecord:
	default:
		return types.ResolverConfig{}, fmt.Errorf("unknown match mode %q (want %s or %s)",
			mode, types.MatchTieBand, types.MatchPerRecord)
	}

	return types.ResolverConfig{
		Eps:          viper.GetFloat64("eps"),
		Mode:         mode,
		MinScore:     viper.GetFloat64("min_score"),
		IncludeWords: viper.GetBool("legacy_words"),
	}, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := resolverConfig(cmd)
	if err != nil {
		return err
	}

	hc := httputil.NewClient(httpConfig(), logger)
	sc := scholar.NewClient(hc, types.ScholarConfig{HTTPConfig: httpConfig()}, logger)
	r := resolve.New(sc, cfg, logger)

	candidates, err := r.Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("resolving %q: %w", args[0], err)
	}
	if len(candidates) == 0 {
		fmt.Println("No candidates found.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Score", "Title", "PDF"})
	for i, c := range candidates {
		link := "-"
		if c.PDFURL != nil {
			link = *c.PDFURL
		}
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.3f", resolve.Similarity(args[0], c.Title)),
			c.Title,
			link,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
