package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-downloader/internal/acquire"
	"github.com/pdiddy/paper-downloader/internal/httputil"
	"github.com/pdiddy/paper-downloader/internal/linkcache"
	"github.com/pdiddy/paper-downloader/internal/merge"
	"github.com/pdiddy/paper-downloader/internal/pipeline"
	"github.com/pdiddy/paper-downloader/internal/resolve"
	"github.com/pdiddy/paper-downloader/internal/scholar"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

// elePathExample is a title path as the titles command and the debug report
// print it: one [tag, attribute values...] step per element, root first.
const elePathExample = `[["#document",null],["html",null],["body",null],["div","title"]]`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, resolve, download and merge the papers of a conference",
	Long: `Run every stage whose artifact is missing:

  1. manifest    fetch --url and record the structural paths holding titles
  2. paper list  extract the titles through the manifest
  3. links       look up candidate PDF links for every title
  4. download    fetch one PDF per paper (into --pdf-folder with --store)
  5. merge       splice the --merge pages of every paper into --merge-file

Artifacts of a named --conference live in --url-folder and are reused on the
next run. Without --conference the run is throwaway and works in --temp-folder.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringP("url", "u", "", "conference page listing the papers")
	f.StringArrayP("ele", "e", nil, "structural path holding titles, as JSON (repeatable), e.g. '"+elePathExample+"'")
	f.StringArrayP("attrs", "a", []string{"class"}, "attribute included in structural paths (repeatable)")
	f.StringP("conference", "c", "", "conference identifier naming the artifacts")
	f.BoolP("store", "s", false, "keep downloaded papers in --pdf-folder")
	f.IntSliceP("merge", "m", nil, "1-indexed page to merge from every paper (repeatable)")
	f.String("merge-file", pipeline.DefaultMergeFile, "merged output filename inside --pdf-folder")
	f.DurationP("delay", "d", 0, "pause between resolver queries")
	f.String("pdf-folder", pipeline.DefaultPDFDir, "folder for downloaded and merged PDFs")
	f.String("url-folder", pipeline.DefaultURLDir, "folder for manifests, paper lists and link lists")
	f.String("temp-folder", pipeline.DefaultTempDir, "scratch folder, removed after a successful run")
	f.String("debug-file", pipeline.DefaultDebugFile, "bucket report written with --debug")
	f.Bool("fix-pdf-url", false, "re-resolve papers whose stored link list is empty")
	f.String("cache-db", "", "SQLite database of resolved links shared across conferences")
	addResolverFlags(f)

	for key, flag := range map[string]string{
		"url":         "url",
		"ele":         "ele",
		"attrs":       "attrs",
		"conference":  "conference",
		"store":       "store",
		"merge":       "merge",
		"merge_file":  "merge-file",
		"delay":       "delay",
		"pdf_folder":  "pdf-folder",
		"url_folder":  "url-folder",
		"temp_folder": "temp-folder",
		"debug_file":  "debug-file",
		"fix_pdf_url": "fix-pdf-url",
		"cache_db":    "cache-db",
	} {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	rcfg, err := resolverConfig(cmd)
	if err != nil {
		return err
	}

	hc := httputil.NewClient(httpConfig(), logger)
	sc := scholar.NewClient(hc, types.ScholarConfig{HTTPConfig: httpConfig()}, logger)

	p := pipeline.New(cfg,
		acquire.NewFetcher(hc, logger),
		resolve.New(sc, rcfg, logger),
		merge.New(cfg.TempDir, logger),
		logger, os.Stdout)

	if cfg.CacheDB != "" {
		store, err := linkcache.NewStore(cfg.CacheDB)
		if err != nil {
			return fmt.Errorf("opening link cache: %w", err)
		}
		defer store.Close()
		p.Cache = store
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("run finished",
		"conference", report.Conference,
		"stages", report.Stages,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Download != nil && report.Download.Failed > 0 {
		logger.Warn("some downloads failed", "count", report.Download.Failed)
	}
	return nil
}

// pipelineConfig assembles the run configuration from flags, environment and
// config file.
func pipelineConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.PipelineConfig{
		URL:        viper.GetString("url"),
		Attrs:      stringList(cmd, "attrs"),
		Conference: viper.GetString("conference"),
		Store:      viper.GetBool("store"),
		MergeFile:  viper.GetString("merge_file"),
		Delay:      viper.GetDuration("delay"),
		PDFDir:     viper.GetString("pdf_folder"),
		URLDir:     viper.GetString("url_folder"),
		TempDir:    viper.GetString("temp_folder"),
		Debug:      viper.GetBool("debug"),
		DebugFile:  viper.GetString("debug_file"),
		FixLinks:   viper.GetBool("fix_pdf_url"),
		CacheDB:    viper.GetString("cache_db"),
	}

	for _, raw := range stringList(cmd, "ele") {
		path, err := types.ParseStructuralPath(raw)
		if err != nil {
			return cfg, fmt.Errorf("--ele %s: %w", raw, err)
		}
		cfg.Paths = append(cfg.Paths, path)
	}

	if cmd.Flags().Changed("merge") || viper.IsSet("merge") {
		cfg.MergePages = viper.GetIntSlice("merge")
		if cfg.MergePages == nil {
			cfg.MergePages = []int{}
		}
	}
	return cfg, nil
}

// stringList reads a repeatable string flag. Values given on the command line
// are taken verbatim; otherwise the config file or environment supplies them.
// Structural paths contain commas, so the flag value is never split.
func stringList(cmd *cobra.Command, name string) []string {
	if cmd.Flags().Changed(name) {
		values, _ := cmd.Flags().GetStringArray(name)
		return values
	}
	return viper.GetStringSlice(name)
}
