package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-downloader/internal/acquire"
	"github.com/pdiddy/paper-downloader/internal/httputil"
	"github.com/pdiddy/paper-downloader/internal/titles"
)

var titlesCmd = &cobra.Command{
	Use:   "titles <url>",
	Short: "Show the text buckets of a conference page",
	Long: `Fetch a conference page and print one row per structural path with the
statistics the title policy looks at. Use it to pick --ele paths by hand when
automatic selection misses the titles. --entries prints every bucket with its
numbered entries instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runTitles,
}

func init() {
	titlesCmd.Flags().StringArrayP("attrs", "a", []string{"class"}, "attribute included in structural paths (repeatable)")
	titlesCmd.Flags().Bool("entries", false, "print the numbered entries of every bucket")
	titlesCmd.Flags().Int("min-size", 1, "hide buckets with fewer entries")
	rootCmd.AddCommand(titlesCmd)
}

func runTitles(cmd *cobra.Command, args []string) error {
	attrs, _ := cmd.Flags().GetStringArray("attrs")
	showEntries, _ := cmd.Flags().GetBool("entries")
	minSize, _ := cmd.Flags().GetInt("min-size")

	f := acquire.NewFetcher(httputil.NewClient(httpConfig(), logger), logger)
	body, contentType, err := f.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	buckets, err := titles.Parse(bytes.NewReader(body), contentType, attrs)
	if err != nil {
		return err
	}

	if showEntries {
		return titles.WriteReport(os.Stdout, buckets, "the manifest")
	}

	policy := titles.DefaultPolicy()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Entries", "Words", "Alpha", "Stop", "Punct", "Title", "Path", "First entry"})
	for i, bk := range buckets.All() {
		if len(bk.Texts) < minSize {
			continue
		}
		s := policy.Evaluate(bk.Texts)
		path, err := json.Marshal(bk.Path)
		if err != nil {
			return fmt.Errorf("encoding path: %w", err)
		}
		accepted := ""
		if policy.Passes(s) {
			accepted = "yes"
		}
		t.AppendRow(table.Row{
			i + 1,
			s.Size,
			fmt.Sprintf("%.1f", s.MeanWords),
			fmt.Sprintf("%.2f", s.MeanAlphaRatio),
			fmt.Sprintf("%.2f", s.StopFraction),
			fmt.Sprintf("%.1f", s.MeanPunctuation),
			accepted,
			string(path),
			truncate(bk.Texts[0], 48),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
