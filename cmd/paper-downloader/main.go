// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-downloader CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-downloader/internal/httputil"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured from --debug before any subcommand runs.
var logger = slog.Default()

// rootCmd is the base command for the paper-downloader CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-downloader",
	Short: "Download the papers of an academic conference",
	Long: `paper-downloader scrapes a conference web page for paper titles, looks up
candidate PDF links for each title on Google Scholar, downloads the papers and
optionally merges selected pages of every paper into one PDF.

Every stage writes an artifact (manifest, paper list, link list) and is skipped
when that artifact already exists, so runs can be interrupted and resumed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if viper.GetBool("debug") {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", "path", f)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-downloader.yaml or ~/.config/paper-downloader/paper-downloader.yaml)")
	pf.Bool("debug", false, "verbose logging; with run, also write the bucket report")
	pf.String("user-agent", httputil.DefaultUserAgent, "User-Agent header for HTTP requests")
	pf.String("cookie-file", "cookies.txt", "Netscape cookies.txt file replayed on every request")
	pf.Duration("timeout", httputil.DefaultTimeout, "HTTP request timeout")

	for key, flag := range map[string]string{
		"debug":       "debug",
		"user_agent":  "user-agent",
		"cookie_file": "cookie-file",
		"timeout":     "timeout",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-downloader")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-downloader"))
		}
	}

	viper.SetEnvPrefix("PAPER_DOWNLOADER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// httpConfig returns the shared HTTP settings from flags, environment and
// config file.
func httpConfig() types.HTTPConfig {
	return types.HTTPConfig{
		Timeout:    viper.GetDuration("timeout"),
		UserAgent:  viper.GetString("user_agent"),
		CookieFile: viper.GetString("cookie_file"),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
