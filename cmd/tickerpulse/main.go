// tickerpulse serves and prints headline sentiment and risk narratives for
// stock tickers.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/seenimoa/tickerpulse/api"
	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/logging"
	"github.com/seenimoa/tickerpulse/internal/pipeline"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tickerpulse",
	Short: "Headline sentiment and risk narratives for stock tickers",
	Long: `tickerpulse fetches the last ten days of news headlines for a ticker,
classifies their sentiment and blends the result with price and beta into a
plain-English risk narrative. It runs as an HTTP API or as a one-shot CLI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sentimentCmd)
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(statusCmd)
}

func newPipeline() (*pipeline.Pipeline, error) {
	return pipeline.NewFromConfig(cfg, logger)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tickerpulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		pipe, err := newPipeline()
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, pipe, logger, version)
		logger.Info("starting tickerpulse",
			zap.String("version", version),
			zap.String("classifier", pipe.ClassifierName()),
			zap.String("config_file", cfg.File()))
		return srv.ListenAndServe(cmd.Context(), cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [symbol]",
	Short: "Fetch and classify the last 10 days of headlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline()
		if err != nil {
			return err
		}
		report, err := pipe.News(cmd.Context(), args[0])
		if report != nil {
			if perr := printJSON(report); perr != nil {
				return perr
			}
		}
		return err
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Summarize headline sentiment into a plain-English narrative",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		asJSON := !term.IsTerminal(int(os.Stdout.Fd()))
		if cmd.Flags().Changed("json") {
			asJSON, _ = cmd.Flags().GetBool("json")
		}

		pipe, err := newPipeline()
		if err != nil {
			return err
		}
		report, err := pipe.Analyze(cmd.Context(), args[0], text)
		if report == nil {
			return err
		}
		if asJSON {
			if perr := printJSON(report); perr != nil {
				return perr
			}
			return err
		}

		fmt.Printf("%s  %s  (%d positive, %d negative, %d neutral)\n\n",
			report.Symbol, report.Tilt, report.Tally.Positive, report.Tally.Negative, report.Tally.Neutral)
		for _, h := range report.News {
			fmt.Printf("  [%-8s %4.0f%%] %s\n", h.Sentiment, h.Confidence*100, h.Headline)
		}
		fmt.Println()
		for _, s := range report.Summary {
			fmt.Println(s)
		}
		return err
	},
}

func init() {
	analyzeCmd.Flags().String("text", "", "optional news text to include in the narrative")
	analyzeCmd.Flags().Bool("json", false, "print the full report as JSON (default when stdout is not a terminal)")
}

// --- Sentiment Command ---

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [text]",
	Short: "Classify the sentiment of a piece of text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, _ := cmd.Flags().GetString("symbol")
		pipe, err := newPipeline()
		if err != nil {
			return err
		}
		report, err := pipe.Sentiment(cmd.Context(), symbol, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	sentimentCmd.Flags().String("symbol", pipeline.DefaultSymbol, "symbol to label the result with")
}

// --- Stock Command ---

var stockCmd = &cobra.Command{
	Use:   "stock [symbol]",
	Short: "Show price, beta and beta notes for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := newPipeline()
		if err != nil {
			return err
		}
		snap, err := pipe.Stock(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  tickerpulse System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (UTC):    %s\n", utils.FormatISO(utils.NowUTC()))
		fmt.Println()

		fmt.Println("  Configuration:")
		if f := cfg.File(); f != "" {
			fmt.Printf("    Config File:   %s\n", f)
		}
		fmt.Printf("    Classifier:    %s (concurrency %d)\n", cfg.Classifier.Backend, cfg.Classifier.Concurrency)
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Window:        %d days, max %d headlines\n", cfg.Feeds.RecencyDays, cfg.Feeds.MaxHeadlines)
		for _, s := range cfg.Feeds.Sources {
			fmt.Printf("    Feed:          %s\n", s.Name)
		}
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
