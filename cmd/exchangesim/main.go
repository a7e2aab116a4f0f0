package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ExchangeSim/internal/analysis"
	"ExchangeSim/internal/app"
	"ExchangeSim/internal/config"
	"ExchangeSim/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		cfgPath     string
		application *app.App
	)

	rootCmd := &cobra.Command{
		Use:           "exchangesim",
		Short:         "Synthetic stock exchange data generator",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if v := os.Getenv("CONFIG_PATH"); v != "" && !c.Flags().Changed("config") {
				cfgPath = v
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			application = app.New(cfg, os.Stdout)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "YAML config file")

	var (
		days       int
		start      string
		sentiment  float64
		volatility float64
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a fresh price history",
		RunE: func(c *cobra.Command, args []string) error {
			opts := app.GenerateOptions{Days: days, Volatility: volatility}
			if start != "" {
				d, err := time.Parse(model.DateLayout, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				opts.Start = &d
			}
			if c.Flags().Changed("sentiment") {
				opts.Sentiment = &sentiment
			}
			return application.Generate(opts)
		},
	}
	generateCmd.Flags().IntVar(&days, "days", 252, "trading days to generate")
	generateCmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: one year ago)")
	generateCmd.Flags().Float64Var(&sentiment, "sentiment", 0, "initial market sentiment in [-1, 1] (default: random)")
	generateCmd.Flags().Float64Var(&volatility, "volatility", 0, "daily volatility (default: configured base volatility)")

	var (
		nextDays       int
		nextVolatility float64
	)
	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Append trading days to the saved history",
		RunE: func(c *cobra.Command, args []string) error {
			return application.Next(nextDays, nextVolatility)
		},
	}
	nextCmd.Flags().IntVar(&nextDays, "days", 1, "trading days to append")
	nextCmd.Flags().Float64Var(&nextVolatility, "volatility", 0, "daily volatility (default: configured base volatility)")

	var (
		ticks  int
		quiet  bool
		quotes bool
	)
	realtimeCmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run one intraday session and merge it into the history",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Realtime(ctx, app.RealtimeOptions{Ticks: ticks, Quiet: quiet, Quotes: quotes})
		},
	}
	realtimeCmd.Flags().IntVar(&ticks, "ticks", 0, "run this many ticks immediately instead of following the cron schedule")
	realtimeCmd.Flags().BoolVar(&quiet, "quiet", false, "do not print every tick")
	realtimeCmd.Flags().BoolVar(&quotes, "quotes", false, "print every company's quote after each tick")

	var (
		top          int
		weeklySymbol string
		weeks        int
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print a market summary of the saved history",
		RunE: func(c *cobra.Command, args []string) error {
			if weeklySymbol != "" {
				return application.Weekly(weeklySymbol, weeks)
			}
			return application.Analyze(top)
		},
	}
	analyzeCmd.Flags().IntVar(&top, "top", 10, "companies per ranking")
	analyzeCmd.Flags().StringVar(&weeklySymbol, "weekly", "", "print weekly bars of this symbol instead of the summary")
	analyzeCmd.Flags().IntVar(&weeks, "weeks", 12, "weekly bars to print with --weekly (0 for all)")

	var (
		screen     app.ScreenOptions
		circuit    string
		macd       string
		boundFlags = []struct {
			name   string
			usage  string
			target *analysis.Bounds
			lo, hi float64
		}{
			{name: "market-cap", usage: "market capitalisation", target: &screen.MarketCap},
			{name: "pe", usage: "P/E ratio", target: &screen.PE},
			{name: "eps", usage: "earnings per share", target: &screen.EPS},
			{name: "rsi", usage: "RSI(14)", target: &screen.RSI},
			{name: "volume", usage: "14-day average volume", target: &screen.AvgVolume},
			{name: "change", usage: "percent change over the whole history", target: &screen.Change},
		}
	)
	screenCmd := &cobra.Command{
		Use:   "screen",
		Short: "List companies matching screening criteria",
		RunE: func(c *cobra.Command, args []string) error {
			for i := range boundFlags {
				bf := &boundFlags[i]
				if c.Flags().Changed("min-" + bf.name) {
					bf.target.Min = &bf.lo
				}
				if c.Flags().Changed("max-" + bf.name) {
					bf.target.Max = &bf.hi
				}
			}
			switch model.CircuitStatus(circuit) {
			case "", model.CircuitNone, model.CircuitUpper, model.CircuitLower:
				screen.CircuitStatus = model.CircuitStatus(circuit)
			default:
				return fmt.Errorf("invalid --circuit %q, want None, Upper or Lower", circuit)
			}
			switch sig := analysis.MACDSignal(macd); sig {
			case "", analysis.MACDCrossover, analysis.MACDCrossunder, analysis.MACDPositive, analysis.MACDNegative:
				screen.MACD = sig
			default:
				return fmt.Errorf("invalid --macd %q", macd)
			}
			return application.Screen(screen)
		},
	}
	screenCmd.Flags().StringSliceVar(&screen.Sectors, "sector", nil, "keep these sectors (repeatable)")
	for i := range boundFlags {
		bf := &boundFlags[i]
		screenCmd.Flags().Float64Var(&bf.lo, "min-"+bf.name, 0, "minimum "+bf.usage)
		screenCmd.Flags().Float64Var(&bf.hi, "max-"+bf.name, 0, "maximum "+bf.usage)
	}
	screenCmd.Flags().IntVar(&screen.CircuitDays, "circuit-days", 0, "minimum number of circuit-breaker days")
	screenCmd.Flags().StringVar(&circuit, "circuit", "", "circuit direction counted by --circuit-days: Upper, Lower or None for both")
	screenCmd.Flags().StringVar(&macd, "macd", "", "MACD signal: crossover, crossunder, positive or negative")
	screenCmd.Flags().BoolVar(&screen.Any, "any", false, "match any criterion instead of all")

	var parquetPath, runID string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export bars to Parquet",
		RunE: func(c *cobra.Command, args []string) error {
			return application.Export(parquetPath, runID)
		},
	}
	exportCmd.Flags().StringVar(&parquetPath, "parquet", "", "output Parquet file (required)")
	exportCmd.Flags().StringVar(&runID, "run", "", `export a recorded run instead of the CSV history ("latest" for the newest)`)
	exportCmd.MarkFlagRequired("parquet")

	rootCmd.AddCommand(generateCmd, nextCmd, realtimeCmd, analyzeCmd, screenCmd, exportCmd)

	cobra.OnFinalize(func() {
		if application != nil {
			if err := application.Close(); err != nil {
				log.Printf("[ERROR] close recorder: %v", err)
			}
		}
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
