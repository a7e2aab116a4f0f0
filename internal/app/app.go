// Package app implements the exchangesim commands on top of the simulator,
// the data files and the recorder.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"ExchangeSim/internal/analysis"
	"ExchangeSim/internal/config"
	"ExchangeSim/internal/model"
	"ExchangeSim/internal/recorder"
	"ExchangeSim/internal/report"
	"ExchangeSim/internal/scheduler"
	"ExchangeSim/internal/series"
	"ExchangeSim/internal/simulator"
	"ExchangeSim/internal/universe"
)

// App wires configuration, persistence and output for one process.
type App struct {
	Config   *config.Config
	Recorder recorder.Recorder
	Out      io.Writer
}

// New creates an App. A SQLite recorder that fails to open falls back to a
// no-op recorder.
func New(cfg *config.Config, out io.Writer) *App {
	var rec recorder.Recorder
	if cfg.Data.DisableRecorder || cfg.Data.SQLitePath == "" {
		rec = recorder.NewNoopRecorder()
	} else if sr, err := recorder.NewSQLiteRecorder(cfg.Data.SQLitePath); err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}
	return &App{Config: cfg, Recorder: rec, Out: out}
}

// Close releases the recorder.
func (a *App) Close() error {
	return a.Recorder.Close()
}

func (a *App) startRun(command string) string {
	id := recorder.NewRunID()
	run := recorder.Run{ID: id, Command: command, Seed: a.Config.SeedValue(), StartedAt: time.Now()}
	if err := a.Recorder.StartRun(run); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	return id
}

func (a *App) newGenerator() (*simulator.Generator, error) {
	companies, err := universe.Load(a.Config.Data.CompaniesFile)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, simulator.ErrNotConfigured
	}
	return simulator.New(a.Config.SimulatorConfig(), companies, a.Config.SeedValue()), nil
}

// loadHistory reads the historical CSV. A missing file yields ok == false.
func (a *App) loadHistory() (*series.Series, bool, error) {
	s, err := series.LoadCSV(a.Config.Data.HistoricalCSV)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// persist writes the full series and the company snapshots to disk and
// records the new bars.
func (a *App) persist(runID string, gen *simulator.Generator, newBars []model.DailyBar) error {
	s := gen.Series()
	if err := s.SaveCSV(a.Config.Data.HistoricalCSV); err != nil {
		return fmt.Errorf("save historical data: %w", err)
	}
	log.Printf("[INFO] saved %d bars to %s", s.Len(), a.Config.Data.HistoricalCSV)

	if p := a.Config.Data.ParquetPath; p != "" {
		if err := s.SaveParquet(p); err != nil {
			return fmt.Errorf("save parquet: %w", err)
		}
		log.Printf("[INFO] saved %d bars to %s", s.Len(), p)
	}

	companies := gen.Companies()
	if err := universe.Save(a.Config.Data.CompaniesFile, companies); err != nil {
		return fmt.Errorf("save companies: %w", err)
	}

	if err := a.Recorder.RecordBars(runID, newBars); err != nil {
		log.Printf("[ERROR] record bars: %v", err)
	}
	if err := a.Recorder.RecordCompanies(runID, companies); err != nil {
		log.Printf("[ERROR] record companies: %v", err)
	}
	if err := a.Recorder.RecordEvents(runID, gen.Events()); err != nil {
		log.Printf("[ERROR] record events: %v", err)
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Days       int
	Start      *time.Time
	Sentiment  *float64
	Volatility float64
}

// Generate creates a fresh history and overwrites the historical data file.
func (a *App) Generate(opts GenerateOptions) error {
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	if err := gen.Initialize(simulator.InitOptions{Sentiment: opts.Sentiment, StartDate: opts.Start}); err != nil {
		return err
	}
	runID := a.startRun("generate")

	s, warnings, err := gen.GenerateHistorical(opts.Days, opts.Volatility)
	if err != nil {
		return err
	}
	if err := a.persist(runID, gen, s.Bars()); err != nil {
		return err
	}

	first := s.Dates()[0]
	last, _ := s.LatestDate()
	a.printf("Generated %d trading days (%s to %s) for %d companies, %d bars, %d events.\n",
		opts.Days, first.Format(model.DateLayout), last.Format(model.DateLayout),
		len(gen.Symbols()), s.Len(), len(gen.Events()))
	a.printf("%s", report.FormatWarnings(warnings))
	return nil
}

// Next appends days to the saved history.
func (a *App) Next(days int, volatility float64) error {
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	history, ok, err := a.loadHistory()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no historical data at %s, run generate first", a.Config.Data.HistoricalCSV)
	}
	if err := gen.LoadHistory(history); err != nil {
		return err
	}
	if err := gen.Initialize(simulator.InitOptions{}); err != nil {
		return err
	}
	runID := a.startRun("next")

	bars, warnings, err := gen.GenerateMultipleDays(days, volatility)
	if err != nil {
		return err
	}
	if err := a.persist(runID, gen, bars); err != nil {
		return err
	}

	last, _ := gen.Series().LatestDate()
	a.printf("Generated %d more trading days up to %s, series has %d bars.\n",
		days, last.Format(model.DateLayout), gen.Series().Len())
	a.printf("%s", report.FormatWarnings(warnings))
	a.printf("%s", report.FormatEvents(gen.Events()))
	return nil
}

// RealtimeOptions configures Realtime.
type RealtimeOptions struct {
	// Ticks > 0 runs that many ticks back to back, then closes the session.
	// Otherwise ticks follow the configured cron spec until the session ends
	// or ctx is cancelled.
	Ticks int
	Date  *time.Time
	Quiet bool
	// Quotes prints every company's quote after each tick.
	Quotes bool
}

// Realtime runs one intraday session and merges it into the history.
func (a *App) Realtime(ctx context.Context, opts RealtimeOptions) error {
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	history, ok, err := a.loadHistory()
	if err != nil {
		return err
	}
	if ok {
		if err := gen.LoadHistory(history); err != nil {
			return err
		}
	}
	if err := gen.Initialize(simulator.InitOptions{}); err != nil {
		return err
	}
	runID := a.startRun("realtime")

	rt := a.Config.Realtime
	sched := scheduler.NewScheduler(gen, a.Recorder, runID, rt.MinutesPerTick, rt.VolatilityFactor)
	sched.Date = opts.Date
	if !opts.Quiet {
		sched.OnTick = func(res *simulator.TickResult, st model.MarketStatus) {
			a.printf("%s minute %3d/%d  up %d  down %d  flat %d  volume %d\n",
				st.Date.Format(model.DateLayout), st.Minute, st.TotalMinutes,
				st.Advancing, st.Declining, st.Unchanged, st.TotalVolume)
			if opts.Quotes && !res.SessionClosed() {
				a.printf("%s", report.FormatQuotes(res.Quotes))
			}
		}
	}

	if opts.Ticks > 0 {
		if _, err := sched.RunTicks(ctx, opts.Ticks); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		if err := sched.RegisterSession(rt.TickCron); err != nil {
			return err
		}
		sched.Start()
		select {
		case <-sched.Done():
		case <-ctx.Done():
			log.Println("[INFO] shutdown signal received, closing session")
		}
		sched.Stop()
	}

	if _, err := sched.CloseNow(); err != nil &&
		!errors.Is(err, scheduler.ErrFinished) && !errors.Is(err, simulator.ErrSessionClosed) {
		return err
	}
	if err := a.persist(runID, gen, nil); err != nil {
		return err
	}

	a.printf("%s", report.FormatStatus(sched.Status()))
	return nil
}

// Analyze prints a market summary of the saved history.
func (a *App) Analyze(top int) error {
	history, ok, err := a.loadHistory()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no historical data at %s, run generate first", a.Config.Data.HistoricalCSV)
	}
	companies, err := universe.Load(a.Config.Data.CompaniesFile)
	if err != nil {
		log.Printf("[WARN] companies unavailable, skipping sector analysis: %v", err)
		companies = nil
	}

	opts := analysis.DefaultOptions()
	opts.Top = top
	opts.UpperCircuit = a.Config.Simulation.CircuitUpper
	opts.LowerCircuit = a.Config.Simulation.CircuitLower
	sum, err := analysis.Summarize(history, companies, opts)
	if err != nil {
		return err
	}
	a.printf("%s", report.FormatSummary(sum))
	return nil
}

// Weekly prints the last n weekly bars of symbol. n <= 0 prints all of them.
func (a *App) Weekly(symbol string, n int) error {
	history, ok, err := a.loadHistory()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no historical data at %s, run generate first", a.Config.Data.HistoricalCSV)
	}
	weeks := history.Weekly(symbol)
	if len(weeks) == 0 {
		return fmt.Errorf("no bars for %s", symbol)
	}
	if n > 0 && len(weeks) > n {
		weeks = weeks[len(weeks)-n:]
	}
	a.printf("%s", report.FormatBars(fmt.Sprintf("📅 %s weekly bars", symbol), weeks))
	return nil
}

// ScreenOptions selects companies. Zero-valued criteria are skipped.
type ScreenOptions struct {
	Sectors   []string
	MarketCap analysis.Bounds
	PE        analysis.Bounds
	EPS       analysis.Bounds
	RSI       analysis.Bounds
	AvgVolume analysis.Bounds
	// Change is the percent change between the first and last bar.
	Change analysis.Bounds
	// CircuitDays > 0 keeps companies with at least that many circuit days
	// of CircuitStatus (None meaning either direction).
	CircuitDays   int
	CircuitStatus model.CircuitStatus
	MACD          analysis.MACDSignal
	// Any keeps companies matching at least one criterion instead of all.
	Any bool
}

const screenPeriod = 14

// Screen prints the latest data of the companies matching opts.
func (a *App) Screen(opts ScreenOptions) error {
	history, ok, err := a.loadHistory()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no historical data at %s, run generate first", a.Config.Data.HistoricalCSV)
	}
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	if err := gen.LoadHistory(history); err != nil {
		return err
	}
	companies := gen.Companies()

	if len(opts.Sectors) > 0 {
		known := universe.Sectors(companies)
		for _, sec := range opts.Sectors {
			if !slices.Contains(known, sec) {
				return fmt.Errorf("unknown sector %q, known sectors: %s", sec, strings.Join(known, ", "))
			}
		}
	}

	sim := a.Config.Simulation
	base := func() *analysis.Filter { return analysis.NewFilter(history, companies) }
	var lists [][]string
	if len(opts.Sectors) > 0 {
		lists = append(lists, base().BySector(opts.Sectors...).Symbols())
	}
	if !opts.MarketCap.IsZero() {
		lists = append(lists, base().ByMarketCap(opts.MarketCap).Symbols())
	}
	if !opts.PE.IsZero() {
		lists = append(lists, base().ByPE(opts.PE).Symbols())
	}
	if !opts.EPS.IsZero() {
		lists = append(lists, base().ByEPS(opts.EPS).Symbols())
	}
	if !opts.RSI.IsZero() {
		lists = append(lists, base().ByRSI(screenPeriod, opts.RSI).Symbols())
	}
	if !opts.AvgVolume.IsZero() {
		lists = append(lists, base().ByAverageVolume(screenPeriod, opts.AvgVolume).Symbols())
	}
	if !opts.Change.IsZero() {
		lists = append(lists, base().ByPriceChange(opts.Change).Symbols())
	}
	if opts.CircuitDays > 0 {
		status := opts.CircuitStatus
		if status == "" {
			status = model.CircuitNone
		}
		lists = append(lists, base().ByCircuitBreakers(status, sim.CircuitUpper, sim.CircuitLower, opts.CircuitDays).Symbols())
	}
	if opts.MACD != "" {
		lists = append(lists, base().ByMACD(opts.MACD).Symbols())
	}
	if len(lists) == 0 {
		return errors.New("no screening criteria given")
	}

	var matched []string
	if opts.Any {
		matched = analysis.Union(lists...)
	} else {
		matched = analysis.Intersect(lists...)
	}

	var snaps []simulator.CompanySnapshot
	for _, snap := range gen.LatestCompanyData() {
		if slices.Contains(matched, snap.Symbol) {
			snaps = append(snaps, snap)
		}
	}
	a.printf("🔍 %d of %d companies match %d criteria\n", len(matched), len(companies), len(lists))
	a.printf("%s", report.FormatSnapshots(snaps))
	return nil
}

// Export writes bars to a Parquet file. With an empty runID the historical
// CSV is exported; "latest" exports the most recent recorded run.
func (a *App) Export(parquetPath, runID string) error {
	var (
		s   *series.Series
		err error
	)
	if runID == "" {
		s, err = series.LoadCSV(a.Config.Data.HistoricalCSV)
	} else {
		s, err = a.recordedSeries(runID)
	}
	if err != nil {
		return err
	}
	if err := s.SaveParquet(parquetPath); err != nil {
		return err
	}
	a.printf("Exported %d bars to %s\n", s.Len(), parquetPath)
	return nil
}

func (a *App) recordedSeries(runID string) (*series.Series, error) {
	if runID == "latest" {
		id, err := a.Recorder.LatestRun()
		if err != nil {
			return nil, fmt.Errorf("find latest run: %w", err)
		}
		if id == "" {
			return nil, errors.New("no recorded runs")
		}
		runID = id
	}
	bars, err := a.Recorder.LoadBars(runID)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars recorded for run %s", runID)
	}
	return series.FromBars(bars)
}
