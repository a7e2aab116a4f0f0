package app

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ExchangeSim/internal/analysis"
	"ExchangeSim/internal/config"
	"ExchangeSim/internal/series"
	"ExchangeSim/internal/universe"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const companiesJSON = `{
    "NABIL": {"name": "Nabil Bank", "sector": "Commercial Bank", "price": {"open": 990, "high": 1010, "low": 985, "close": 1000}, "volume": 120000},
    "NICA": {"name": "NIC Asia Bank", "sector": "Commercial Bank", "price": {"close": 800}},
    "UPPER": {"name": "Upper Tamakoshi Hydropower", "sector": "Energy", "market_cap": 2.5e10}
}`

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load("", filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	cfg.Data.CompaniesFile = filepath.Join(dir, "companies.json")
	cfg.Data.HistoricalCSV = filepath.Join(dir, "historical", "stock_data.csv")
	cfg.Data.SQLitePath = filepath.Join(dir, "exsim.db")
	cfg.Data.ParquetPath = filepath.Join(dir, "export", "stock_data.parquet")
	require.NoError(t, os.WriteFile(cfg.Data.CompaniesFile, []byte(companiesJSON), 0o644))

	var out bytes.Buffer
	a := New(cfg, &out)
	t.Cleanup(func() { a.Close() })
	return a, &out
}

var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateNextAnalyze(t *testing.T) {
	a, out := newTestApp(t)
	sentiment := 0.2

	require.NoError(t, a.Generate(GenerateOptions{Days: 30, Start: &monday, Sentiment: &sentiment}))
	assert.Contains(t, out.String(), "Generated 30 trading days (2024-01-01 to 2024-02-09)")

	saved, err := series.LoadCSV(a.Config.Data.HistoricalCSV)
	require.NoError(t, err)
	assert.Equal(t, 90, saved.Len())

	fromParquet, err := series.LoadParquet(a.Config.Data.ParquetPath)
	require.NoError(t, err)
	assert.Equal(t, saved.Bars(), fromParquet.Bars())

	companies, err := universe.Load(a.Config.Data.CompaniesFile)
	require.NoError(t, err)
	last, ok := saved.LastBar("UPPER")
	require.True(t, ok)
	require.NotNil(t, companies["UPPER"].Price)
	assert.Equal(t, last.Close, companies["UPPER"].Price.Close)
	require.NotNil(t, companies["UPPER"].MarketCap)

	out.Reset()
	require.NoError(t, a.Next(5, 0))
	assert.Contains(t, out.String(), "up to 2024-02-16")
	saved, err = series.LoadCSV(a.Config.Data.HistoricalCSV)
	require.NoError(t, err)
	assert.Equal(t, 105, saved.Len())

	out.Reset()
	require.NoError(t, a.Analyze(3))
	assert.Contains(t, out.String(), "Market summary | 2024-02-16")
	assert.Contains(t, out.String(), "Commercial Bank")
}

func TestNextWithoutHistoryFails(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Next(1, 0))
	assert.Error(t, a.Analyze(5))
}

func TestRealtimeMergesSession(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Generate(GenerateOptions{Days: 3, Start: &monday}))
	a.Config.Realtime.MinutesPerTick = 60

	out.Reset()
	require.NoError(t, a.Realtime(context.Background(), RealtimeOptions{Ticks: 2}))
	assert.Contains(t, out.String(), "minute 120/300")
	assert.Contains(t, out.String(), "CLOSED")

	saved, err := series.LoadCSV(a.Config.Data.HistoricalCSV)
	require.NoError(t, err)
	assert.Equal(t, 12, saved.Len())
	latest, _ := saved.LatestDate()
	assert.Equal(t, monday.AddDate(0, 0, 3), latest)
}

func TestExport(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Generate(GenerateOptions{Days: 4, Start: &monday}))

	csvExport := filepath.Join(t.TempDir(), "from-csv.parquet")
	require.NoError(t, a.Export(csvExport, ""))
	assert.Contains(t, out.String(), "Exported 12 bars")

	runExport := filepath.Join(t.TempDir(), "from-run.parquet")
	require.NoError(t, a.Export(runExport, "latest"))
	fromRun, err := series.LoadParquet(runExport)
	require.NoError(t, err)
	fromCSV, err := series.LoadParquet(csvExport)
	require.NoError(t, err)
	assert.Equal(t, fromCSV.Bars(), fromRun.Bars())

	assert.Error(t, a.Export(runExport, "unknown-run"))
}

func TestScreen(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Generate(GenerateOptions{Days: 20, Start: &monday}))

	out.Reset()
	require.NoError(t, a.Screen(ScreenOptions{Sectors: []string{"Energy"}}))
	assert.Contains(t, out.String(), "1 of 3 companies match 1 criteria")
	assert.Contains(t, out.String(), "UPPER")
	assert.NotContains(t, out.String(), "NABIL")

	out.Reset()
	require.NoError(t, a.Screen(ScreenOptions{
		Sectors:   []string{"Commercial Bank"},
		MarketCap: analysis.AtLeast(1e10),
	}))
	assert.Contains(t, out.String(), "0 of 3 companies match 2 criteria")
	assert.Contains(t, out.String(), "No companies.")

	out.Reset()
	require.NoError(t, a.Screen(ScreenOptions{
		Sectors:   []string{"Commercial Bank"},
		MarketCap: analysis.AtLeast(1e10),
		Any:       true,
	}))
	assert.Contains(t, out.String(), "3 of 3 companies match 2 criteria")
	for _, sym := range []string{"NABIL", "NICA", "UPPER"} {
		assert.Contains(t, out.String(), sym)
	}

	assert.ErrorContains(t, a.Screen(ScreenOptions{Sectors: []string{"Mining"}}), "unknown sector")
	assert.Error(t, a.Screen(ScreenOptions{}))
}

func TestWeekly(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Generate(GenerateOptions{Days: 10, Start: &monday}))

	out.Reset()
	require.NoError(t, a.Weekly("NABIL", 1))
	assert.Contains(t, out.String(), "NABIL weekly bars")
	assert.Contains(t, out.String(), "2024-01-08")
	assert.NotContains(t, out.String(), "2024-01-01")

	out.Reset()
	require.NoError(t, a.Weekly("NABIL", 0))
	assert.Contains(t, out.String(), "2024-01-01")

	assert.Error(t, a.Weekly("NOPE", 0))
}

func TestRealtimePrintsQuotes(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Generate(GenerateOptions{Days: 3, Start: &monday}))
	a.Config.Realtime.MinutesPerTick = 60

	out.Reset()
	require.NoError(t, a.Realtime(context.Background(), RealtimeOptions{Ticks: 2, Quotes: true}))
	assert.Contains(t, out.String(), "SYMBOL")
	assert.Equal(t, 2, strings.Count(out.String(), "UPPER"))
}
