package analysis

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ExchangeSim/internal/model"
	"ExchangeSim/internal/series"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, sym string, open, close float64, volume int64) model.DailyBar {
	return model.DailyBar{
		Date:   day(d),
		Symbol: sym,
		Open:   open,
		High:   math.Max(open, close) + 1,
		Low:    math.Min(open, close) - 1,
		Close:  close,
		Volume: volume,
	}
}

func f64(v float64) *float64 { return &v }

// Two days, four companies. On day 2:
// AAA +10% (circuit up), BBB -5%, CCC flat, DDD +2%.
func sampleSeries(t *testing.T) *series.Series {
	t.Helper()
	s, err := series.FromBars([]model.DailyBar{
		bar(1, "AAA", 100, 100, 1000),
		bar(1, "BBB", 200, 200, 3000),
		bar(1, "CCC", 50, 50, 500),
		bar(1, "DDD", 10, 10, 800),
		bar(2, "AAA", 100, 110, 5000),
		bar(2, "BBB", 200, 190, 2000),
		bar(2, "CCC", 50, 50, 600),
		bar(2, "DDD", 10, 10.2, 900),
	})
	require.NoError(t, err)
	return s
}

func sampleCompanies() map[string]*model.CompanyProfile {
	return map[string]*model.CompanyProfile{
		"AAA": {Symbol: "AAA", Sector: "Banking", MarketCap: f64(5e9), PE: f64(12), EPS: f64(30)},
		"BBB": {Symbol: "BBB", Sector: "Banking", MarketCap: f64(1e9), PE: f64(40)},
		"CCC": {Symbol: "CCC", Sector: "Energy", EPS: f64(-2)},
		"DDD": {Symbol: "DDD"},
	}
}

func TestRankings(t *testing.T) {
	s := sampleSeries(t)

	gainers := TopGainers(s, 2)
	require.Len(t, gainers, 2)
	assert.Equal(t, "AAA", gainers[0].Symbol)
	assert.InDelta(t, 10, gainers[0].Value, 1e-9)
	assert.Equal(t, "DDD", gainers[1].Symbol)

	losers := TopLosers(s, 10)
	require.Len(t, losers, 4)
	assert.Equal(t, "BBB", losers[0].Symbol)
	assert.InDelta(t, -5, losers[0].Value, 1e-9)
	assert.Equal(t, "CCC", losers[1].Symbol)

	leaders := VolumeLeaders(s, 1)
	require.Len(t, leaders, 1)
	assert.Equal(t, Ranked{Symbol: "AAA", Value: 5000}, leaders[0])

	assert.Empty(t, TopGainers(series.New(), 5))
}

func TestMarketBreadth(t *testing.T) {
	s := sampleSeries(t)
	b, ok := MarketBreadth(s)
	require.True(t, ok)
	assert.Equal(t, Breadth{Advancing: 2, Declining: 1, Unchanged: 1, Total: 4, Ratio: 2, HasRatio: true}, b)

	one, err := series.FromBars([]model.DailyBar{bar(1, "AAA", 1, 2, 1)})
	require.NoError(t, err)
	_, ok = MarketBreadth(one)
	assert.False(t, ok)

	up, err := series.FromBars([]model.DailyBar{bar(1, "AAA", 1, 1, 1), bar(2, "AAA", 1, 2, 1)})
	require.NoError(t, err)
	b, ok = MarketBreadth(up)
	require.True(t, ok)
	assert.False(t, b.HasRatio)
	assert.Zero(t, b.Ratio)
	_, err = json.Marshal(b)
	assert.NoError(t, err)

	flat, err := series.FromBars([]model.DailyBar{bar(1, "AAA", 1, 1, 1), bar(2, "AAA", 1, 1, 1)})
	require.NoError(t, err)
	b, ok = MarketBreadth(flat)
	require.True(t, ok)
	assert.Equal(t, Breadth{Unchanged: 1, Total: 1}, b)
}

func TestSectorPerformanceAndCircuits(t *testing.T) {
	s := sampleSeries(t)

	perf := SectorPerformance(s, sampleCompanies())
	require.Len(t, perf, 2)
	assert.InDelta(t, 2.5, perf["Banking"], 1e-9)
	assert.InDelta(t, 0, perf["Energy"], 1e-9)

	circuits := CircuitCounts(s, 0.10, -0.10)
	assert.Equal(t, map[string]CircuitCount{"AAA": {Upper: 1}}, circuits)
}

func TestSummarize(t *testing.T) {
	s := sampleSeries(t)
	sum, err := Summarize(s, sampleCompanies(), Options{Top: 3})
	require.NoError(t, err)

	assert.Equal(t, day(2), sum.Date)
	assert.Equal(t, 4, sum.Companies)
	assert.Equal(t, 2, sum.TradingDays)
	assert.Equal(t, int64(8500), sum.TotalVolume)
	require.NotNil(t, sum.Breadth)
	assert.Equal(t, 2, sum.Breadth.Advancing)

	// two bars is not enough for RSI(14)
	require.Len(t, sum.RSI, 4)
	for sym, rsi := range sum.RSI {
		assert.Equal(t, 50.0, rsi, sym)
	}
	require.NotNil(t, sum.RSIStats)
	assert.Equal(t, 50.0, sum.RSIStats.Median)
	assert.Zero(t, sum.RSIStats.Std)

	assert.Equal(t, "Banking", sum.BestSector)
	assert.Equal(t, "Energy", sum.WorstSector)
	assert.InDelta(t, 1.25, sum.MarketReturn, 1e-9)

	assert.Len(t, sum.Gainers, 3)
	assert.Equal(t, 1, sum.TotalUpper)
	assert.Equal(t, 0, sum.TotalLower)
	assert.Equal(t, 1, sum.CompaniesHitUpper)

	_, err = Summarize(series.New(), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRSIStats(t *testing.T) {
	st := rsiStats(map[string]float64{"a": 30, "b": 50, "c": 70, "d": 90})
	require.NotNil(t, st)
	assert.Equal(t, 60.0, st.Mean)
	assert.Equal(t, 60.0, st.Median)
	assert.Equal(t, 30.0, st.Min)
	assert.Equal(t, 90.0, st.Max)
	assert.InDelta(t, math.Sqrt(500), st.Std, 1e-9)
	assert.Nil(t, rsiStats(nil))
}

func TestFilter(t *testing.T) {
	s := sampleSeries(t)
	companies := sampleCompanies()

	assert.Equal(t, []string{"AAA", "BBB"}, NewFilter(s, companies).BySector("Banking").Symbols())
	assert.Equal(t, []string{"AAA"}, NewFilter(s, companies).ByMarketCap(AtLeast(2e9)).Symbols())
	assert.Equal(t, []string{"AAA", "BBB"}, NewFilter(s, companies).ByPE(Between(10, 50)).Symbols())
	assert.Equal(t, []string{"CCC"}, NewFilter(s, companies).ByEPS(AtMost(0)).Symbols())
	assert.Equal(t, []string{"AAA", "DDD"}, NewFilter(s, companies).ByPriceChange(AtLeast(1)).Symbols())
	assert.Equal(t, []string{"AAA"}, NewFilter(s, companies).ByAverageVolume(2, AtLeast(2600)).Symbols())
	assert.Equal(t, []string{"AAA"}, NewFilter(s, companies).ByCircuitBreakers(model.CircuitNone, 0.10, -0.10, 1).Symbols())
	assert.Empty(t, NewFilter(s, companies).ByCircuitBreakers(model.CircuitLower, 0.10, -0.10, 1).Symbols())
	assert.Empty(t, NewFilter(s, companies).ByRSI(14, Between(0, 100)).Symbols())

	chained := NewFilter(s, companies).BySector("Banking").ByPriceChange(AtMost(0)).Symbols()
	assert.Equal(t, []string{"BBB"}, chained)
}

func TestMACDFilter(t *testing.T) {
	var bars []model.DailyBar
	price := 100.0
	for i := 0; i < 60; i++ {
		next := price - 1
		if i == 59 {
			next = price + 30
		}
		b := bar(1, "ZZZ", price, next, 1000)
		b.Date = day(1).AddDate(0, 0, i)
		bars = append(bars, b)
		price = next
	}
	s, err := series.FromBars(bars)
	require.NoError(t, err)

	assert.Equal(t, []string{"ZZZ"}, NewFilter(s, nil).ByMACD(MACDCrossover).Symbols())
	assert.Equal(t, []string{"ZZZ"}, NewFilter(s, nil).ByMACD(MACDPositive).Symbols())
	assert.Empty(t, NewFilter(s, nil).ByMACD(MACDNegative).Symbols())
}

func TestCombine(t *testing.T) {
	a := []string{"X", "Y", "Z"}
	b := []string{"Y", "Z", "W"}
	assert.Equal(t, []string{"Y", "Z"}, Intersect(a, b))
	assert.Equal(t, []string{"W", "X", "Y", "Z"}, Union(a, b))
	assert.Nil(t, Intersect())
}
