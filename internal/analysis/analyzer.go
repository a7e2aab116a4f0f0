// Package analysis derives market-wide statistics from a generated series.
package analysis

import (
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"ExchangeSim/internal/calculator"
	"ExchangeSim/internal/model"
	"ExchangeSim/internal/series"
)

// ErrNoData is returned when the series holds no bars.
var ErrNoData = errors.New("no bars to analyse")

// Ranked pairs a symbol with the value it was ranked by.
type Ranked struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

// Breadth counts advancing, declining and unchanged companies between the
// last two trading dates.
type Breadth struct {
	Advancing int     `json:"advancing"`
	Declining int     `json:"declining"`
	Unchanged int     `json:"unchanged"`
	Total     int     `json:"total"`
	// Ratio is advancing over declining. It is only meaningful when HasRatio
	// is set, i.e. something declined; otherwise it is 0.
	Ratio    float64 `json:"advance_decline_ratio"`
	HasRatio bool    `json:"has_ratio"`
}

// CircuitCount is the number of upper and lower circuit days of one company.
type CircuitCount struct {
	Upper int `json:"upper"`
	Lower int `json:"lower"`
}

// RSIStats summarises the distribution of per-company RSI.
type RSIStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Options tunes Summarize.
type Options struct {
	Top            int
	RSIPeriod      int
	UpperCircuit   float64
	LowerCircuit   float64
	SpikeThreshold float64
	SpikePeriod    int
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Top:            10,
		RSIPeriod:      14,
		UpperCircuit:   0.10,
		LowerCircuit:   -0.10,
		SpikeThreshold: 2.0,
		SpikePeriod:    20,
	}
}

// MarketSummary is the result of Summarize.
type MarketSummary struct {
	Date        time.Time `json:"date"`
	Companies   int       `json:"companies"`
	TradingDays int       `json:"trading_days"`
	TotalVolume int64     `json:"total_volume"`

	Breadth *Breadth `json:"market_breadth,omitempty"`

	RSI      map[string]float64 `json:"rsi"`
	RSIStats *RSIStats          `json:"rsi_metrics,omitempty"`

	Sectors      map[string]float64 `json:"sector_performance"`
	BestSector   string             `json:"best_sector,omitempty"`
	WorstSector  string             `json:"worst_sector,omitempty"`
	MarketReturn float64            `json:"market_return"`

	Gainers       []Ranked `json:"top_gainers"`
	Losers        []Ranked `json:"top_losers"`
	VolumeLeaders []Ranked `json:"volume_leaders"`

	Circuits          map[string]CircuitCount `json:"circuits"`
	TotalUpper        int                     `json:"total_upper_circuits"`
	TotalLower        int                     `json:"total_lower_circuits"`
	CompaniesHitUpper int                     `json:"companies_hit_upper"`
	CompaniesHitLower int                     `json:"companies_hit_lower"`

	VolumeSpikes        int `json:"total_spikes"`
	CompaniesWithSpikes int `json:"companies_with_spikes"`
}

// latestDay returns the bars of the most recent date.
func latestDay(s *series.Series) []model.DailyBar {
	date, ok := s.LatestDate()
	if !ok {
		return nil
	}
	return s.ByDate(date)
}

// dayChangePct is the open-to-close change of a bar in percent.
func dayChangePct(b model.DailyBar) float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// rank sorts by value (descending unless asc) with ties broken by symbol,
// and keeps the first n. n <= 0 keeps everything.
func rank(items []Ranked, n int, asc bool) []Ranked {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			if asc {
				return items[i].Value < items[j].Value
			}
			return items[i].Value > items[j].Value
		}
		return items[i].Symbol < items[j].Symbol
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

func latestChanges(s *series.Series) []Ranked {
	day := latestDay(s)
	out := make([]Ranked, 0, len(day))
	for _, b := range day {
		out = append(out, Ranked{Symbol: b.Symbol, Value: dayChangePct(b)})
	}
	return out
}

// TopGainers returns the n companies with the highest open-to-close change
// on the latest date, in percent.
func TopGainers(s *series.Series, n int) []Ranked {
	return rank(latestChanges(s), n, false)
}

// TopLosers returns the n companies with the lowest open-to-close change on
// the latest date, in percent.
func TopLosers(s *series.Series, n int) []Ranked {
	return rank(latestChanges(s), n, true)
}

// VolumeLeaders returns the n most traded companies on the latest date.
func VolumeLeaders(s *series.Series, n int) []Ranked {
	day := latestDay(s)
	out := make([]Ranked, 0, len(day))
	for _, b := range day {
		out = append(out, Ranked{Symbol: b.Symbol, Value: float64(b.Volume)})
	}
	return rank(out, n, false)
}

// MarketBreadth compares closes on the last two dates. Companies missing
// from either date are skipped. ok is false with fewer than two dates.
func MarketBreadth(s *series.Series) (Breadth, bool) {
	dates := s.Dates()
	if len(dates) < 2 {
		return Breadth{}, false
	}
	prevDate, currDate := dates[len(dates)-2], dates[len(dates)-1]

	var b Breadth
	for _, curr := range s.ByDate(currDate) {
		prev, ok := s.Get(prevDate, curr.Symbol)
		if !ok {
			continue
		}
		switch {
		case curr.Close > prev.Close:
			b.Advancing++
		case curr.Close < prev.Close:
			b.Declining++
		default:
			b.Unchanged++
		}
	}
	b.Total = b.Advancing + b.Declining + b.Unchanged
	if b.Declining > 0 {
		b.Ratio = float64(b.Advancing) / float64(b.Declining)
		b.HasRatio = true
	}
	return b, true
}

// SectorPerformance returns the mean latest-day change per sector, in
// percent. Companies without a sector are ignored.
func SectorPerformance(s *series.Series, companies map[string]*model.CompanyProfile) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, b := range latestDay(s) {
		c, ok := companies[b.Symbol]
		if !ok || c.Sector == "" {
			continue
		}
		sums[c.Sector] += dayChangePct(b)
		counts[c.Sector]++
	}
	out := make(map[string]float64, len(sums))
	for sector, sum := range sums {
		out[sector] = sum / float64(counts[sector])
	}
	return out
}

// CircuitCounts returns the circuit days of every company that hit at least one.
func CircuitCounts(s *series.Series, upper, lower float64) map[string]CircuitCount {
	out := make(map[string]CircuitCount)
	for _, sym := range s.Symbols() {
		var cc CircuitCount
		for _, ev := range calculator.DetectCircuitEvents(s.ByCompany(sym), upper, lower) {
			if ev.Status == model.CircuitUpper {
				cc.Upper++
			} else {
				cc.Lower++
			}
		}
		if cc.Upper+cc.Lower > 0 {
			out[sym] = cc
		}
	}
	return out
}

// VolumeSpikeCounts returns the number of volume spikes of every company that had one.
func VolumeSpikeCounts(s *series.Series, threshold float64, period int) map[string]int {
	out := make(map[string]int)
	for _, sym := range s.Symbols() {
		if n := len(calculator.DetectVolumeSpikes(s.ByCompany(sym), threshold, period)); n > 0 {
			out[sym] = n
		}
	}
	return out
}

// CompanyRSI computes RSI for every company, defaulting to 50 on failure.
func CompanyRSI(s *series.Series, period int) map[string]float64 {
	out := make(map[string]float64)
	for _, sym := range s.Symbols() {
		rsi, err := calculator.CalculateRSI(s.ByCompany(sym), period)
		if err != nil {
			log.Printf("[WARN] %s RSI calculation failed: %v, defaulting to 50", sym, err)
			rsi = 50
		}
		out[sym] = rsi
	}
	return out
}

func rsiStats(values map[string]float64) *RSIStats {
	if len(values) == 0 {
		return nil
	}
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		vals = append(vals, v)
	}
	sort.Float64s(vals)

	st := &RSIStats{Min: vals[0], Max: vals[len(vals)-1]}
	for _, v := range vals {
		st.Mean += v
	}
	st.Mean /= float64(len(vals))

	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		st.Median = (vals[mid-1] + vals[mid]) / 2
	} else {
		st.Median = vals[mid]
	}

	// population standard deviation
	var sq float64
	for _, v := range vals {
		sq += (v - st.Mean) * (v - st.Mean)
	}
	st.Std = math.Sqrt(sq / float64(len(vals)))
	return st
}

// Summarize builds a MarketSummary from the series and the company universe.
func Summarize(s *series.Series, companies map[string]*model.CompanyProfile, opts Options) (*MarketSummary, error) {
	if s == nil || s.Len() == 0 {
		return nil, ErrNoData
	}
	def := DefaultOptions()
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = def.RSIPeriod
	}
	if opts.SpikePeriod <= 0 {
		opts.SpikePeriod = def.SpikePeriod
	}
	if opts.SpikeThreshold <= 0 {
		opts.SpikeThreshold = def.SpikeThreshold
	}
	if opts.UpperCircuit <= 0 {
		opts.UpperCircuit = def.UpperCircuit
	}
	if opts.LowerCircuit >= 0 {
		opts.LowerCircuit = def.LowerCircuit
	}

	date, _ := s.LatestDate()
	sum := &MarketSummary{
		Date:          date,
		Companies:     len(s.Symbols()),
		TradingDays:   len(s.Dates()),
		Gainers:       TopGainers(s, opts.Top),
		Losers:        TopLosers(s, opts.Top),
		VolumeLeaders: VolumeLeaders(s, opts.Top),
	}
	for _, b := range s.ByDate(date) {
		sum.TotalVolume += b.Volume
	}

	if b, ok := MarketBreadth(s); ok {
		sum.Breadth = &b
	} else {
		log.Println("[WARN] market breadth needs at least two trading days")
	}

	sum.RSI = CompanyRSI(s, opts.RSIPeriod)
	sum.RSIStats = rsiStats(sum.RSI)

	sum.Sectors = SectorPerformance(s, companies)
	if len(sum.Sectors) > 0 {
		sectors := make([]string, 0, len(sum.Sectors))
		for sector := range sum.Sectors {
			sectors = append(sectors, sector)
		}
		sort.Strings(sectors)
		sum.BestSector, sum.WorstSector = sectors[0], sectors[0]
		for _, sector := range sectors {
			v := sum.Sectors[sector]
			sum.MarketReturn += v
			if v > sum.Sectors[sum.BestSector] {
				sum.BestSector = sector
			}
			if v < sum.Sectors[sum.WorstSector] {
				sum.WorstSector = sector
			}
		}
		sum.MarketReturn /= float64(len(sectors))
	}

	sum.Circuits = CircuitCounts(s, opts.UpperCircuit, opts.LowerCircuit)
	for _, cc := range sum.Circuits {
		sum.TotalUpper += cc.Upper
		sum.TotalLower += cc.Lower
		if cc.Upper > 0 {
			sum.CompaniesHitUpper++
		}
		if cc.Lower > 0 {
			sum.CompaniesHitLower++
		}
	}

	spikes := VolumeSpikeCounts(s, opts.SpikeThreshold, opts.SpikePeriod)
	for _, n := range spikes {
		sum.VolumeSpikes += n
	}
	sum.CompaniesWithSpikes = len(spikes)

	log.Printf("[INFO] market summary for %s: %d companies over %d days",
		date.Format(model.DateLayout), sum.Companies, sum.TradingDays)
	return sum, nil
}
