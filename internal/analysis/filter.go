package analysis

import (
	"log"
	"sort"

	"ExchangeSim/internal/calculator"
	"ExchangeSim/internal/model"
	"ExchangeSim/internal/series"
)

// Bounds is an inclusive range; a nil end is open.
type Bounds struct {
	Min *float64
	Max *float64
}

// Between returns closed bounds [lo, hi].
func Between(lo, hi float64) Bounds { return Bounds{Min: &lo, Max: &hi} }

// AtLeast returns bounds [lo, +inf).
func AtLeast(lo float64) Bounds { return Bounds{Min: &lo} }

// AtMost returns bounds (-inf, hi].
func AtMost(hi float64) Bounds { return Bounds{Max: &hi} }

// IsZero reports whether b has neither end, i.e. matches everything.
func (b Bounds) IsZero() bool { return b.Min == nil && b.Max == nil }

func (b Bounds) contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// MACDSignal selects companies by the relation of MACD to its signal line.
type MACDSignal string

const (
	MACDCrossover  MACDSignal = "crossover"
	MACDCrossunder MACDSignal = "crossunder"
	MACDPositive   MACDSignal = "positive"
	MACDNegative   MACDSignal = "negative"
)

// Filter narrows the set of companies step by step. Every By* call
// intersects with the current selection.
type Filter struct {
	series    *series.Series
	companies map[string]*model.CompanyProfile
	selected  map[string]bool
}

// NewFilter starts with every company known to the series or the universe.
func NewFilter(s *series.Series, companies map[string]*model.CompanyProfile) *Filter {
	f := &Filter{series: s, companies: companies, selected: make(map[string]bool)}
	if s != nil {
		for _, sym := range s.Symbols() {
			f.selected[sym] = true
		}
	}
	for sym := range companies {
		f.selected[sym] = true
	}
	return f
}

// Symbols returns the current selection in sorted order.
func (f *Filter) Symbols() []string {
	out := make([]string, 0, len(f.selected))
	for sym := range f.selected {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (f *Filter) keep(name string, pred func(sym string) bool) *Filter {
	for _, sym := range f.Symbols() {
		if !pred(sym) {
			delete(f.selected, sym)
		}
	}
	log.Printf("[INFO] filter %s: %d companies left", name, len(f.selected))
	return f
}

func (f *Filter) bars(sym string) []model.DailyBar {
	if f.series == nil {
		return nil
	}
	return f.series.ByCompany(sym)
}

// BySector keeps companies in any of the given sectors.
func (f *Filter) BySector(sectors ...string) *Filter {
	want := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		want[s] = true
	}
	return f.keep("sector", func(sym string) bool {
		c, ok := f.companies[sym]
		return ok && want[c.Sector]
	})
}

func (f *Filter) byField(name string, b Bounds, field func(*model.CompanyProfile) *float64) *Filter {
	return f.keep(name, func(sym string) bool {
		c, ok := f.companies[sym]
		if !ok {
			return false
		}
		v := field(c)
		return v != nil && b.contains(*v)
	})
}

// ByMarketCap keeps companies whose market capitalisation is within b.
func (f *Filter) ByMarketCap(b Bounds) *Filter {
	return f.byField("market cap", b, func(c *model.CompanyProfile) *float64 { return c.MarketCap })
}

// ByPE keeps companies whose P/E ratio is within b.
func (f *Filter) ByPE(b Bounds) *Filter {
	return f.byField("pe ratio", b, func(c *model.CompanyProfile) *float64 { return c.PE })
}

// ByEPS keeps companies whose EPS is within b.
func (f *Filter) ByEPS(b Bounds) *Filter {
	return f.byField("eps", b, func(c *model.CompanyProfile) *float64 { return c.EPS })
}

// ByRSI keeps companies whose latest RSI is within b. Companies with fewer
// than period+1 bars have no RSI and are dropped.
func (f *Filter) ByRSI(period int, b Bounds) *Filter {
	return f.keep("rsi", func(sym string) bool {
		bars := f.bars(sym)
		if len(bars) < period+1 {
			return false
		}
		rsi, err := calculator.CalculateRSI(bars, period)
		if err != nil {
			log.Printf("[WARN] %s RSI calculation failed: %v", sym, err)
			return false
		}
		return b.contains(rsi)
	})
}

// ByAverageVolume keeps companies whose average volume over the last period
// bars is within b.
func (f *Filter) ByAverageVolume(period int, b Bounds) *Filter {
	return f.keep("average volume", func(sym string) bool {
		avg, err := calculator.CalculateAverageVolume(f.bars(sym), period)
		return err == nil && b.contains(avg)
	})
}

// ByPriceChange keeps companies whose close changed by a percentage within b
// between their first and last bar.
func (f *Filter) ByPriceChange(b Bounds) *Filter {
	return f.keep("price change", func(sym string) bool {
		bars := f.bars(sym)
		if len(bars) < 2 || bars[0].Close == 0 {
			return false
		}
		change := (bars[len(bars)-1].Close/bars[0].Close - 1) * 100
		return b.contains(change)
	})
}

// ByCircuitBreakers keeps companies with at least minCount circuit days of
// the given status. CircuitNone counts both directions.
func (f *Filter) ByCircuitBreakers(status model.CircuitStatus, upper, lower float64, minCount int) *Filter {
	return f.keep("circuit breakers", func(sym string) bool {
		count := 0
		for _, ev := range calculator.DetectCircuitEvents(f.bars(sym), upper, lower) {
			if status == model.CircuitNone || ev.Status == status {
				count++
			}
		}
		return count >= minCount
	})
}

// ByMACD keeps companies showing the given MACD(12, 26, 9) signal on their latest bar.
func (f *Filter) ByMACD(signal MACDSignal) *Filter {
	return f.keep("macd "+string(signal), func(sym string) bool {
		bars := f.bars(sym)
		if len(bars) < 2 {
			return false
		}
		curr, err := calculator.CalculateMACD(bars, 12, 26, 9)
		if err != nil {
			return false
		}
		prev, err := calculator.CalculateMACD(bars[:len(bars)-1], 12, 26, 9)
		if err != nil {
			return false
		}
		switch signal {
		case MACDCrossover:
			return prev.Line <= prev.Signal && curr.Line > curr.Signal
		case MACDCrossunder:
			return prev.Line >= prev.Signal && curr.Line < curr.Signal
		case MACDPositive:
			return curr.Line > curr.Signal
		case MACDNegative:
			return curr.Line < curr.Signal
		}
		return false
	})
}

// Intersect returns the symbols present in every list, sorted.
func Intersect(lists ...[]string) []string {
	if len(lists) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, list := range lists {
		seen := make(map[string]bool)
		for _, sym := range list {
			if !seen[sym] {
				seen[sym] = true
				counts[sym]++
			}
		}
	}
	out := make([]string, 0)
	for sym, n := range counts {
		if n == len(lists) {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Union returns the symbols present in any list, sorted.
func Union(lists ...[]string) []string {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, sym := range list {
			set[sym] = true
		}
	}
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
