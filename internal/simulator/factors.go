package simulator

import "sort"

const (
	sentimentNoise  = 0.05
	sectorNoise     = 0.08
	marketInfluence = 0.3
)

// MarketFactors holds the market-wide sentiment and per-sector trends.
// Both are kept within [-1, 1] after every mutation.
type MarketFactors struct {
	src       *source
	sentiment float64
	trends    map[string]float64
	sectors   []string
}

func newMarketFactors(src *source) *MarketFactors {
	return &MarketFactors{src: src, trends: make(map[string]float64)}
}

// Sentiment returns the current market sentiment.
func (f *MarketFactors) Sentiment() float64 { return f.sentiment }

// Trend returns the trend of a tracked sector.
func (f *MarketFactors) Trend(sector string) (float64, bool) {
	v, ok := f.trends[sector]
	return v, ok
}

// Sectors returns the tracked sectors in sorted order.
func (f *MarketFactors) Sectors() []string {
	out := make([]string, len(f.sectors))
	copy(out, f.sectors)
	return out
}

// Trends returns a copy of all sector trends.
func (f *MarketFactors) Trends() map[string]float64 {
	out := make(map[string]float64, len(f.trends))
	for k, v := range f.trends {
		out[k] = v
	}
	return out
}

// reset seeds sentiment and draws an initial trend for every sector.
func (f *MarketFactors) reset(sentiment *float64, sectors []string) {
	if sentiment != nil {
		f.sentiment = clamp(*sentiment)
	} else {
		f.sentiment = f.src.uniform(-0.5, 0.5)
	}

	f.sectors = dedupeSorted(sectors)
	f.trends = make(map[string]float64, len(f.sectors))
	for _, s := range f.sectors {
		f.trends[s] = f.src.uniform(-0.5, 0.5)
	}
}

// Advance applies one step of random drift. Sentiment moves first and then
// pulls every sector trend by 30% of its new value. The generator advances
// once per trading day; calling it directly consumes the shared random
// stream.
func (f *MarketFactors) Advance() {
	f.sentiment = clamp(f.sentiment + f.src.normal(0, sentimentNoise))
	for _, s := range f.sectors {
		change := f.src.normal(0, sectorNoise)
		f.trends[s] = clamp(f.trends[s] + change + f.sentiment*marketInfluence)
	}
}

func (f *MarketFactors) shiftSentiment(delta float64) {
	f.sentiment = clamp(f.sentiment + delta)
}

func (f *MarketFactors) shiftTrend(sector string, delta float64) {
	if _, ok := f.trends[sector]; !ok {
		return
	}
	f.trends[sector] = clamp(f.trends[sector] + delta)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
