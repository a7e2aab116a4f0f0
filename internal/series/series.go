package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ExchangeSim/internal/model"
)

// ErrDuplicateBar is returned when a bar with an existing (date, symbol) key is appended.
var ErrDuplicateBar = errors.New("series: duplicate bar")

// Series is an append-only, chronologically ordered collection of daily bars
// with exactly one bar per (date, symbol).
type Series struct {
	bars  []model.DailyBar
	index map[model.BarKey]int
	last  map[string]int
	days  map[time.Time]bool
}

// New creates an empty series.
func New() *Series {
	return &Series{
		index: make(map[model.BarKey]int),
		last:  make(map[string]int),
		days:  make(map[time.Time]bool),
	}
}

// FromBars builds a series from bars in the given order.
func FromBars(bars []model.DailyBar) (*Series, error) {
	s := New()
	if err := s.Append(bars...); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds bars to the end of the series. Dates are normalised to UTC
// midnight. If any key already exists, or repeats within the batch, nothing
// is appended.
func (s *Series) Append(bars ...model.DailyBar) error {
	seen := make(map[model.BarKey]bool, len(bars))
	for _, b := range bars {
		k := b.Key()
		if _, ok := s.index[k]; ok || seen[k] {
			return fmt.Errorf("%w: %s %s", ErrDuplicateBar, k.Date.Format(model.DateLayout), k.Symbol)
		}
		seen[k] = true
	}
	for _, b := range bars {
		b.Date = model.TradingDate(b.Date)
		i := len(s.bars)
		s.index[b.Key()] = i
		if j, ok := s.last[b.Symbol]; !ok || !b.Date.Before(s.bars[j].Date) {
			s.last[b.Symbol] = i
		}
		s.days[b.Date] = true
		s.bars = append(s.bars, b)
	}
	return nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Bars returns a copy of all bars in insertion order.
func (s *Series) Bars() []model.DailyBar {
	out := make([]model.DailyBar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Has reports whether any bar exists for date.
func (s *Series) Has(date time.Time) bool {
	return s.days[model.TradingDate(date)]
}

// Get returns the bar for (date, symbol).
func (s *Series) Get(date time.Time, symbol string) (model.DailyBar, bool) {
	i, ok := s.index[model.BarKey{Date: model.TradingDate(date), Symbol: symbol}]
	if !ok {
		return model.DailyBar{}, false
	}
	return s.bars[i], true
}

// ByCompany returns every bar of symbol in chronological order.
func (s *Series) ByCompany(symbol string) []model.DailyBar {
	var out []model.DailyBar
	for _, b := range s.bars {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	return out
}

// ByDate returns every bar on date, sorted by symbol.
func (s *Series) ByDate(date time.Time) []model.DailyBar {
	d := model.TradingDate(date)
	var out []model.DailyBar
	for _, b := range s.bars {
		if b.Date.Equal(d) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Dates returns the distinct trading dates in ascending order.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Symbols returns the distinct symbols in sorted order.
func (s *Series) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range s.bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			out = append(out, b.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// LatestDate returns the most recent date in the series.
func (s *Series) LatestDate() (time.Time, bool) {
	var latest time.Time
	for d := range s.days {
		if d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero()
}

// LastBar returns the most recent bar for symbol.
func (s *Series) LastBar(symbol string) (model.DailyBar, bool) {
	i, ok := s.last[symbol]
	if !ok {
		return model.DailyBar{}, false
	}
	return s.bars[i], true
}

// Weekly aggregates a symbol's daily bars into ISO weeks (Mon-Fri). Each
// weekly bar is dated on the first trading day of its week.
func (s *Series) Weekly(symbol string) []model.DailyBar {
	return AggregateWeekly(s.ByCompany(symbol))
}

// AggregateWeekly converts chronologically ordered daily bars into weekly bars.
func AggregateWeekly(daily []model.DailyBar) []model.DailyBar {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.DailyBar
	var week model.DailyBar
	var currentKey int

	for i, d := range daily {
		year, isoWeek := d.Date.ISOWeek()
		weekKey := year*100 + isoWeek

		if i == 0 || weekKey != currentKey {
			if i > 0 {
				weekly = append(weekly, week)
			}
			week = d
			currentKey = weekKey
			continue
		}

		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	weekly = append(weekly, week)
	return weekly
}
