package model

import "time"

// DateLayout is the on-disk representation of a trading date.
const DateLayout = "2006-01-02"

// DailyBar is one OHLCV row for a symbol on a trading day.
type DailyBar struct {
	Date   time.Time `parquet:"date"`
	Symbol string    `parquet:"symbol,dict"`
	Open   float64   `parquet:"open"`
	High   float64   `parquet:"high"`
	Low    float64   `parquet:"low"`
	Close  float64   `parquet:"close"`
	Volume int64     `parquet:"volume"`
}

// BarKey uniquely identifies a bar within a series.
type BarKey struct {
	Date   time.Time
	Symbol string
}

// Key returns the (date, symbol) key of the bar.
func (b DailyBar) Key() BarKey {
	return BarKey{Date: TradingDate(b.Date), Symbol: b.Symbol}
}

// Change returns close minus open.
func (b DailyBar) Change() float64 {
	return b.Close - b.Open
}

// ChangePct returns the intraday move (close-open)/open in percent.
func (b DailyBar) ChangePct() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// TradingDate truncates t to midnight UTC of its calendar day.
func TradingDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
