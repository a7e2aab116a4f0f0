package calculator

import (
	"errors"
	"math"

	"ExchangeSim/internal/model"
)

const (
	tradingDaysPerYear  = 252
	tradingDaysPerMonth = 22
)

// CalculateRange scans the most recent lookback bars and returns the high and low.
func CalculateRange(bars []model.DailyBar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	if lookback <= 0 {
		return 0, 0, errors.New("lookback must be positive")
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// Calculate52WeekRange returns the high and low of the last 252 trading days.
func Calculate52WeekRange(bars []model.DailyBar) (high, low float64, err error) {
	return CalculateRange(bars, tradingDaysPerYear)
}

// Calculate30DayRange returns the high and low of the last 22 trading days.
func Calculate30DayRange(bars []model.DailyBar) (high, low float64, err error) {
	return CalculateRange(bars, tradingDaysPerMonth)
}

// CalculateRangePosition returns where the current price sits within a range (0.0~1.0).
func CalculateRangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
