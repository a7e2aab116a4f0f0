package calculator

import (
	"errors"
	"math"

	"ExchangeSim/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateMA returns the simple moving average of bar closes.
func CalculateMA(bars []model.DailyBar, period int) (float64, error) {
	return CalculateSMA(ExtractCloses(bars), period)
}

// CalculateEMA returns the exponential moving average series with
// alpha = 2/(span+1), seeded with the first price.
func CalculateEMA(prices []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	if len(prices) == 0 {
		return nil, errors.New("no prices provided")
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// MACD is the latest value of the moving average convergence divergence.
type MACD struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD computes MACD(fast, slow, signal) over bar closes and returns the latest point.
func CalculateMACD(bars []model.DailyBar, fast, slow, signal int) (MACD, error) {
	if fast >= slow {
		return MACD{}, errors.New("fast period must be shorter than slow period")
	}
	closes := ExtractCloses(bars)
	emaFast, err := CalculateEMA(closes, fast)
	if err != nil {
		return MACD{}, err
	}
	emaSlow, err := CalculateEMA(closes, slow)
	if err != nil {
		return MACD{}, err
	}
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig, err := CalculateEMA(line, signal)
	if err != nil {
		return MACD{}, err
	}
	last := len(line) - 1
	return MACD{
		Line:      line[last],
		Signal:    sig[last],
		Histogram: line[last] - sig[last],
	}, nil
}

// CalculateBollinger returns the latest upper, middle and lower bands using
// the sample standard deviation of the last window closes.
func CalculateBollinger(bars []model.DailyBar, window int, numStd float64) (upper, middle, lower float64, err error) {
	closes := ExtractCloses(bars)
	middle, err = CalculateSMA(closes, window)
	if err != nil {
		return 0, 0, 0, err
	}
	if window < 2 {
		return middle, middle, middle, nil
	}
	var sq float64
	for _, p := range closes[len(closes)-window:] {
		sq += (p - middle) * (p - middle)
	}
	std := math.Sqrt(sq / float64(window-1))
	return middle + std*numStd, middle, middle - std*numStd, nil
}

// ExtractCloses returns the close of every bar.
func ExtractCloses(bars []model.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
