package calculator

import (
	"errors"

	"ExchangeSim/internal/model"
)

// neutralRSI is reported when there are too few bars or no movement at all.
const neutralRSI = 50.0

// CalculateRSI returns the RSI of the latest bar, using simple averages of the
// gains and losses over the last period close-to-close changes.
func CalculateRSI(bars []model.DailyBar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return neutralRSI, nil
	}

	closes := ExtractCloses(bars[len(bars)-period-1:])
	var gains, losses float64
	for i := 1; i < len(closes); i++ {
		if d := closes[i] - closes[i-1]; d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}

	switch {
	case gains == 0 && losses == 0:
		return neutralRSI, nil
	case losses == 0:
		return 100.0, nil
	}
	rs := gains / losses
	return 100.0 - 100.0/(1.0+rs), nil
}
