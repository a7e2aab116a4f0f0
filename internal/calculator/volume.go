package calculator

import (
	"errors"

	"ExchangeSim/internal/model"
)

// CalculateAverageVolume returns the mean volume of the last period bars.
func CalculateAverageVolume(bars []model.DailyBar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period {
		return 0, errors.New("not enough data for average volume")
	}
	var sum int64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return float64(sum) / float64(period), nil
}

// DetectVolumeSpikes returns the indexes of bars whose volume exceeds
// threshold times the average of the period bars ending at that bar.
func DetectVolumeSpikes(bars []model.DailyBar, threshold float64, period int) []int {
	if period <= 0 {
		return nil
	}
	var spikes []int
	var window int64
	for i, b := range bars {
		window += b.Volume
		if i >= period {
			window -= bars[i-period].Volume
		}
		if i < period-1 {
			continue
		}
		avg := float64(window) / float64(period)
		if float64(b.Volume) > avg*threshold {
			spikes = append(spikes, i)
		}
	}
	return spikes
}
