package calculator

import (
	"time"

	"ExchangeSim/internal/model"
)

// CircuitEvent marks a day whose close-to-close return crossed a threshold.
type CircuitEvent struct {
	Date   time.Time
	Status model.CircuitStatus
	Return float64
}

// circuitTolerance lets a day clamped exactly at the limit count as a hit.
const circuitTolerance = 1e-9

// DetectCircuitEvents scans chronologically ordered bars of one symbol and
// returns every day whose return reaches upper or lower. Thresholds are
// fractions, e.g. 0.10 and -0.10.
func DetectCircuitEvents(bars []model.DailyBar, upper, lower float64) []CircuitEvent {
	var events []CircuitEvent
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		ret := (bars[i].Close - prev) / prev
		switch {
		case ret >= upper-circuitTolerance:
			events = append(events, CircuitEvent{Date: bars[i].Date, Status: model.CircuitUpper, Return: ret})
		case ret <= lower+circuitTolerance:
			events = append(events, CircuitEvent{Date: bars[i].Date, Status: model.CircuitLower, Return: ret})
		}
	}
	return events
}
