package calculator

import (
	"math"
	"testing"
	"time"

	"ExchangeSim/internal/model"
)

func barsFromCloses(closes ...float64) []model.DailyBar {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.DailyBar, len(closes))
	for i, c := range closes {
		bars[i] = model.DailyBar{
			Date:   start.AddDate(0, 0, i),
			Symbol: "AAA",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %.4f", got)
	}
	if _, err := CalculateSMA([]float64{1, 2}, 3); err == nil {
		t.Error("expected error for insufficient data")
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestCalculateEMA(t *testing.T) {
	ema, err := CalculateEMA([]float64{10, 20, 30}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// alpha = 0.5
	want := []float64{10, 15, 22.5}
	for i := range want {
		if math.Abs(ema[i]-want[i]) > 1e-9 {
			t.Errorf("ema[%d]: expected %.4f, got %.4f", i, want[i], ema[i])
		}
	}
	if _, err := CalculateEMA(nil, 3); err == nil {
		t.Error("expected error for empty prices")
	}
}

func TestCalculateMACD(t *testing.T) {
	flat := barsFromCloses(100, 100, 100, 100, 100, 100, 100, 100)
	m, err := CalculateMACD(flat, 3, 6, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Line != 0 || m.Signal != 0 || m.Histogram != 0 {
		t.Errorf("expected zero MACD on flat prices, got %+v", m)
	}

	rising := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	m, err = CalculateMACD(rising, 3, 6, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Line <= 0 {
		t.Errorf("expected positive MACD line on rising prices, got %.4f", m.Line)
	}
	if _, err := CalculateMACD(rising, 6, 3, 3); err == nil {
		t.Error("expected error when fast >= slow")
	}
}

func TestCalculateBollinger(t *testing.T) {
	bars := barsFromCloses(2, 4, 4, 4, 5, 5, 7, 9)
	upper, middle, lower, err := CalculateBollinger(bars, 8, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if middle != 5 {
		t.Errorf("expected middle 5, got %.4f", middle)
	}
	std := math.Sqrt(32.0 / 7.0)
	if math.Abs(upper-(5+2*std)) > 1e-9 || math.Abs(lower-(5-2*std)) > 1e-9 {
		t.Errorf("unexpected bands: %.4f / %.4f", upper, lower)
	}
}

func TestCalculateRSI(t *testing.T) {
	short := barsFromCloses(1, 2, 3)
	if rsi, err := CalculateRSI(short, 14); err != nil || rsi != 50 {
		t.Errorf("expected 50 on insufficient data, got %.2f (%v)", rsi, err)
	}

	up := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
	}
	if rsi, _ := CalculateRSI(barsFromCloses(up...), 14); rsi != 100 {
		t.Errorf("expected 100 on monotonic gains, got %.2f", rsi)
	}

	down := make([]float64, 20)
	for i := range down {
		down[i] = float64(100 - i)
	}
	if rsi, _ := CalculateRSI(barsFromCloses(down...), 14); rsi != 0 {
		t.Errorf("expected 0 on monotonic losses, got %.2f", rsi)
	}

	if _, err := CalculateRSI(short, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestCalculateRange(t *testing.T) {
	bars := barsFromCloses(10, 30, 20, 15)
	high, low, err := CalculateRange(bars, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high != 21 || low != 14 {
		t.Errorf("expected 21/14, got %.2f/%.2f", high, low)
	}

	high, low, _ = Calculate52WeekRange(bars)
	if high != 31 || low != 9 {
		t.Errorf("expected full-range 31/9, got %.2f/%.2f", high, low)
	}

	if _, _, err := CalculateRange(nil, 5); err == nil {
		t.Error("expected error for empty bars")
	}
}

func TestCalculateRangePosition(t *testing.T) {
	tests := []struct {
		current, high, low, want float64
	}{
		{15, 20, 10, 0.5},
		{25, 20, 10, 1},
		{5, 20, 10, 0},
		{10, 10, 10, 0.5},
	}
	for _, tt := range tests {
		got, err := CalculateRangePosition(tt.current, tt.high, tt.low)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("position(%.0f in %.0f..%.0f): expected %.2f, got %.2f", tt.current, tt.low, tt.high, tt.want, got)
		}
	}
	if _, err := CalculateRangePosition(1, 1, 2); err == nil {
		t.Error("expected error when high < low")
	}
}

func TestVolume(t *testing.T) {
	bars := barsFromCloses(1, 1, 1, 1, 1)
	bars[4].Volume = 5000

	avg, err := CalculateAverageVolume(bars, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 1800 {
		t.Errorf("expected 1800, got %.2f", avg)
	}
	if _, err := CalculateAverageVolume(bars, 6); err == nil {
		t.Error("expected error for insufficient data")
	}

	spikes := DetectVolumeSpikes(bars, 2, 3)
	if len(spikes) != 1 || spikes[0] != 4 {
		t.Errorf("expected a spike at index 4, got %v", spikes)
	}
}

func TestDetectCircuitEvents(t *testing.T) {
	bars := barsFromCloses(100, 110, 99, 98)
	events := DetectCircuitEvents(bars, 0.10, -0.10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Status != model.CircuitUpper || !events[0].Date.Equal(bars[1].Date) {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Status != model.CircuitLower || !events[1].Date.Equal(bars[2].Date) {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}
