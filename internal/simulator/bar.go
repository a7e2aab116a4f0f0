package simulator

import (
	"fmt"
	"math"
	"time"

	"ExchangeSim/internal/model"
)

const (
	marketWeight   = 0.3
	sectorWeight   = 0.4
	priceFloorFrac = 0.1
	minLow         = 0.1
	circuitVolume  = 1.5
)

// BarResult is the outcome of synthesizing one company's day.
type BarResult struct {
	Bar     model.DailyBar
	Circuit model.CircuitStatus
	// Combined is the factor applied to the previous close, after clamping.
	Combined float64
	// Unclamped is the combined factor before the circuit breaker.
	Unclamped float64
	PrevClose float64
}

// BarSynthesizer builds daily bars from the shared market factors.
type BarSynthesizer struct {
	cfg     Config
	src     *source
	factors *MarketFactors
	events  *EventInjector
}

func newBarSynthesizer(cfg Config, src *source, factors *MarketFactors, events *EventInjector) *BarSynthesizer {
	return &BarSynthesizer{cfg: cfg, src: src, factors: factors, events: events}
}

// Synthesize produces one bar for company on date and writes the result back
// into the company's snapshot. prevClose <= 0 means no prior price is known.
func (s *BarSynthesizer) Synthesize(date time.Time, company *model.CompanyProfile, prevClose, volatility float64) (BarResult, []Warning) {
	var warnings []Warning

	if prevClose <= 0 {
		if snap, ok := company.PrevClose(); ok {
			prevClose = snap
		} else {
			prevClose = s.src.uniform(500, 1500)
			warnings = append(warnings, Warning{
				Symbol:  company.Symbol,
				Message: fmt.Sprintf("no previous close, using random %.2f", prevClose),
			})
		}
	}

	companyVol := volatility * s.src.uniform(0.7, 1.3)

	marketFactor := s.factors.Sentiment() * marketWeight

	var sectorFactor float64
	if company.Sector != "" {
		if trend, ok := s.factors.Trend(company.Sector); ok {
			sectorFactor = trend * sectorWeight
		} else {
			warnings = append(warnings, Warning{
				Symbol:  company.Symbol,
				Message: fmt.Sprintf("sector %q has no tracked trend, using neutral factor", company.Sector),
			})
		}
	}

	var companyFactor float64
	var event *model.CompanyEvent
	if impact, ok := s.events.MaybeCompanyEvent(company.Symbol); ok {
		companyFactor += impact
		evt := s.events.companyEvents[company.Symbol]
		event = &evt
	}
	companyFactor += s.src.normal(0, companyVol)

	unclamped := marketFactor + sectorFactor + companyFactor
	combined, circuit := s.applyCircuitBreaker(unclamped)

	closePrice := math.Max(prevClose+prevClose*combined, prevClose*priceFloorFrac)
	openPrice := prevClose * (1 + s.src.normal(0, companyVol*0.5))
	// keep low <= min(open, close) once the low is floored
	closePrice = math.Max(closePrice, minLow)
	openPrice = math.Max(openPrice, minLow)

	priceRange := math.Max(closePrice*companyVol, 1)
	high := math.Max(openPrice, closePrice) + math.Abs(s.src.normal(0, priceRange*0.3))
	low := math.Min(openPrice, closePrice) - math.Abs(s.src.normal(0, priceRange*0.3))
	high = math.Max(high, math.Max(openPrice, closePrice))
	low = math.Min(low, math.Min(openPrice, closePrice))
	low = math.Max(low, minLow)

	company.CaptureBaseVolume()
	baseVolume := company.BaselineVolume(s.cfg.DefaultVolume)
	volumeFactor := 1 + math.Abs(combined)*5
	if circuit != model.CircuitNone {
		volumeFactor *= circuitVolume
	}
	volumeFactor *= s.src.uniform(0.7, 1.3)
	volume := int64(math.Round(baseVolume * volumeFactor))

	bar := model.DailyBar{
		Date:   model.TradingDate(date),
		Symbol: company.Symbol,
		Open:   openPrice,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}
	applySnapshot(company, bar, circuit)
	if event != nil {
		company.LastEvent = event
	}

	return BarResult{
		Bar:       bar,
		Circuit:   circuit,
		Combined:  combined,
		Unclamped: unclamped,
		PrevClose: prevClose,
	}, warnings
}

func (s *BarSynthesizer) applyCircuitBreaker(factor float64) (float64, model.CircuitStatus) {
	switch {
	case factor > s.cfg.CircuitUpper:
		return s.cfg.CircuitUpper, model.CircuitUpper
	case factor < s.cfg.CircuitLower:
		return s.cfg.CircuitLower, model.CircuitLower
	default:
		return factor, model.CircuitNone
	}
}

func applySnapshot(company *model.CompanyProfile, bar model.DailyBar, circuit model.CircuitStatus) {
	company.Price = &model.PriceSnapshot{
		Open:  bar.Open,
		High:  bar.High,
		Low:   bar.Low,
		Close: bar.Close,
	}
	v := bar.Volume
	company.Volume = &v
	company.CircuitStatus = circuit
}
