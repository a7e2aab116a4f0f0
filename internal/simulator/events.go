package simulator

import (
	"fmt"
	"log"
	"math"
	"time"

	"ExchangeSim/internal/model"

	"github.com/google/uuid"
)

var marketEvents = []string{
	"Central Bank Changes Interest Rates",
	"Government Fiscal Policy Announcement",
	"Major Economic Data Release",
	"International Market Influence",
	"Foreign Investment Policy Change",
	"Currency Value Fluctuation",
}

var sectorEvents = map[string][]string{
	"Commercial Bank":    {"Banking Regulation Change", "Interest Rate Policy Shift", "Merger Announcement", "Credit Growth Report"},
	"Life Insurance":     {"Insurance Regulation Update", "Claim Settlement Rate Change", "New Insurance Product Launch", "Reinsurance Agreement"},
	"Non-Life Insurance": {"Property Insurance Demand Change", "Natural Disaster Impact", "Regulatory Capital Requirements", "Insurance Premium Adjustment"},
	"Finance":            {"Microfinance Regulation", "Loan Portfolio Quality Report", "Credit Rating Change", "Liquidity Requirements"},
	"Energy":             {"Energy Policy Update", "Hydropower Project Announcement", "Electricity Demand Forecast", "Transmission Infrastructure Investment"},
	"Aviation":           {"Fuel Price Changes", "Airport Expansion Project", "Tourism Trend Impact", "Route Expansion Announcement"},
	"Agriculture":        {"Monsoon Season Forecast", "Crop Production Report", "Fertilizer Subsidy Change", "Agricultural Export Policy"},
	"Construction":       {"Infrastructure Development Plan", "Building Material Price Change", "Construction Permit Process Update", "Real Estate Market Report"},
	"Manufacturing":      {"Raw Material Price Fluctuation", "Export Incentives Change", "Labor Law Amendment", "Factory Output Report"},
	"Telecommunications": {"Spectrum Allocation Decision", "Internet Penetration Report", "Telecom Tariff Regulation", "Network Infrastructure Investment"},
	"Hospitality":        {"Tourism Season Forecast", "Hotel Occupancy Rates", "International Tourism Policy", "Travel Advisory Change"},
	"Conglomerate":       {"Corporate Restructuring", "Diversification Strategy", "Holdings Adjustment", "Group Performance Report"},
	"Investment Fund":    {"Investment Strategy Update", "Fund Performance Report", "Asset Allocation Change", "Regulatory Compliance Update"},
}

var genericSectorEvents = []string{
	"Regulatory Change",
	"Industry Report Release",
	"Market Trend Shift",
	"Corporate Announcement",
}

var companyEvents = []string{
	"Quarterly Earnings Report",
	"Management Change",
	"New Product Launch",
	"Regulatory Action",
	"Legal Issue",
	"Dividend Announcement",
	"Merger or Acquisition Talks",
	"Insider Trading News",
	"Major Contract Gain/Loss",
	"Analyst Rating Change",
}

const (
	marketEventWeight   = 2.0
	sectorEventWeight   = 3.0
	companyPositiveOdds = 0.6
	negativeImpactOdds  = 0.5
)

// tradingClock is the position of the generator in simulated time.
type tradingClock struct {
	date time.Time
	day  int
}

// EventInjector perturbs the market factors with random shocks.
type EventInjector struct {
	cfg     Config
	impacts []float64
	src     *source
	factors *MarketFactors
	clock   *tradingClock

	journal       []model.MarketEvent
	companyEvents map[string]model.CompanyEvent
}

func newEventInjector(cfg Config, src *source, factors *MarketFactors, clock *tradingClock) *EventInjector {
	return &EventInjector{
		cfg:           cfg,
		impacts:       cfg.impacts(),
		src:           src,
		factors:       factors,
		clock:         clock,
		companyEvents: make(map[string]model.CompanyEvent),
	}
}

// MaybeMarketEvent shifts the sentiment by twice a signed impact level.
func (e *EventInjector) MaybeMarketEvent() (model.MarketEvent, bool) {
	if !e.src.chance(e.cfg.MarketEventProbability) {
		return model.MarketEvent{}, false
	}
	label := pick(e.src, marketEvents)
	impact := e.drawImpact(negativeImpactOdds)

	e.factors.shiftSentiment(impact * marketEventWeight)
	log.Printf("[INFO] market event: %s with impact %+.2f%%", label, impact*100)
	return e.record(model.ScopeMarket, "", label, impact), true
}

// MaybeSectorEvent shifts one tracked sector's trend by three times a signed impact level.
func (e *EventInjector) MaybeSectorEvent() (model.MarketEvent, bool) {
	if !e.src.chance(e.cfg.SectorEventProbability) {
		return model.MarketEvent{}, false
	}
	sectors := e.factors.sectors
	if len(sectors) == 0 {
		return model.MarketEvent{}, false
	}
	sector := pick(e.src, sectors)
	catalog, ok := sectorEvents[sector]
	if !ok {
		catalog = genericSectorEvents
	}
	label := pick(e.src, catalog)
	impact := e.drawImpact(negativeImpactOdds)

	e.factors.shiftTrend(sector, impact*sectorEventWeight)
	log.Printf("[INFO] sector event: %s in %s with impact %+.2f%%", label, sector, impact*100)
	return e.record(model.ScopeSector, sector, label, impact), true
}

// MaybeCompanyEvent returns a signed impact for symbol when an event fires.
// Company events lean positive.
func (e *EventInjector) MaybeCompanyEvent(symbol string) (float64, bool) {
	if !e.src.chance(e.cfg.CompanyEventProbability) {
		return 0, false
	}
	label := pick(e.src, companyEvents)
	impact := math.Abs(pick(e.src, e.impacts))
	if !e.src.chance(companyPositiveOdds) {
		impact = -impact
	}

	e.companyEvents[symbol] = model.CompanyEvent{Label: label, Impact: impact, Day: e.clock.day}
	if e.cfg.Verbose {
		log.Printf("[INFO] company event: %s for %s with impact %+.2f%%", label, symbol, impact*100)
	}
	e.record(model.ScopeCompany, symbol, label, impact)
	return impact, true
}

// CompanyEvents returns the latest event per symbol.
func (e *EventInjector) CompanyEvents() map[string]model.CompanyEvent {
	out := make(map[string]model.CompanyEvent, len(e.companyEvents))
	for k, v := range e.companyEvents {
		out[k] = v
	}
	return out
}

// Journal returns every event injected so far, oldest first.
func (e *EventInjector) Journal() []model.MarketEvent {
	out := make([]model.MarketEvent, len(e.journal))
	copy(out, e.journal)
	return out
}

func (e *EventInjector) drawImpact(negativeOdds float64) float64 {
	impact := pick(e.src, e.impacts)
	if e.src.chance(negativeOdds) {
		impact = -impact
	}
	return impact
}

func (e *EventInjector) record(scope model.EventScope, target, label string, impact float64) model.MarketEvent {
	seq := len(e.journal)
	name := fmt.Sprintf("%s|%s|%s|%d|%d", scope, target, e.clock.date.Format(model.DateLayout), e.clock.day, seq)
	evt := model.MarketEvent{
		ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(),
		Scope:  scope,
		Target: target,
		Label:  label,
		Impact: impact,
		Day:    e.clock.day,
		Date:   e.clock.date,
	}
	e.journal = append(e.journal, evt)
	return evt
}
