package simulator

import (
	"fmt"
	"log"
	"sort"
	"time"

	"ExchangeSim/internal/calculator"
	"ExchangeSim/internal/model"
	"ExchangeSim/internal/series"
)

const rsiPeriod = 14

// InitOptions seeds a new simulation run. Nil fields are drawn or defaulted.
type InitOptions struct {
	Sentiment *float64
	StartDate *time.Time
}

// Generator produces daily bars for a company universe.
//
// A Generator is not safe for concurrent use; callers serialise every call.
// The company profiles passed to New are owned by the caller and are updated
// in place after every generated bar.
type Generator struct {
	cfg     Config
	src     *source
	factors *MarketFactors
	clock   tradingClock
	events  *EventInjector
	bars    *BarSynthesizer

	companies map[string]*model.CompanyProfile
	symbols   []string
	series    *series.Series

	initialized  bool
	hasGenerated bool
	sessionOpen  bool

	now func() time.Time
}

// New creates a generator with a single random stream seeded by seed.
func New(cfg Config, companies map[string]*model.CompanyProfile, seed uint64) *Generator {
	cfg = cfg.withDefaults()
	g := &Generator{
		cfg:    cfg,
		src:    newSource(seed),
		series: series.New(),
		now:    time.Now,
	}
	g.factors = newMarketFactors(g.src)
	g.events = newEventInjector(cfg, g.src, g.factors, &g.clock)
	g.bars = newBarSynthesizer(cfg, g.src, g.factors, g.events)
	g.setCompanies(companies)
	log.Printf("[INFO] generator created with %d companies, seed %d", len(g.symbols), seed)
	return g
}

func (g *Generator) setCompanies(companies map[string]*model.CompanyProfile) {
	g.companies = make(map[string]*model.CompanyProfile, len(companies))
	g.symbols = g.symbols[:0]
	for sym, c := range companies {
		if c == nil {
			continue
		}
		if c.Symbol == "" {
			c.Symbol = sym
		}
		c.CaptureBaseVolume()
		g.companies[sym] = c
		g.symbols = append(g.symbols, sym)
	}
	sort.Strings(g.symbols)
}

// Initialize resets the market factors and the clock. Without a start date the
// clock resumes after the loaded history, or starts 365 days before now.
func (g *Generator) Initialize(opts InitOptions) error {
	if g.sessionOpen {
		return ErrSessionOpen
	}
	sectors := make([]string, 0, len(g.symbols))
	for _, sym := range g.symbols {
		sectors = append(sectors, g.companies[sym].Sector)
	}
	g.factors.reset(opts.Sentiment, sectors)

	g.clock.day = 0
	g.hasGenerated = false
	switch {
	case opts.StartDate != nil:
		g.clock.date = model.TradingDate(*opts.StartDate)
	case g.series.Len() > 0:
		latest, _ := g.series.LatestDate()
		g.clock.date = latest
		g.hasGenerated = true
	default:
		g.clock.date = model.TradingDate(g.now().AddDate(0, 0, -365))
	}
	g.initialized = true

	log.Printf("[INFO] market initialised: sentiment %.3f, %d sectors, start %s",
		g.factors.Sentiment(), len(g.factors.sectors), g.clock.date.Format(model.DateLayout))
	return nil
}

// GenerateHistorical generates numDays trading days from the current clock
// position and returns the cumulative series. The returned series is shared
// with the generator and must not be modified.
func (g *Generator) GenerateHistorical(numDays int, volatility float64) (*series.Series, []Warning, error) {
	_, warnings, err := g.generate(numDays, volatility)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] generated %d trading days for %d companies, series has %d bars",
		numDays, len(g.symbols), g.series.Len())
	return g.series, warnings, nil
}

// GenerateNextDay generates one trading day and returns only its bars.
func (g *Generator) GenerateNextDay(volatility float64) ([]model.DailyBar, []Warning, error) {
	bars, warnings, err := g.generate(1, volatility)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] generated data for %s", g.clock.date.Format(model.DateLayout))
	return bars, warnings, nil
}

// GenerateMultipleDays generates n trading days and returns their bars.
func (g *Generator) GenerateMultipleDays(n int, volatility float64) ([]model.DailyBar, []Warning, error) {
	bars, warnings, err := g.generate(n, volatility)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] generated %d additional trading days", n)
	return bars, warnings, nil
}

func (g *Generator) generate(n int, volatility float64) ([]model.DailyBar, []Warning, error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: day count must be positive, got %d", ErrInvalidArgument, n)
	}
	if len(g.symbols) == 0 {
		return nil, nil, ErrNotConfigured
	}
	if g.sessionOpen {
		return nil, nil, ErrSessionOpen
	}
	if !g.initialized {
		if err := g.Initialize(InitOptions{}); err != nil {
			return nil, nil, err
		}
	}
	if volatility <= 0 {
		volatility = g.cfg.BaseVolatility
	}

	dates := g.tradingDates(n)
	for _, d := range dates {
		if g.series.Has(d) {
			return nil, nil, fmt.Errorf("%w: %s already generated", series.ErrDuplicateBar, d.Format(model.DateLayout))
		}
	}

	var (
		out      = make([]model.DailyBar, 0, n*len(g.symbols))
		warnings []Warning
	)
	for _, d := range dates {
		bars, w, err := g.generateDay(d, volatility)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, bars...)
		warnings = append(warnings, w...)
	}
	for _, w := range warnings {
		log.Printf("[WARN] %s", w)
	}
	return out, warnings, nil
}

// tradingDates returns the next n weekdays from the clock. The clock date
// itself is included only before anything has been generated on it.
func (g *Generator) tradingDates(n int) []time.Time {
	d := g.clock.date
	if g.hasGenerated {
		d = d.AddDate(0, 0, 1)
	}
	dates := make([]time.Time, 0, n)
	for len(dates) < n {
		if !model.IsWeekend(d) {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func (g *Generator) generateDay(date time.Time, volatility float64) ([]model.DailyBar, []Warning, error) {
	g.clock.date = date
	g.factors.Advance()
	g.events.MaybeMarketEvent()
	g.events.MaybeSectorEvent()

	bars := make([]model.DailyBar, 0, len(g.symbols))
	var warnings []Warning
	for _, sym := range g.symbols {
		var prevClose float64
		if last, ok := g.series.LastBar(sym); ok {
			prevClose = last.Close
		}
		res, w := g.bars.Synthesize(date, g.companies[sym], prevClose, volatility)
		bars = append(bars, res.Bar)
		warnings = append(warnings, w...)
	}
	if err := g.series.Append(bars...); err != nil {
		return nil, nil, err
	}
	g.clock.day++
	g.hasGenerated = true
	return bars, warnings, nil
}

// LoadHistory replaces the cumulative series, e.g. with a previously saved
// run. The clock moves to the last date of the history.
func (g *Generator) LoadHistory(s *series.Series) error {
	if g.sessionOpen {
		return ErrSessionOpen
	}
	if s == nil {
		s = series.New()
	}
	g.series = s
	if latest, ok := s.LatestDate(); ok {
		g.clock.date = latest
		g.hasGenerated = true
	}
	log.Printf("[INFO] loaded history with %d bars", s.Len())
	return nil
}

// CompanySnapshot is the latest bar of a company with derived indicators.
type CompanySnapshot struct {
	Symbol    string
	Name      string
	Sector    string
	Bar       model.DailyBar
	PrevClose float64
	ChangePct float64
	RSI       float64
	Circuit   model.CircuitStatus
	LastEvent *model.CompanyEvent
}

// LatestCompanyData returns the most recent bar of every company that traded
// on the latest date, sorted by symbol.
func (g *Generator) LatestCompanyData() []CompanySnapshot {
	latest, ok := g.series.LatestDate()
	if !ok {
		return nil
	}
	var out []CompanySnapshot
	for _, sym := range g.symbols {
		bar, ok := g.series.Get(latest, sym)
		if !ok {
			continue
		}
		history := g.series.ByCompany(sym)
		c := g.companies[sym]
		snap := CompanySnapshot{
			Symbol:    sym,
			Name:      c.Name,
			Sector:    c.Sector,
			Bar:       bar,
			Circuit:   c.CircuitStatus,
			LastEvent: c.LastEvent,
		}
		if len(history) > 1 {
			snap.PrevClose = history[len(history)-2].Close
			snap.ChangePct = (bar.Close - snap.PrevClose) / snap.PrevClose * 100
		}
		if rsi, err := calculator.CalculateRSI(history, rsiPeriod); err != nil {
			log.Printf("[WARN] RSI for %s failed: %v, defaulting to 50", sym, err)
			snap.RSI = 50
		} else {
			snap.RSI = rsi
		}
		out = append(out, snap)
	}
	return out
}

// Series returns the cumulative series. It must not be modified.
func (g *Generator) Series() *series.Series { return g.series }

// Companies returns a deep copy of the company universe.
func (g *Generator) Companies() map[string]*model.CompanyProfile {
	out := make(map[string]*model.CompanyProfile, len(g.companies))
	for sym, c := range g.companies {
		out[sym] = c.Clone()
	}
	return out
}

// Symbols returns the universe symbols in sorted order.
func (g *Generator) Symbols() []string {
	out := make([]string, len(g.symbols))
	copy(out, g.symbols)
	return out
}

// Factors returns the market factors for observation.
func (g *Generator) Factors() *MarketFactors { return g.factors }

// Events returns every injected event, oldest first.
func (g *Generator) Events() []model.MarketEvent { return g.events.Journal() }

// CompanyEvents returns the latest event per symbol.
func (g *Generator) CompanyEvents() map[string]model.CompanyEvent { return g.events.CompanyEvents() }

// CurrentDate returns the clock position and the number of days generated
// since initialisation.
func (g *Generator) CurrentDate() (time.Time, int) { return g.clock.date, g.clock.day }

// NextTradingDate returns the date the next generated day would use.
func (g *Generator) NextTradingDate() time.Time {
	if !g.initialized && !g.hasGenerated {
		d := model.TradingDate(g.now())
		for model.IsWeekend(d) {
			d = d.AddDate(0, 0, 1)
		}
		return d
	}
	return g.tradingDates(1)[0]
}
