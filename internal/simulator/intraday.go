package simulator

import (
	"fmt"
	"log"
	"math"
	"time"

	"ExchangeSim/internal/model"
)

const (
	openingNoise       = 0.01
	tickMarketNoise    = 0.001
	tickSectorNoise    = 0.002
	tickCompanyNoise   = 0.003
	tickVolumeFraction = 0.01
	tickVolumeBoost    = 20
)

// TickResult is the outcome of one tick. When the tick reaches the end of the
// session, Quotes is nil and Closed holds the session's daily bars.
type TickResult struct {
	Quotes map[string]model.Quote
	Closed []model.DailyBar
}

// SessionClosed reports whether the tick ended the session.
func (r *TickResult) SessionClosed() bool { return r.Closed != nil }

// Intraday walks minute-level prices through one trading session at a time.
// It shares the random stream, company universe and series of its generator,
// so closed sessions extend the same history.
type Intraday struct {
	gen *Generator

	date   time.Time
	open   bool
	minute int
	states map[string]*model.IntradayState

	// status as of the last close, reported while no session is open
	closedStatus *model.MarketStatus
}

// NewIntraday creates a session driver on top of gen.
func NewIntraday(gen *Generator) *Intraday {
	return &Intraday{gen: gen}
}

// IsOpen reports whether a session is in progress.
func (s *Intraday) IsOpen() bool { return s.open }

// Date returns the date of the current or last session.
func (s *Intraday) Date() time.Time { return s.date }

// OpenSession starts a session on date, or on the generator's next trading
// date when date is nil, and returns the opening price of every company. The
// date must be a weekday after the latest bar in the series.
func (s *Intraday) OpenSession(date *time.Time) (map[string]float64, []Warning, error) {
	if s.open {
		return nil, nil, ErrSessionOpen
	}
	g := s.gen
	if len(g.symbols) == 0 {
		return nil, nil, ErrNotConfigured
	}

	d := g.NextTradingDate()
	if date != nil {
		d = model.TradingDate(*date)
	}
	if model.IsWeekend(d) {
		return nil, nil, fmt.Errorf("%w: %s is not a trading day", ErrInvalidArgument, d.Format(model.DateLayout))
	}
	if latest, ok := g.series.LatestDate(); ok && !d.After(latest) {
		return nil, nil, fmt.Errorf("%w: %s is not after the latest bars on %s",
			ErrInvalidArgument, d.Format(model.DateLayout), latest.Format(model.DateLayout))
	}

	var warnings []Warning
	states := make(map[string]*model.IntradayState, len(g.symbols))
	opens := make(map[string]float64, len(g.symbols))
	for _, sym := range g.symbols {
		company := g.companies[sym]
		prevClose, w := s.prevClose(company)
		if w != nil {
			warnings = append(warnings, *w)
		}

		openPrice := math.Max(prevClose*(1+g.src.normal(0, openingNoise)), minLow)
		states[sym] = &model.IntradayState{
			Symbol:    sym,
			Sector:    company.Sector,
			PrevClose: prevClose,
			Open:      openPrice,
			High:      openPrice,
			Low:       openPrice,
			Last:      openPrice,
			Times:     []int{0},
			Prices:    []float64{openPrice},
			Volumes:   []int64{0},
		}
		opens[sym] = openPrice
	}

	s.date = d
	s.states = states
	s.minute = 0
	s.open = true
	g.sessionOpen = true

	for _, w := range warnings {
		log.Printf("[WARN] %s", w)
	}
	log.Printf("[INFO] market opened for %s with %d companies", d.Format(model.DateLayout), len(states))
	return opens, warnings, nil
}

func (s *Intraday) prevClose(company *model.CompanyProfile) (float64, *Warning) {
	if last, ok := s.gen.series.LastBar(company.Symbol); ok && last.Close > 0 {
		return last.Close, nil
	}
	if p, ok := company.PrevClose(); ok {
		return p, nil
	}
	p := s.gen.src.uniform(500, 1500)
	return p, &Warning{Symbol: company.Symbol, Message: fmt.Sprintf("no previous close, using random %.2f", p)}
}

// Tick advances the session clock by minutes and moves every price. A
// volatilityFactor <= 0 means 1.0. Once the clock reaches the session length
// the session is closed instead and its bars are returned.
func (s *Intraday) Tick(minutes int, volatilityFactor float64) (*TickResult, error) {
	if !s.open {
		return nil, ErrSessionClosed
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive, got %d", ErrInvalidArgument, minutes)
	}
	if volatilityFactor <= 0 {
		volatilityFactor = 1.0
	}

	s.minute += minutes
	if s.minute >= s.gen.cfg.SessionMinutes {
		log.Printf("[INFO] trading hours completed at minute %d", s.minute)
		bars, err := s.CloseSession()
		if err != nil {
			return nil, err
		}
		return &TickResult{Closed: bars}, nil
	}

	g := s.gen
	marketFactor := g.src.normal(0, tickMarketNoise*volatilityFactor)

	sectorFactors := make(map[string]float64)
	for _, sym := range g.symbols {
		sector := s.states[sym].Sector
		if sector == "" {
			continue
		}
		if _, ok := sectorFactors[sector]; !ok {
			sectorFactors[sector] = g.src.normal(0, tickSectorNoise*volatilityFactor)
		}
	}

	quotes := make(map[string]model.Quote, len(g.symbols))
	for _, sym := range g.symbols {
		st := s.states[sym]
		companyFactor := g.src.normal(0, tickCompanyNoise*volatilityFactor)
		change := marketFactor + sectorFactors[st.Sector] + companyFactor

		price := math.Max(st.Last*(1+change), minLow)
		base := g.companies[sym].BaselineVolume(g.cfg.IntradayDefaultVolume)
		raw := g.src.uniform(0, base*tickVolumeFraction*float64(minutes))
		increment := int64(math.Round(raw * (1 + math.Abs(change)*tickVolumeBoost)))

		st.Last = price
		st.High = math.Max(st.High, price)
		st.Low = math.Min(st.Low, price)
		st.Volume += increment
		st.Times = append(st.Times, s.minute)
		st.Prices = append(st.Prices, price)
		st.Volumes = append(st.Volumes, increment)

		quotes[sym] = quoteOf(st)
	}
	return &TickResult{Quotes: quotes}, nil
}

func quoteOf(st *model.IntradayState) model.Quote {
	q := model.Quote{
		Price:  st.Last,
		Change: st.Last - st.PrevClose,
		High:   st.High,
		Low:    st.Low,
		Volume: st.Volume,
	}
	if st.PrevClose != 0 {
		q.ChangePct = q.Change / st.PrevClose * 100
	}
	return q
}

// CloseSession turns every company's session into one daily bar, appends the
// bars to the generator's series and updates the company snapshots.
func (s *Intraday) CloseSession() ([]model.DailyBar, error) {
	if !s.open {
		return nil, ErrSessionClosed
	}
	g := s.gen

	bars := make([]model.DailyBar, 0, len(g.symbols))
	for _, sym := range g.symbols {
		st := s.states[sym]
		bars = append(bars, model.DailyBar{
			Date:   s.date,
			Symbol: sym,
			Open:   st.Open,
			High:   st.High,
			Low:    st.Low,
			Close:  st.Last,
			Volume: st.Volume,
		})
	}
	if err := g.series.Append(bars...); err != nil {
		return nil, fmt.Errorf("append session bars: %w", err)
	}

	for i, sym := range g.symbols {
		st := s.states[sym]
		applySnapshot(g.companies[sym], bars[i], s.circuitStatus(st))
	}

	status := s.status()
	status.IsOpen = false
	s.closedStatus = &status

	s.open = false
	s.states = nil
	g.sessionOpen = false
	if !g.hasGenerated || s.date.After(g.clock.date) {
		g.clock.date = s.date
	}
	g.clock.day++
	g.hasGenerated = true

	log.Printf("[INFO] market closed for %s, %d bars appended", s.date.Format(model.DateLayout), len(bars))
	return bars, nil
}

func (s *Intraday) circuitStatus(st *model.IntradayState) model.CircuitStatus {
	if st.PrevClose <= 0 {
		return model.CircuitNone
	}
	ret := (st.Last - st.PrevClose) / st.PrevClose
	switch {
	case ret > s.gen.cfg.CircuitUpper:
		return model.CircuitUpper
	case ret < s.gen.cfg.CircuitLower:
		return model.CircuitLower
	default:
		return model.CircuitNone
	}
}

// Status reports the progress and breadth of the current session. With no
// session open it returns the status at the last close, or zero values.
func (s *Intraday) Status() model.MarketStatus {
	if s.open {
		return s.status()
	}
	if s.closedStatus != nil {
		return *s.closedStatus
	}
	return model.MarketStatus{TotalMinutes: s.gen.cfg.SessionMinutes}
}

func (s *Intraday) status() model.MarketStatus {
	total := s.gen.cfg.SessionMinutes
	minute := s.minute
	if minute > total {
		minute = total
	}
	st := model.MarketStatus{
		Date:         s.date,
		IsOpen:       s.open,
		Minute:       minute,
		TotalMinutes: total,
		ElapsedPct:   float64(minute) / float64(total) * 100,
	}
	for _, sym := range s.gen.symbols {
		state := s.states[sym]
		switch change := state.Last - state.PrevClose; {
		case change > 0:
			st.Advancing++
		case change < 0:
			st.Declining++
		default:
			st.Unchanged++
		}
		st.TotalVolume += state.Volume
	}
	return st
}

// IntradayData returns a copy of the running state of symbol in the open session.
func (s *Intraday) IntradayData(symbol string) (model.IntradayState, bool) {
	st, ok := s.states[symbol]
	if !ok {
		return model.IntradayState{}, false
	}
	cp := *st
	cp.Times = append([]int(nil), st.Times...)
	cp.Prices = append([]float64(nil), st.Prices...)
	cp.Volumes = append([]int64(nil), st.Volumes...)
	return cp, true
}
