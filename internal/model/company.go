package model

// CircuitStatus is the circuit-breaker state reached by the last bar.
type CircuitStatus string

const (
	CircuitNone  CircuitStatus = "None"
	CircuitUpper CircuitStatus = "Upper"
	CircuitLower CircuitStatus = "Lower"
)

// PriceSnapshot is the last known OHLC of a company.
type PriceSnapshot struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// CompanyProfile describes one listed company and its latest observed state.
//
// Fallback rules applied by the simulator:
//   - previous close: Price.Close when Price is set and Close > 0, otherwise a
//     uniform draw in [500, 1500];
//   - baseline volume: *BaseVolume when set and > 0, otherwise the configured
//     default. The simulator captures BaseVolume from Volume when the universe
//     is loaded and never overwrites it, so Volume stays the last observed
//     volume without feeding back into the next day;
//   - sector: empty means no sector factor is applied.
//
// MarketCap, PE and EPS are carried through from the universe file untouched.
type CompanyProfile struct {
	Symbol        string         `json:"-"`
	Name          string         `json:"name,omitempty"`
	Sector        string         `json:"sector,omitempty"`
	Price         *PriceSnapshot `json:"price,omitempty"`
	Volume        *int64         `json:"volume,omitempty"`
	BaseVolume    *int64         `json:"base_volume,omitempty"`
	CircuitStatus CircuitStatus  `json:"circuit_status,omitempty"`
	LastEvent     *CompanyEvent  `json:"last_event,omitempty"`
	MarketCap     *float64       `json:"market_cap,omitempty"`
	PE            *float64       `json:"pe_ratio,omitempty"`
	EPS           *float64       `json:"eps,omitempty"`
}

// PrevClose returns the snapshot close, if usable.
func (c *CompanyProfile) PrevClose() (float64, bool) {
	if c == nil || c.Price == nil || c.Price.Close <= 0 {
		return 0, false
	}
	return c.Price.Close, true
}

// BaselineVolume returns the volume a normal day trades around. Without a
// captured BaseVolume it falls back to Volume, then to def.
func (c *CompanyProfile) BaselineVolume(def float64) float64 {
	if c == nil {
		return def
	}
	v := c.BaseVolume
	if v == nil {
		v = c.Volume
	}
	if v == nil || *v <= 0 {
		return def
	}
	return float64(*v)
}

// CaptureBaseVolume pins the baseline to the current volume, or to zero
// (the configured default) when no volume is known. An existing baseline is
// kept.
func (c *CompanyProfile) CaptureBaseVolume() {
	if c == nil || c.BaseVolume != nil {
		return
	}
	var v int64
	if c.Volume != nil && *c.Volume > 0 {
		v = *c.Volume
	}
	c.BaseVolume = &v
}

// Clone returns a deep copy of the profile.
func (c *CompanyProfile) Clone() *CompanyProfile {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Price != nil {
		p := *c.Price
		cp.Price = &p
	}
	if c.Volume != nil {
		v := *c.Volume
		cp.Volume = &v
	}
	if c.BaseVolume != nil {
		v := *c.BaseVolume
		cp.BaseVolume = &v
	}
	if c.LastEvent != nil {
		e := *c.LastEvent
		cp.LastEvent = &e
	}
	if c.MarketCap != nil {
		v := *c.MarketCap
		cp.MarketCap = &v
	}
	if c.PE != nil {
		v := *c.PE
		cp.PE = &v
	}
	if c.EPS != nil {
		v := *c.EPS
		cp.EPS = &v
	}
	return &cp
}
