package simulator

import "sort"

// Config holds the tunable parameters of the generator.
type Config struct {
	MarketEventProbability  float64
	SectorEventProbability  float64
	CompanyEventProbability float64
	// ImpactLevels maps a level name (low, medium, high) to an absolute impact.
	ImpactLevels map[string]float64

	CircuitUpper float64
	CircuitLower float64

	BaseVolatility float64
	SessionMinutes int

	// DefaultVolume is the daily baseline volume for companies without one.
	DefaultVolume float64
	// IntradayDefaultVolume is the per-tick baseline for companies without one.
	IntradayDefaultVolume float64

	// Verbose enables logging of company-level events.
	Verbose bool
}

// DefaultConfig returns the standard exchange parameters.
func DefaultConfig() Config {
	return Config{
		MarketEventProbability:  0.20,
		SectorEventProbability:  0.15,
		CompanyEventProbability: 0.05,
		ImpactLevels: map[string]float64{
			"low":    0.01,
			"medium": 0.03,
			"high":   0.05,
		},
		CircuitUpper:          0.10,
		CircuitLower:          -0.10,
		BaseVolatility:        0.015,
		SessionMinutes:        300,
		DefaultVolume:         500000,
		IntradayDefaultVolume: 1000,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.ImpactLevels) == 0 {
		c.ImpactLevels = def.ImpactLevels
	}
	if c.CircuitUpper == 0 {
		c.CircuitUpper = def.CircuitUpper
	}
	if c.CircuitLower == 0 {
		c.CircuitLower = def.CircuitLower
	}
	if c.BaseVolatility <= 0 {
		c.BaseVolatility = def.BaseVolatility
	}
	if c.SessionMinutes <= 0 {
		c.SessionMinutes = def.SessionMinutes
	}
	if c.DefaultVolume <= 0 {
		c.DefaultVolume = def.DefaultVolume
	}
	if c.IntradayDefaultVolume <= 0 {
		c.IntradayDefaultVolume = def.IntradayDefaultVolume
	}
	return c
}

// impacts returns the impact levels in ascending order so draws are reproducible.
func (c Config) impacts() []float64 {
	out := make([]float64, 0, len(c.ImpactLevels))
	for _, v := range c.ImpactLevels {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
