package config

import (
	"fmt"
	"math"
	"os"

	"ExchangeSim/internal/simulator"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. EXSIM_SIMULATION_SEED.
const EnvPrefix = "EXSIM"

// SimulationConfig holds the engine parameters.
type SimulationConfig struct {
	Seed                    *uint64            `yaml:"seed" envconfig:"SEED"`
	MarketEventProbability  *float64           `yaml:"market_event_probability" envconfig:"MARKET_EVENT_PROBABILITY"`
	SectorEventProbability  *float64           `yaml:"sector_event_probability" envconfig:"SECTOR_EVENT_PROBABILITY"`
	CompanyEventProbability *float64           `yaml:"company_event_probability" envconfig:"COMPANY_EVENT_PROBABILITY"`
	ImpactLevels            map[string]float64 `yaml:"impact_levels" envconfig:"IMPACT_LEVELS"`
	CircuitUpper            float64            `yaml:"circuit_upper" envconfig:"CIRCUIT_UPPER"`
	CircuitLower            float64            `yaml:"circuit_lower" envconfig:"CIRCUIT_LOWER"`
	BaseVolatility          float64            `yaml:"base_volatility" envconfig:"VOLATILITY"`
	SessionMinutes          int                `yaml:"session_minutes" envconfig:"SESSION_MINUTES"`
	DefaultVolume           float64            `yaml:"default_volume" envconfig:"DEFAULT_VOLUME"`
	IntradayDefaultVolume   float64            `yaml:"intraday_default_volume" envconfig:"INTRADAY_DEFAULT_VOLUME"`
	Verbose                 bool               `yaml:"verbose" envconfig:"VERBOSE"`
}

// DataConfig holds file locations.
type DataConfig struct {
	CompaniesFile string `yaml:"companies_file" envconfig:"COMPANIES_FILE"`
	HistoricalCSV string `yaml:"historical_csv" envconfig:"HISTORICAL_CSV"`
	ParquetPath   string `yaml:"parquet_path" envconfig:"PARQUET_PATH"`
	SQLitePath    string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	// DisableRecorder skips the SQLite recorder entirely.
	DisableRecorder bool `yaml:"disable_recorder" envconfig:"DISABLE_RECORDER"`
}

// RealtimeConfig drives the scheduled intraday session.
type RealtimeConfig struct {
	TickCron         string  `yaml:"tick_cron" envconfig:"TICK_CRON"`
	MinutesPerTick   int     `yaml:"minutes_per_tick" envconfig:"MINUTES_PER_TICK"`
	VolatilityFactor float64 `yaml:"volatility_factor" envconfig:"VOLATILITY_FACTOR"`
}

// Config holds all application configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Data       DataConfig       `yaml:"data"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
}

// Load reads config from a YAML file, then .env files, then applies
// environment variable overrides and defaults. A missing YAML file is not an
// error. Without envFiles, ./.env is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load(envFiles...)

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := simulator.DefaultConfig()
	s := &c.Simulation

	if s.Seed == nil {
		seed := uint64(42)
		s.Seed = &seed
	}
	if s.MarketEventProbability == nil {
		s.MarketEventProbability = &def.MarketEventProbability
	}
	if s.SectorEventProbability == nil {
		s.SectorEventProbability = &def.SectorEventProbability
	}
	if s.CompanyEventProbability == nil {
		s.CompanyEventProbability = &def.CompanyEventProbability
	}
	if len(s.ImpactLevels) == 0 {
		s.ImpactLevels = def.ImpactLevels
	}
	if s.CircuitUpper == 0 {
		s.CircuitUpper = def.CircuitUpper
	}
	if s.CircuitLower == 0 {
		s.CircuitLower = def.CircuitLower
	}
	if s.BaseVolatility == 0 {
		s.BaseVolatility = def.BaseVolatility
	}
	if s.SessionMinutes == 0 {
		s.SessionMinutes = def.SessionMinutes
	}
	if s.DefaultVolume == 0 {
		s.DefaultVolume = def.DefaultVolume
	}
	if s.IntradayDefaultVolume == 0 {
		s.IntradayDefaultVolume = def.IntradayDefaultVolume
	}

	if c.Data.CompaniesFile == "" {
		c.Data.CompaniesFile = "data/companies.json"
	}
	if c.Data.HistoricalCSV == "" {
		c.Data.HistoricalCSV = "data/historical/stock_data.csv"
	}
	if c.Data.SQLitePath == "" {
		c.Data.SQLitePath = "data/exchangesim.db"
	}

	if c.Realtime.TickCron == "" {
		c.Realtime.TickCron = "@every 5s"
	}
	if c.Realtime.MinutesPerTick == 0 {
		c.Realtime.MinutesPerTick = 1
	}
	if c.Realtime.VolatilityFactor == 0 {
		c.Realtime.VolatilityFactor = 1.0
	}
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	s := c.Simulation
	probs := []struct {
		name string
		p    *float64
	}{
		{"simulation.market_event_probability", s.MarketEventProbability},
		{"simulation.sector_event_probability", s.SectorEventProbability},
		{"simulation.company_event_probability", s.CompanyEventProbability},
	}
	for _, pr := range probs {
		if pr.p != nil && (math.IsNaN(*pr.p) || *pr.p < 0 || *pr.p > 1) {
			return fmt.Errorf("%s must be within [0, 1]", pr.name)
		}
	}
	if len(s.ImpactLevels) == 0 {
		return fmt.Errorf("simulation.impact_levels must not be empty")
	}
	for name, v := range s.ImpactLevels {
		if v <= 0 {
			return fmt.Errorf("simulation.impact_levels.%s must be positive", name)
		}
	}
	if s.CircuitUpper <= 0 {
		return fmt.Errorf("simulation.circuit_upper must be positive")
	}
	if s.CircuitLower >= 0 || s.CircuitLower <= -1 {
		return fmt.Errorf("simulation.circuit_lower must be within (-1, 0)")
	}
	if s.BaseVolatility <= 0 {
		return fmt.Errorf("simulation.base_volatility must be positive")
	}
	if s.SessionMinutes <= 0 {
		return fmt.Errorf("simulation.session_minutes must be positive")
	}
	if s.DefaultVolume < 0 || s.IntradayDefaultVolume < 0 {
		return fmt.Errorf("simulation volumes must not be negative")
	}
	if c.Data.CompaniesFile == "" {
		return fmt.Errorf("data.companies_file is required")
	}
	if c.Realtime.MinutesPerTick <= 0 {
		return fmt.Errorf("realtime.minutes_per_tick must be positive")
	}
	if c.Realtime.VolatilityFactor <= 0 {
		return fmt.Errorf("realtime.volatility_factor must be positive")
	}
	return nil
}

// SeedValue returns the configured seed.
func (c *Config) SeedValue() uint64 {
	if c.Simulation.Seed == nil {
		return 42
	}
	return *c.Simulation.Seed
}

// SimulatorConfig converts the simulation section into engine parameters.
func (c *Config) SimulatorConfig() simulator.Config {
	s := c.Simulation
	out := simulator.DefaultConfig()
	if s.MarketEventProbability != nil {
		out.MarketEventProbability = *s.MarketEventProbability
	}
	if s.SectorEventProbability != nil {
		out.SectorEventProbability = *s.SectorEventProbability
	}
	if s.CompanyEventProbability != nil {
		out.CompanyEventProbability = *s.CompanyEventProbability
	}
	if len(s.ImpactLevels) > 0 {
		out.ImpactLevels = make(map[string]float64, len(s.ImpactLevels))
		for k, v := range s.ImpactLevels {
			out.ImpactLevels[k] = v
		}
	}
	if s.CircuitUpper != 0 {
		out.CircuitUpper = s.CircuitUpper
	}
	if s.CircuitLower != 0 {
		out.CircuitLower = s.CircuitLower
	}
	if s.BaseVolatility != 0 {
		out.BaseVolatility = s.BaseVolatility
	}
	if s.SessionMinutes != 0 {
		out.SessionMinutes = s.SessionMinutes
	}
	if s.DefaultVolume != 0 {
		out.DefaultVolume = s.DefaultVolume
	}
	if s.IntradayDefaultVolume != 0 {
		out.IntradayDefaultVolume = s.IntradayDefaultVolume
	}
	out.Verbose = s.Verbose
	return out
}
