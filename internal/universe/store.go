// Package universe reads and writes the company universe file.
package universe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"ExchangeSim/internal/model"
)

// ErrInvalidCompany is returned when a company record fails validation.
var ErrInvalidCompany = errors.New("universe: invalid company")

// Load reads a companies file keyed by symbol and validates every record.
func Load(filePath string) (map[string]*model.CompanyProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read companies: %w", err)
	}
	companies, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filePath, err)
	}
	log.Printf("[INFO] loaded information for %d companies from %s", len(companies), filePath)
	return companies, nil
}

// Decode parses and validates a companies document.
func Decode(data []byte) (map[string]*model.CompanyProfile, error) {
	var raw map[string]*model.CompanyProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse companies: %w", err)
	}
	companies := make(map[string]*model.CompanyProfile, len(raw))
	for _, sym := range sortedKeys(raw) {
		c := raw[sym]
		if c == nil {
			c = &model.CompanyProfile{}
		}
		c.Symbol = sym
		if err := Validate(c); err != nil {
			return nil, err
		}
		if c.CircuitStatus == "" {
			c.CircuitStatus = model.CircuitNone
		}
		companies[sym] = c
	}
	return companies, nil
}

// Validate checks the fields the simulator relies on.
func Validate(c *model.CompanyProfile) error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidCompany)
	}
	if p := c.Price; p != nil {
		fields := []struct {
			name string
			v    float64
		}{{"open", p.Open}, {"high", p.High}, {"low", p.Low}, {"close", p.Close}}
		for _, f := range fields {
			if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return fmt.Errorf("%w: %s price.%s is %v", ErrInvalidCompany, c.Symbol, f.name, f.v)
			}
		}
	}
	if c.Volume != nil && *c.Volume < 0 {
		return fmt.Errorf("%w: %s volume is negative", ErrInvalidCompany, c.Symbol)
	}
	if c.BaseVolume != nil && *c.BaseVolume < 0 {
		return fmt.Errorf("%w: %s base_volume is negative", ErrInvalidCompany, c.Symbol)
	}
	switch c.CircuitStatus {
	case "", model.CircuitNone, model.CircuitUpper, model.CircuitLower:
	default:
		return fmt.Errorf("%w: %s circuit_status %q", ErrInvalidCompany, c.Symbol, c.CircuitStatus)
	}
	return nil
}

// Save writes the companies as indented JSON, replacing filePath atomically.
func Save(filePath string, companies map[string]*model.CompanyProfile) error {
	if len(companies) == 0 {
		return errors.New("no company information to save")
	}
	data, err := json.MarshalIndent(companies, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Printf("[INFO] company information saved to %s", filePath)
	return nil
}

// Sectors returns the distinct non-empty sectors in sorted order.
func Sectors(companies map[string]*model.CompanyProfile) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range companies {
		if c == nil || c.Sector == "" || seen[c.Sector] {
			continue
		}
		seen[c.Sector] = true
		out = append(out, c.Sector)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]*model.CompanyProfile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
