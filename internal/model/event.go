package model

import "time"

// EventScope indicates what an injected event applies to.
type EventScope string

const (
	ScopeMarket  EventScope = "MARKET"
	ScopeSector  EventScope = "SECTOR"
	ScopeCompany EventScope = "COMPANY"
)

// CompanyEvent is the most recent event recorded for a company.
type CompanyEvent struct {
	Label  string  `json:"event"`
	Impact float64 `json:"impact"`
	Day    int     `json:"day"`
}

// MarketEvent is a journal entry for any injected event.
type MarketEvent struct {
	ID     string     `json:"id"`
	Scope  EventScope `json:"scope"`
	Target string     `json:"target,omitempty"` // sector name or symbol; empty for market-wide
	Label  string     `json:"label"`
	Impact float64    `json:"impact"`
	Day    int        `json:"day"`
	Date   time.Time  `json:"date"`
}
