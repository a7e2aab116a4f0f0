package model

import "time"

// IntradayState tracks one company during an open session.
type IntradayState struct {
	Symbol    string
	Sector    string
	PrevClose float64
	Open      float64
	High      float64
	Low       float64
	Last      float64
	Volume    int64

	// Parallel tick history, index 0 is the opening print.
	Times   []int
	Prices  []float64
	Volumes []int64
}

// Quote is the per-company snapshot returned by a tick.
type Quote struct {
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"`
}

// MarketStatus summarises the current session.
type MarketStatus struct {
	Date         time.Time `json:"date"`
	IsOpen       bool      `json:"is_open"`
	Minute       int       `json:"minute"`
	TotalMinutes int       `json:"total_minutes"`
	ElapsedPct   float64   `json:"time_elapsed_pct"`
	Advancing    int       `json:"advancing"`
	Declining    int       `json:"declining"`
	Unchanged    int       `json:"unchanged"`
	TotalVolume  int64     `json:"total_volume"`
}
