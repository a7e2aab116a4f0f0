package recorder

import (
	"time"

	"ExchangeSim/internal/model"

	"github.com/google/uuid"
)

// Run describes one invocation that produced data.
type Run struct {
	ID        string
	Command   string
	Seed      uint64
	StartedAt time.Time
}

// NewRunID returns a random identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Recorder persists generated data for later analysis or resumption.
type Recorder interface {
	StartRun(run Run) error
	RecordBars(runID string, bars []model.DailyBar) error
	RecordCompanies(runID string, companies map[string]*model.CompanyProfile) error
	RecordEvents(runID string, events []model.MarketEvent) error
	RecordSession(runID string, status model.MarketStatus) error
	LoadBars(runID string) ([]model.DailyBar, error)
	LatestRun() (string, error)
	Close() error
}
