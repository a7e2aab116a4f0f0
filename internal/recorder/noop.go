package recorder

import "ExchangeSim/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ Run) error                               { return nil }
func (n *NoopRecorder) RecordBars(_ string, _ []model.DailyBar) error      { return nil }
func (n *NoopRecorder) RecordEvents(_ string, _ []model.MarketEvent) error { return nil }
func (n *NoopRecorder) RecordSession(_ string, _ model.MarketStatus) error { return nil }
func (n *NoopRecorder) LoadBars(_ string) ([]model.DailyBar, error)        { return nil, nil }
func (n *NoopRecorder) LatestRun() (string, error)                         { return "", nil }
func (n *NoopRecorder) Close() error                                       { return nil }

func (n *NoopRecorder) RecordCompanies(_ string, _ map[string]*model.CompanyProfile) error {
	return nil
}
