package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ExchangeSim/internal/model"
	"ExchangeSim/internal/recorder"
	"ExchangeSim/internal/simulator"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// memRecorder keeps everything in memory.
type memRecorder struct {
	recorder.NoopRecorder

	mu        sync.Mutex
	bars      []model.DailyBar
	companies map[string]*model.CompanyProfile
	sessions  []model.MarketStatus
}

func (m *memRecorder) RecordBars(_ string, bars []model.DailyBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *memRecorder) RecordCompanies(_ string, companies map[string]*model.CompanyProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = companies
	return nil
}

func (m *memRecorder) RecordSession(_ string, status model.MarketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, status)
	return nil
}

var wednesday = time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, minutesPerTick int) (*Scheduler, *memRecorder) {
	t.Helper()
	vol := int64(20000)
	companies := map[string]*model.CompanyProfile{
		"NABIL": {Sector: "Commercial Bank", Price: &model.PriceSnapshot{Close: 1000}, Volume: &vol},
		"NLIC":  {Sector: "Life Insurance", Price: &model.PriceSnapshot{Close: 650}},
	}
	gen := simulator.New(simulator.DefaultConfig(), companies, 11)
	rec := &memRecorder{}
	s := NewScheduler(gen, rec, "run-1", minutesPerTick, 1)
	s.Date = &wednesday
	return s, rec
}

func TestRunTicksUntilClose(t *testing.T) {
	s, rec := newTestScheduler(t, 30)

	var ticks int
	var closed []model.DailyBar
	s.OnTick = func(*simulator.TickResult, model.MarketStatus) { ticks++ }
	s.OnClose = func(bars []model.DailyBar) { closed = bars }

	ran, err := s.RunTicks(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, ran)
	assert.Equal(t, 10, ticks)
	require.Len(t, closed, 2)
	assert.Equal(t, wednesday, closed[0].Date)

	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	assert.Len(t, rec.bars, 2)
	require.Len(t, rec.sessions, 2)
	assert.True(t, rec.sessions[0].IsOpen)
	assert.False(t, rec.sessions[1].IsOpen)
	assert.Equal(t, 300, rec.sessions[1].Minute)
	require.Contains(t, rec.companies, "NABIL")
	assert.Equal(t, closed[0].Close, rec.companies["NABIL"].Price.Close)

	assert.Equal(t, 2, s.Generator.Series().Len())

	_, err = s.Tick()
	assert.ErrorIs(t, err, ErrFinished)
}

func TestRunTicksStopsAfterN(t *testing.T) {
	s, rec := newTestScheduler(t, 1)

	ran, err := s.RunTicks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, ran)
	st := s.Status()
	assert.True(t, st.IsOpen)
	assert.Equal(t, 5, st.Minute)
	assert.Empty(t, rec.bars)

	bars, err := s.CloseNow()
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Len(t, rec.bars, 2)

	_, err = s.CloseNow()
	assert.ErrorIs(t, err, ErrFinished)
}

func TestRunTicksHonoursContext(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran, err := s.RunTicks(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran)

	_, err = s.CloseNow()
	assert.ErrorIs(t, err, simulator.ErrSessionClosed)
}

func TestOpenFailureIsReported(t *testing.T) {
	s, _ := newTestScheduler(t, 1)

	// A session on a date that already has bars cannot open.
	require.NoError(t, s.Generator.Initialize(simulator.InitOptions{StartDate: &wednesday}))
	_, _, err := s.Generator.GenerateHistorical(1, 0)
	require.NoError(t, err)

	_, err = s.Tick()
	assert.ErrorIs(t, err, simulator.ErrInvalidArgument)
}

func TestCronDrivesSession(t *testing.T) {
	s, rec := newTestScheduler(t, 150)
	require.NoError(t, s.RegisterSession("* * * * * *"))
	s.Start()
	defer s.Stop()

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not close in time")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.bars, 2)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	assert.Error(t, s.RegisterSession("not a cron spec"))
}
