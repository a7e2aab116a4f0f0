package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ExchangeSim/internal/model"
	"ExchangeSim/internal/recorder"
	"ExchangeSim/internal/simulator"

	"github.com/robfig/cron/v3"
)

// ErrFinished is returned by Tick once the scheduled session has closed.
var ErrFinished = errors.New("scheduler: session finished")

// Scheduler drives one intraday session from a cron schedule. Every call into
// the simulator goes through the scheduler mutex.
type Scheduler struct {
	Cron      *cron.Cron
	Generator *simulator.Generator
	Session   *simulator.Intraday
	Recorder  recorder.Recorder
	RunID     string

	MinutesPerTick   int
	VolatilityFactor float64
	// Date of the session; nil means the next trading date.
	Date *time.Time

	// OnTick and OnClose are called with the scheduler lock held.
	OnTick  func(res *simulator.TickResult, status model.MarketStatus)
	OnClose func(bars []model.DailyBar)

	mu       sync.Mutex
	finished bool
	done     chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(gen *simulator.Generator, rec recorder.Recorder, runID string, minutesPerTick int, volatilityFactor float64) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:             cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Generator:        gen,
		Session:          simulator.NewIntraday(gen),
		Recorder:         rec,
		RunID:            runID,
		MinutesPerTick:   minutesPerTick,
		VolatilityFactor: volatilityFactor,
		done:             make(chan struct{}),
	}
}

// RegisterSession registers the tick job under the given cron spec.
func (s *Scheduler) RegisterSession(tickSpec string) error {
	if _, err := s.Cron.AddFunc(tickSpec, s.tickJob); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Done is closed once the session has closed.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Status returns the current session status.
func (s *Scheduler) Status() model.MarketStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Session.Status()
}

func (s *Scheduler) tickJob() {
	if _, err := s.Tick(); err != nil && !errors.Is(err, ErrFinished) {
		log.Printf("[ERROR] intraday tick: %v", err)
	}
}

// Tick opens the session on first use, then advances it by MinutesPerTick.
func (s *Scheduler) Tick() (*simulator.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil, ErrFinished
	}
	if !s.Session.IsOpen() {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	res, err := s.Session.Tick(s.MinutesPerTick, s.VolatilityFactor)
	if err != nil {
		return nil, err
	}
	status := s.Session.Status()
	if s.OnTick != nil {
		s.OnTick(res, status)
	}
	if res.SessionClosed() {
		s.finish(res.Closed)
	}
	return res, nil
}

// RunTicks runs up to n ticks synchronously, stopping early when the session
// closes or ctx is cancelled. n <= 0 runs until the session closes.
func (s *Scheduler) RunTicks(ctx context.Context, n int) (int, error) {
	ran := 0
	for n <= 0 || ran < n {
		select {
		case <-ctx.Done():
			return ran, ctx.Err()
		default:
		}
		res, err := s.Tick()
		if err != nil {
			return ran, err
		}
		ran++
		if res.SessionClosed() {
			break
		}
	}
	return ran, nil
}

// CloseNow closes an open session immediately, e.g. on shutdown.
func (s *Scheduler) CloseNow() ([]model.DailyBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil, ErrFinished
	}
	if !s.Session.IsOpen() {
		return nil, simulator.ErrSessionClosed
	}
	bars, err := s.Session.CloseSession()
	if err != nil {
		return nil, err
	}
	s.finish(bars)
	return bars, nil
}

func (s *Scheduler) open() error {
	opens, warnings, err := s.Session.OpenSession(s.Date)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	for _, w := range warnings {
		log.Printf("[WARN] %s", w)
	}
	log.Printf("[INFO] session %s opened for %d companies",
		s.Session.Date().Format(model.DateLayout), len(opens))

	if err := s.Recorder.RecordSession(s.RunID, s.Session.Status()); err != nil {
		log.Printf("[ERROR] record session open: %v", err)
	}
	return nil
}

// finish records the closed session and releases Done. Caller holds mu.
func (s *Scheduler) finish(bars []model.DailyBar) {
	s.finished = true
	status := s.Session.Status()
	log.Printf("[INFO] session %s closed: %d up, %d down, %d unchanged",
		status.Date.Format(model.DateLayout), status.Advancing, status.Declining, status.Unchanged)

	if err := s.Recorder.RecordBars(s.RunID, bars); err != nil {
		log.Printf("[ERROR] record bars: %v", err)
	}
	if err := s.Recorder.RecordCompanies(s.RunID, s.Generator.Companies()); err != nil {
		log.Printf("[ERROR] record companies: %v", err)
	}
	if err := s.Recorder.RecordSession(s.RunID, status); err != nil {
		log.Printf("[ERROR] record session close: %v", err)
	}
	if s.OnClose != nil {
		s.OnClose(bars)
	}
	close(s.done)
}
