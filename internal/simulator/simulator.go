package simulator

import (
	"context"
	"fmt"
	"log"
	"time"

	"math/rand"

	"smart-factory-backend/config"
	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/store"
)

// Clock abstracts time.Now so tests can pin the simulated timeline.
type Clock func() time.Time

// Service generates synthetic production events for demo deployments:
// a one-shot historical backfill at startup, then a small burst of events on
// every tick. The RNG is owned and seeded from config, so runs are
// reproducible and tests don't touch global state.
type Service struct {
	cfg   config.SimulatorConfig
	store store.Store
	rng   *rand.Rand
	now   Clock
}

// NewService creates and initializes a new simulator service.
func NewService(cfg config.SimulatorConfig, s store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: s,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now Clock) *Service {
	s.now = now
	return s
}

// Run starts the simulation loop. Per-tick failures are logged and retried on
// the next tick; the loop only stops when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Simulator is disabled. Not starting.")
		return
	}
	log.Println("Starting simulator service...")

	if s.cfg.Backfill {
		if err := s.Backfill(ctx); err != nil {
			log.Printf("Simulator backfill failed: %v", err)
		}
	}

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Simulator service shutting down.")
			return
		case <-timer.C:
			tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := s.Tick(tickCtx); err != nil {
				log.Printf("Simulator tick failed: %v", err)
			}
			cancel()
			timer.Reset(s.cfg.Interval)
		}
	}
}

// Backfill seeds history when the last hour has no activity: 30 days of
// events at 3-hour steps, then a denser last 24 hours at 5-10 minute steps.
// Skipped entirely when recent events exist, so restarts don't duplicate.
func (s *Service) Backfill(ctx context.Context) error {
	now := s.now()

	recent, err := s.store.CountEventsSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("counting recent events: %w", err)
	}
	if recent > 0 {
		log.Printf("Backfill skipped: %d event(s) in the last hour", recent)
		return nil
	}

	machines, err := s.store.ListMachinesByStatus(ctx, model.StatusRunning, model.StatusSetup)
	if err != nil {
		return fmt.Errorf("listing machines: %w", err)
	}
	if len(machines) == 0 {
		log.Println("Backfill skipped: no running/setup machines")
		return nil
	}

	wo, err := s.store.EnsureFallbackWorkOrder(ctx)
	if err != nil {
		return fmt.Errorf("ensuring work order: %w", err)
	}

	var events []model.ProductionEvent

	// 30 days of sparse history, stopping a day short: the last 24 hours get
	// denser coverage below.
	for t := now.Add(-30 * 24 * time.Hour); t.Before(now.Add(-24 * time.Hour)); t = t.Add(3 * time.Hour) {
		for _, m := range machines {
			events = append(events, s.makeEvent(m.ID, wo.ID, t))
		}
	}

	for t := now.Add(-24 * time.Hour); t.Before(now); t = t.Add(time.Duration(5+s.rng.Intn(6)) * time.Minute) {
		for _, m := range machines {
			events = append(events, s.makeEvent(m.ID, wo.ID, t))
		}
	}

	if err := s.store.AppendEvents(ctx, events); err != nil {
		return fmt.Errorf("appending backfill events: %w", err)
	}
	log.Printf("Backfill complete: +%d events across %d machines", len(events), len(machines))
	return nil
}

// Tick inserts a small burst of events at the current instant on randomly
// chosen running/setup machines.
func (s *Service) Tick(ctx context.Context) error {
	machines, err := s.store.ListMachinesByStatus(ctx, model.StatusRunning, model.StatusSetup)
	if err != nil {
		return fmt.Errorf("listing machines: %w", err)
	}
	if len(machines) == 0 {
		return nil
	}

	wo, err := s.store.EnsureFallbackWorkOrder(ctx)
	if err != nil {
		return fmt.Errorf("ensuring work order: %w", err)
	}

	n := s.cfg.MinPerTick
	if s.cfg.MaxPerTick > s.cfg.MinPerTick {
		n += s.rng.Intn(s.cfg.MaxPerTick - s.cfg.MinPerTick + 1)
	}
	if n > len(machines) {
		n = len(machines)
	}

	now := s.now()
	events := make([]model.ProductionEvent, 0, n)
	for _, idx := range s.rng.Perm(len(machines))[:n] {
		events = append(events, s.makeEvent(machines[idx].ID, wo.ID, now))
	}

	if err := s.store.AppendEvents(ctx, events); err != nil {
		return fmt.Errorf("appending events: %w", err)
	}
	return nil
}

var (
	scrapNotes = []string{"long chip", "worn tool", "out of tolerance", "burr"}
	stopNotes  = []string{"tool change", "maintenance", "break", "material feed"}
)

// makeEvent draws one event from the demo distribution:
// good 75% (qty 1-5), scrap 15% (qty 1-3 + defect note), stop 10% (note only).
func (s *Service) makeEvent(machineID, workOrderID int64, at time.Time) model.ProductionEvent {
	ev := model.ProductionEvent{
		MachineID:   machineID,
		WorkOrderID: &workOrderID,
		HappenedAt:  at.UTC(),
	}

	switch roll := s.rng.Float64(); {
	case roll < 0.75:
		ev.EventType = model.EventGood
		ev.Qty = 1 + s.rng.Intn(5)
	case roll < 0.90:
		ev.EventType = model.EventScrap
		ev.Qty = 1 + s.rng.Intn(3)
		note := scrapNotes[s.rng.Intn(len(scrapNotes))]
		ev.Notes = &note
	default:
		ev.EventType = model.EventStop
		ev.Qty = 0
		note := stopNotes[s.rng.Intn(len(stopNotes))]
		ev.Notes = &note
	}
	return ev
}
