package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"smart-factory-backend/internal/model"
)

// CreateEvent validates and appends one production event. Validation happens
// inside the insert transaction so rejected events never leave partial writes.
// Normalization: stop events carry qty 0 regardless of the submitted value,
// and a missing timestamp defaults to the current UTC time.
func (s *gormStore) CreateEvent(ctx context.Context, in EventInput) (model.ProductionEvent, error) {
	if !model.ValidEventType(in.EventType) {
		return model.ProductionEvent{}, fmt.Errorf("invalid event type %q: %w", in.EventType, ErrValidation)
	}
	if in.Qty < 0 {
		return model.ProductionEvent{}, fmt.Errorf("quantity must be >= 0: %w", ErrValidation)
	}

	ev := model.ProductionEvent{
		MachineID:   in.MachineID,
		WorkOrderID: in.WorkOrderID,
		EventType:   in.EventType,
		Qty:         in.Qty,
		Notes:       in.Notes,
	}
	if in.EventType == model.EventStop {
		ev.Qty = 0
	}
	if in.HappenedAt != nil {
		ev.HappenedAt = in.HappenedAt.UTC()
	} else {
		ev.HappenedAt = time.Now().UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Machine{}).Where("id = ?", in.MachineID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("machine %d: %w", in.MachineID, ErrNotFound)
		}

		if in.WorkOrderID != nil {
			if err := tx.Model(&model.WorkOrder{}).Where("id = ?", *in.WorkOrderID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("work order %d: %w", *in.WorkOrderID, ErrNotFound)
			}
		}

		return tx.Create(&ev).Error
	})
	if err != nil {
		return model.ProductionEvent{}, err
	}
	return ev, nil
}

func (s *gormStore) GetEvent(ctx context.Context, id int64) (model.ProductionEvent, error) {
	var ev model.ProductionEvent
	if err := s.db.WithContext(ctx).First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ProductionEvent{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return model.ProductionEvent{}, err
	}
	return ev, nil
}

func (s *gormStore) ListEvents(ctx context.Context, f EventFilter) ([]model.ProductionEvent, error) {
	if f.EventType != "" && !model.ValidEventType(f.EventType) {
		return nil, fmt.Errorf("invalid event type %q: %w", f.EventType, ErrValidation)
	}

	q := s.db.WithContext(ctx).Model(&model.ProductionEvent{}).
		Order("happened_at DESC, id DESC").
		Limit(clampLimit(f.Limit))
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.MachineID != nil {
		q = q.Where("machine_id = ?", *f.MachineID)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.Since != nil {
		q = q.Where("happened_at >= ?", f.Since.UTC())
	}
	if f.Until != nil {
		q = q.Where("happened_at <= ?", f.Until.UTC())
	}

	var events []model.ProductionEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// AppendEvents batch-inserts pre-built events. Used by the simulator backfill;
// callers are responsible for referencing existing machines and work orders.
func (s *gormStore) AppendEvents(ctx context.Context, events []model.ProductionEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(events, 200).Error
}

func (s *gormStore) CountEventsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.ProductionEvent{}).
		Where("happened_at >= ?", since.UTC()).
		Count(&n).Error
	return n, err
}

// --- Aggregation ---

type kpiSums struct {
	GoodSum  int64
	ScrapSum int64
}

// MachineKPIs computes the quality KPI over the trailing window. The sums are
// pushed to the store as a single grouped query; the event set grows without
// bound and only the window matters, so events are never loaded in-process.
// A nil machineID computes the global KPI.
func (s *gormStore) MachineKPIs(ctx context.Context, machineID *int64, minutes int) (KPIResult, error) {
	if machineID != nil {
		if _, err := s.GetMachine(ctx, *machineID); err != nil {
			return KPIResult{}, err
		}
	}

	since := time.Now().UTC().Add(-time.Duration(clampWindow(minutes)) * time.Minute)

	q := s.db.WithContext(ctx).Model(&model.ProductionEvent{}).
		Select("COALESCE(SUM(CASE WHEN event_type = ? THEN qty ELSE 0 END), 0) AS good_sum, "+
			"COALESCE(SUM(CASE WHEN event_type = ? THEN qty ELSE 0 END), 0) AS scrap_sum",
			model.EventGood, model.EventScrap).
		Where("happened_at >= ?", since)
	if machineID != nil {
		q = q.Where("machine_id = ?", *machineID)
	}

	var sums kpiSums
	if err := q.Scan(&sums).Error; err != nil {
		return KPIResult{}, err
	}
	return KPIResult{
		Good:  sums.GoodSum,
		Scrap: sums.ScrapSum,
		TRS:   qualityRatio(sums.GoodSum, sums.ScrapSum),
	}, nil
}

// qualityRatio is good/(good+scrap)*100 rounded to one decimal place, and
// exactly 0.0 when there is nothing to divide. The zero default is a policy
// choice, not an approximation.
func qualityRatio(good, scrap int64) float64 {
	total := good + scrap
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(good)/float64(total)*1000) / 10
}

// RecentActivity returns enriched events, most recent first with id as the
// tiebreaker so same-second pagination stays reproducible. minutes == 0 means
// windowless: just the latest events across all history. A non-nil machineID
// scopes the feed and turns an unknown machine into ErrNotFound.
func (s *gormStore) RecentActivity(ctx context.Context, machineID *int64, limit, minutes int) ([]ActivityItem, error) {
	if machineID != nil {
		if _, err := s.GetMachine(ctx, *machineID); err != nil {
			return nil, err
		}
	}

	q := s.db.WithContext(ctx).Table("production_events").
		Select("production_events.id, production_events.machine_id, machines.code AS machine_code, "+
			"machines.name AS machine_name, production_events.work_order_id, "+
			"work_orders.number AS work_order_number, production_events.event_type, "+
			"production_events.qty, production_events.notes, production_events.happened_at").
		Joins("JOIN machines ON machines.id = production_events.machine_id").
		Joins("LEFT JOIN work_orders ON work_orders.id = production_events.work_order_id").
		Order("production_events.happened_at DESC, production_events.id DESC").
		Limit(clampLimit(limit))
	if minutes > 0 {
		since := time.Now().UTC().Add(-time.Duration(clampWindow(minutes)) * time.Minute)
		q = q.Where("production_events.happened_at >= ?", since)
	}
	if machineID != nil {
		q = q.Where("production_events.machine_id = ?", *machineID)
	}

	items := make([]ActivityItem, 0)
	if err := q.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Dashboard bundles machine tallies, the global quality KPI and the latest
// activity into one snapshot for the single-screen dashboard view.
func (s *gormStore) Dashboard(ctx context.Context, limitRecent, minutes int) (DashboardSummary, error) {
	var kpis DashboardKPIs

	machineCounts := []struct {
		Status string
		N      int64
	}{}
	if err := s.db.WithContext(ctx).Model(&model.Machine{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&machineCounts).Error; err != nil {
		return DashboardSummary{}, err
	}
	for _, c := range machineCounts {
		kpis.TotalMachines += c.N
		switch c.Status {
		case model.StatusRunning:
			kpis.Running = c.N
		case model.StatusStopped:
			kpis.Stopped = c.N
		}
	}

	kpi, err := s.MachineKPIs(ctx, nil, minutes)
	if err != nil {
		return DashboardSummary{}, err
	}
	kpis.TRSAvg = kpi.TRS

	recent, err := s.RecentActivity(ctx, nil, limitRecent, minutes)
	if err != nil {
		return DashboardSummary{}, err
	}

	return DashboardSummary{KPIs: kpis, Recent: recent}, nil
}
