package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smart-factory-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Machines
	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id int64) (model.Machine, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	UpdateMachine(ctx context.Context, id int64, patch MachinePatch) (model.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error

	// Work orders
	ListWorkOrders(ctx context.Context) ([]model.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, wo *model.WorkOrder) error

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	// Production events
	CreateEvent(ctx context.Context, in EventInput) (model.ProductionEvent, error)
	GetEvent(ctx context.Context, id int64) (model.ProductionEvent, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.ProductionEvent, error)
	AppendEvents(ctx context.Context, events []model.ProductionEvent) error
	CountEventsSince(ctx context.Context, since time.Time) (int64, error)

	// Aggregation
	MachineKPIs(ctx context.Context, machineID *int64, minutes int) (KPIResult, error)
	RecentActivity(ctx context.Context, machineID *int64, limit, minutes int) ([]ActivityItem, error)
	Dashboard(ctx context.Context, limitRecent, minutes int) (DashboardSummary, error)

	// Simulator support
	ListMachinesByStatus(ctx context.Context, statuses ...string) ([]model.Machine, error)
	EnsureFallbackWorkOrder(ctx context.Context) (model.WorkOrder, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for callers that need raw access
// (subscription handlers, seeding).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Machines ---

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("id").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Machine{}, fmt.Errorf("machine %d: %w", id, ErrNotFound)
		}
		return model.Machine{}, err
	}
	return m, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if m.Name == "" || m.Code == "" {
		return fmt.Errorf("machine name and code are required: %w", ErrValidation)
	}
	if m.Status == "" {
		m.Status = model.StatusSetup
	}
	if !model.ValidStatus(m.Status) {
		return fmt.Errorf("invalid machine status %q: %w", m.Status, ErrValidation)
	}
	if m.TargetRatePerHour < 0 {
		return fmt.Errorf("target rate must be >= 0: %w", ErrValidation)
	}

	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("machine code %q: %w", m.Code, ErrConflict)
	}
	return err
}

func (s *gormStore) UpdateMachine(ctx context.Context, id int64, patch MachinePatch) (model.Machine, error) {
	m, err := s.GetMachine(ctx, id)
	if err != nil {
		return model.Machine{}, err
	}

	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Code != nil {
		m.Code = *patch.Code
	}
	if patch.Status != nil {
		if !model.ValidStatus(*patch.Status) {
			return model.Machine{}, fmt.Errorf("invalid machine status %q: %w", *patch.Status, ErrValidation)
		}
		m.Status = *patch.Status
	}
	if patch.TargetRatePerHour != nil {
		if *patch.TargetRatePerHour < 0 {
			return model.Machine{}, fmt.Errorf("target rate must be >= 0: %w", ErrValidation)
		}
		m.TargetRatePerHour = *patch.TargetRatePerHour
	}

	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Machine{}, fmt.Errorf("machine code %q: %w", m.Code, ErrConflict)
		}
		return model.Machine{}, err
	}
	return m, nil
}

func (s *gormStore) DeleteMachine(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Machine{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	return nil
}

// --- Work orders ---

func (s *gormStore) ListWorkOrders(ctx context.Context) ([]model.WorkOrder, error) {
	var orders []model.WorkOrder
	if err := s.db.WithContext(ctx).Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *gormStore) CreateWorkOrder(ctx context.Context, wo *model.WorkOrder) error {
	if wo.Number == "" {
		return fmt.Errorf("work order number is required: %w", ErrValidation)
	}
	if wo.TargetQty < 0 {
		return fmt.Errorf("target quantity must be >= 0: %w", ErrValidation)
	}

	err := s.db.WithContext(ctx).Create(wo).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("work order number %q: %w", wo.Number, ErrConflict)
	}
	return err
}

// EnsureFallbackWorkOrder returns the lowest-id work order, creating a
// catch-all one when the table is empty. Used by the simulator so every
// synthetic event can reference an order.
func (s *gormStore) EnsureFallbackWorkOrder(ctx context.Context) (model.WorkOrder, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Order("id ASC").First(&wo).Error
	if err == nil {
		return wo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.WorkOrder{}, err
	}

	wo = model.WorkOrder{Number: "OF-SIM", TargetQty: 999999}
	if err := s.db.WithContext(ctx).Create(&wo).Error; err != nil {
		return model.WorkOrder{}, err
	}
	return wo, nil
}

func (s *gormStore) ListMachinesByStatus(ctx context.Context, statuses ...string) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Where("status IN ?", statuses).Order("id").Find(&machines).Error; err != nil {
		return nil, err
	}
	return machines, nil
}
