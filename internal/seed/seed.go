package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"math/rand"

	"gorm.io/gorm"

	"smart-factory-backend/internal/auth"
	"smart-factory-backend/internal/model"
)

// Run populates the database with demo data: three users (one per role),
// five machines, three work orders and a month of production history. Every
// block is idempotent, so running at each startup is safe.
func Run(ctx context.Context, db *gorm.DB) error {
	if err := seedUsers(ctx, db); err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}
	if err := seedMachines(ctx, db); err != nil {
		return fmt.Errorf("seeding machines: %w", err)
	}
	if err := seedWorkOrders(ctx, db); err != nil {
		return fmt.Errorf("seeding work orders: %w", err)
	}
	if err := seedEvents(ctx, db); err != nil {
		return fmt.Errorf("seeding events: %w", err)
	}
	log.Println("Seed complete.")
	return nil
}

func seedUsers(ctx context.Context, db *gorm.DB) error {
	users := []struct {
		email string
		role  string
	}{
		{"admin@test.fr", model.RoleAdmin},
		{"chef@test.fr", model.RoleChef},
		{"op@test.fr", model.RoleOperator},
	}

	created := 0
	for _, u := range users {
		var n int64
		if err := db.WithContext(ctx).Model(&model.User{}).Where("email = ?", u.email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		hash, err := auth.HashPassword("pass1234")
		if err != nil {
			return err
		}
		if err := db.WithContext(ctx).Create(&model.User{
			Email:        u.email,
			PasswordHash: hash,
			Role:         u.role,
		}).Error; err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		log.Printf("Seeded %d user(s)", created)
	}
	return nil
}

func seedMachines(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&model.Machine{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	machines := []model.Machine{
		{Name: "Fraiseuse Mazak", Code: "CNC-01", Status: model.StatusRunning, TargetRatePerHour: 40},
		{Name: "Tour Haas", Code: "CNC-02", Status: model.StatusRunning, TargetRatePerHour: 55},
		{Name: "5 axes DMG", Code: "CNC-03", Status: model.StatusSetup, TargetRatePerHour: 30},
		{Name: "Centre Hermle", Code: "CNC-04", Status: model.StatusStopped, TargetRatePerHour: 25},
		{Name: "Robot Fanuc", Code: "ROB-01", Status: model.StatusRunning, TargetRatePerHour: 80},
	}
	if err := db.WithContext(ctx).Create(&machines).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d machines", len(machines))
	return nil
}

func seedWorkOrders(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&model.WorkOrder{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	strptr := func(s string) *string { return &s }
	dueIn := func(days int) *time.Time {
		d := time.Now().UTC().AddDate(0, 0, days)
		return &d
	}

	orders := []model.WorkOrder{
		{Number: "OF-2025-0001", Client: strptr("ACME"), PartRef: strptr("P-12"), TargetQty: 200, DueOn: dueIn(7)},
		{Number: "OF-2025-0002", Client: strptr("Globex"), PartRef: strptr("R-77"), TargetQty: 120, DueOn: dueIn(3)},
		{Number: "OF-2025-0003", Client: strptr("Initech"), PartRef: strptr("K-03"), TargetQty: 500, DueOn: dueIn(14)},
	}
	if err := db.WithContext(ctx).Create(&orders).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d work orders", len(orders))
	return nil
}

var (
	scrapNotes = []string{"long chip", "worn tool", "out of tolerance", "burr"}
	stopNotes  = []string{"tool change", "maintenance", "break", "material feed"}
)

func seedEvents(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&model.ProductionEvent{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var machines []model.Machine
	if err := db.WithContext(ctx).Find(&machines).Error; err != nil {
		return err
	}
	var orders []model.WorkOrder
	if err := db.WithContext(ctx).Find(&orders).Error; err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	var events []model.ProductionEvent

	for day := 0; day < 30; day++ {
		for _, m := range machines {
			for i := 0; i < 3+rng.Intn(4); i++ {
				ev := model.ProductionEvent{MachineID: m.ID}

				switch roll := rng.Float64(); {
				case roll < 0.75:
					ev.EventType = model.EventGood
					ev.Qty = 1 + rng.Intn(8)
				case roll < 0.90:
					ev.EventType = model.EventScrap
					ev.Qty = 1 + rng.Intn(8)
					note := scrapNotes[rng.Intn(len(scrapNotes))]
					ev.Notes = &note
				default:
					ev.EventType = model.EventStop
					note := stopNotes[rng.Intn(len(stopNotes))]
					ev.Notes = &note
				}

				// Roughly one event in four has no work order.
				if len(orders) > 0 && rng.Intn(4) > 0 {
					wo := orders[rng.Intn(len(orders))]
					ev.WorkOrderID = &wo.ID
				}

				minutesAgo := day*24*60 + rng.Intn(24*60)
				ev.HappenedAt = now.Add(-time.Duration(minutesAgo) * time.Minute)
				events = append(events, ev)
			}
		}
	}

	if len(events) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).CreateInBatches(events, 200).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d production events", len(events))
	return nil
}
