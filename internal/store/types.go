package store

import "time"

// Query bounds. Caller-supplied limits and windows are clamped to these
// maxima to bound query and payload cost.
const (
	MaxFeedLimit     = 500
	MaxWindowMinutes = 24 * 60
)

// KPIResult holds the quality KPI over a trailing window.
type KPIResult struct {
	Good  int64   `json:"good"`
	Scrap int64   `json:"scrap"`
	TRS   float64 `json:"trs"`
}

// ActivityItem is one enriched ledger entry: the raw event fields plus the
// owning machine's display code/name and, if linked, the work order number.
type ActivityItem struct {
	ID              int64     `json:"id"`
	MachineID       int64     `json:"machine_id"`
	MachineCode     string    `json:"machine_code"`
	MachineName     string    `json:"machine_name"`
	WorkOrderID     *int64    `json:"work_order_id"`
	WorkOrderNumber *string   `json:"work_order_number"`
	EventType       string    `json:"event_type"`
	Qty             int       `json:"qty"`
	Notes           *string   `json:"notes"`
	HappenedAt      time.Time `json:"happened_at"`
}

// EventInput is a proposed production event before validation.
type EventInput struct {
	MachineID   int64      `json:"machine_id"`
	WorkOrderID *int64     `json:"work_order_id"`
	EventType   string     `json:"event_type"`
	Qty         int        `json:"qty"`
	Notes       *string    `json:"notes"`
	HappenedAt  *time.Time `json:"happened_at"`
}

// EventFilter narrows an event listing.
type EventFilter struct {
	MachineID *int64
	EventType string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// MachinePatch is a partial machine update; nil fields are left untouched.
type MachinePatch struct {
	Name              *string `json:"name"`
	Code              *string `json:"code"`
	Status            *string `json:"status"`
	TargetRatePerHour *int    `json:"target_rate_per_hour"`
}

// DashboardKPIs are the machine tallies plus the global quality KPI shown on
// the single-screen dashboard view.
type DashboardKPIs struct {
	TotalMachines int64   `json:"total_machines"`
	Running       int64   `json:"running"`
	Stopped       int64   `json:"stopped"`
	TRSAvg        float64 `json:"trs_avg"`
}

// DashboardSummary combines tallies, the KPI and recent activity in one
// response to avoid a second round trip for the dashboard.
type DashboardSummary struct {
	KPIs   DashboardKPIs  `json:"kpis"`
	Recent []ActivityItem `json:"recent"`
}

// clampWindow bounds a caller-supplied trailing window in minutes.
func clampWindow(minutes int) int {
	if minutes < 1 {
		return 1
	}
	if minutes > MaxWindowMinutes {
		return MaxWindowMinutes
	}
	return minutes
}

// clampLimit bounds a caller-supplied result limit.
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}
