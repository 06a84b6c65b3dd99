package domain

// Level is a maintenance tier. A is the most frequent service, D the least
// frequent, E an out-of-band emergency.
type Level string

const (
	LevelA Level = "A"
	LevelB Level = "B"
	LevelC Level = "C"
	LevelD Level = "D"
	LevelE Level = "E"
)

// PriorityOrder lists the generated tiers from highest to lowest priority.
var PriorityOrder = []Level{LevelD, LevelC, LevelB, LevelA}

func (l Level) Valid() bool {
	switch l {
	case LevelA, LevelB, LevelC, LevelD, LevelE:
		return true
	}
	return false
}

type Status string

const (
	StatusUpcoming   Status = "upcoming"
	StatusOverdue    Status = "overdue"
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
	StatusEmergency  Status = "emergency"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOverdue, StatusComplete, StatusIncomplete, StatusEmergency:
		return true
	}
	return false
}

type Equipment struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	AssetID              string   `json:"asset_id"`
	DateOfManufacturing  string   `json:"date_of_manufacturing" format:"date"`
	UsefulLifeSpanMonths int      `json:"useful_life_span_months"`
	HealthIndex          *float64 `json:"health_index,omitempty"`
	CreatedAt            string   `json:"created_at" format:"date-time"`
}

// Tier holds the service parameters of one level of a plan.
type Tier struct {
	Hours        int `json:"hours"`
	DurationDays int `json:"duration_days"`
}

// Active reports whether the tier produces events.
func (t Tier) Active() bool {
	return t.Hours > 0 && t.DurationDays > 0
}

type Plan struct {
	ID                string        `json:"id"`
	EquipmentID       string        `json:"equipment_id"`
	DailyWorkingHours int           `json:"daily_working_hours"`
	ServiceStartDate  string        `json:"service_start_date" format:"date"`
	ServiceEndDate    string        `json:"service_end_date" format:"date"`
	GivenHealthIndex  int           `json:"given_health_index"`
	Tiers             map[Level]Tier `json:"tiers"`
	CreatedAt         string        `json:"created_at" format:"date-time"`
}

// Tier returns the parameters for level l, zero when unset.
func (p Plan) Tier(l Level) Tier {
	if p.Tiers == nil {
		return Tier{}
	}
	return p.Tiers[l]
}

// HasActiveTier reports whether at least one generated tier is active.
func (p Plan) HasActiveTier() bool {
	for _, l := range PriorityOrder {
		if p.Tier(l).Active() {
			return true
		}
	}
	return false
}

type Event struct {
	ID          string  `json:"id"`
	PlanID      string  `json:"plan_id"`
	EquipmentID string  `json:"equipment_id"`
	Level       Level   `json:"level" enum:"A,B,C,D,E"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      Status  `json:"status" enum:"upcoming,overdue,complete,incomplete,emergency"`
	Start       string  `json:"start" format:"date"`
	End         string  `json:"end" format:"date"`
	ScheduledAt string  `json:"scheduled_at" format:"date"`
	PerformedAt *string `json:"performed_at,omitempty" format:"date"`
	// Color is derived from Status and Level on read and never persisted.
	Color string `json:"color,omitempty"`
}

type Activity struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Action      string `json:"action" enum:"add,update"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EquipmentID string `json:"equipment_id,omitempty"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	Payload     string `json:"payload_json"`
}

// EventFilter narrows event listings. Zero fields match everything.
type EventFilter struct {
	EquipmentID string
	PlanID      string
	Status      Status
	Level       Level
	From        string
	To          string
	Limit       int
}

// StatusSummary counts events and distinct equipment for one status.
type StatusSummary struct {
	Status         Status `json:"status"`
	Events         int    `json:"events"`
	EquipmentCount int    `json:"equipment_count"`
}
