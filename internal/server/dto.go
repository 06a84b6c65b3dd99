package server

import (
	"upkeep/internal/domain"
	"upkeep/internal/engine"
)

// Request payloads

type CreateEquipmentRequest struct {
	ID                   string `json:"id,omitempty"`
	Name                 string `json:"name"`
	AssetID              string `json:"asset_id,omitempty"`
	DateOfManufacturing  string `json:"date_of_manufacturing" format:"date"`
	UsefulLifeSpanMonths int    `json:"useful_life_span_months" minimum:"1"`
}

type TierRequest struct {
	Hours        int `json:"hours" minimum:"0"`
	DurationDays int `json:"duration_days" minimum:"0"`
}

type CreatePlanRequest struct {
	ID                string                 `json:"id,omitempty"`
	EquipmentID       string                 `json:"equipment_id"`
	DailyWorkingHours int                    `json:"daily_working_hours"`
	ServiceStartDate  string                 `json:"service_start_date" format:"date"`
	ServiceEndDate    string                 `json:"service_end_date" format:"date"`
	GivenHealthIndex  int                    `json:"given_health_index,omitempty"`
	Tiers             map[string]TierRequest `json:"tiers"`
	StartOverride     string                 `json:"start_override,omitempty" format:"date"`
	EndOverride       string                 `json:"end_override,omitempty" format:"date"`
}

type CompleteEventRequest struct {
	PerformedAt string `json:"performed_at,omitempty" format:"date"`
	Incomplete  bool   `json:"incomplete,omitempty"`
}

type OpenEmergencyRequest struct {
	EquipmentID string `json:"equipment_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start,omitempty" format:"date"`
}

type RecalculateHealthRequest struct {
	PlanID string `json:"plan_id,omitempty"`
}

// Response payloads

type PlanResponse struct {
	Plan        domain.Plan    `json:"plan"`
	Events      []domain.Event `json:"events"`
	HealthIndex float64        `json:"health_index"`
}

type EventListResponse struct {
	Items []domain.Event `json:"items"`
}

type SummaryResponse struct {
	Items []domain.StatusSummary `json:"items"`
}

type ActivityListResponse struct {
	Items []domain.Activity `json:"items"`
}

type CompletionResponse struct {
	Event       domain.Event `json:"event"`
	Penalty     float64      `json:"penalty"`
	HealthIndex *float64     `json:"health_index,omitempty"`
}

type HealthIndexResponse struct {
	EquipmentID string  `json:"equipment_id"`
	HealthIndex float64 `json:"health_index"`
}

type SweepResponse struct {
	Moved []string `json:"moved"`
}

func planOptions(req CreatePlanRequest) engine.PlanCreateOptions {
	tiers := make(map[domain.Level]domain.Tier, len(req.Tiers))
	for level, t := range req.Tiers {
		tiers[domain.Level(level)] = domain.Tier{Hours: t.Hours, DurationDays: t.DurationDays}
	}
	return engine.PlanCreateOptions{
		ID:                req.ID,
		EquipmentID:       req.EquipmentID,
		DailyWorkingHours: req.DailyWorkingHours,
		ServiceStartDate:  req.ServiceStartDate,
		ServiceEndDate:    req.ServiceEndDate,
		GivenHealthIndex:  req.GivenHealthIndex,
		Tiers:             tiers,
		StartOverride:     req.StartOverride,
		EndOverride:       req.EndOverride,
	}
}

func planResponse(res engine.PlanResult) PlanResponse {
	return PlanResponse{Plan: res.Plan, Events: nonNilSlice(res.Events), HealthIndex: res.HealthIndex}
}

func completionResponse(res engine.CompletionResult) CompletionResponse {
	return CompletionResponse{Event: res.Event, Penalty: res.Penalty, HealthIndex: res.HealthIndex}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
