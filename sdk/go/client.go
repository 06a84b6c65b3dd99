package upkeepsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Upkeep HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Equipment represents the API equipment model.
type Equipment struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	AssetID              string   `json:"asset_id"`
	DateOfManufacturing  string   `json:"date_of_manufacturing"`
	UsefulLifeSpanMonths int      `json:"useful_life_span_months"`
	HealthIndex          *float64 `json:"health_index,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

// Tier is the service parameters of one plan level.
type Tier struct {
	Hours        int `json:"hours"`
	DurationDays int `json:"duration_days"`
}

// Plan represents a maintenance plan.
type Plan struct {
	ID                string          `json:"id"`
	EquipmentID       string          `json:"equipment_id"`
	DailyWorkingHours int             `json:"daily_working_hours"`
	ServiceStartDate  string          `json:"service_start_date"`
	ServiceEndDate    string          `json:"service_end_date"`
	GivenHealthIndex  int             `json:"given_health_index"`
	Tiers             map[string]Tier `json:"tiers"`
	CreatedAt         string          `json:"created_at"`
}

// Event represents a scheduled or emergency maintenance event.
type Event struct {
	ID          string  `json:"id"`
	PlanID      string  `json:"plan_id"`
	EquipmentID string  `json:"equipment_id"`
	Level       string  `json:"level"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	ScheduledAt string  `json:"scheduled_at"`
	PerformedAt *string `json:"performed_at,omitempty"`
	Color       string  `json:"color,omitempty"`
}

// PlanRequest creates a plan.
type PlanRequest struct {
	ID                string          `json:"id,omitempty"`
	EquipmentID       string          `json:"equipment_id"`
	DailyWorkingHours int             `json:"daily_working_hours"`
	ServiceStartDate  string          `json:"service_start_date"`
	ServiceEndDate    string          `json:"service_end_date"`
	GivenHealthIndex  int             `json:"given_health_index,omitempty"`
	Tiers             map[string]Tier `json:"tiers"`
}

// PlanResult is a created plan with its schedule.
type PlanResult struct {
	Plan        Plan    `json:"plan"`
	Events      []Event `json:"events"`
	HealthIndex float64 `json:"health_index"`
}

// Completion is the outcome of recording a performed service.
type Completion struct {
	Event       Event    `json:"event"`
	Penalty     float64  `json:"penalty"`
	HealthIndex *float64 `json:"health_index,omitempty"`
}

// Nearest holds the events around today.
type Nearest struct {
	Previous *Event `json:"previous,omitempty"`
	Next     *Event `json:"next,omitempty"`
}

// StatusSummary counts events per status.
type StatusSummary struct {
	Status         string `json:"status"`
	Events         int    `json:"events"`
	EquipmentCount int    `json:"equipment_count"`
}

// EventQuery filters ListEvents. Zero fields are omitted.
type EventQuery struct {
	EquipmentID string
	PlanID      string
	Status      string
	Level       string
	From        string
	To          string
	Limit       int
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RegisterEquipment creates equipment.
func (c *Client) RegisterEquipment(ctx context.Context, eq Equipment) (Equipment, error) {
	body := map[string]any{
		"name":                    eq.Name,
		"date_of_manufacturing":   eq.DateOfManufacturing,
		"useful_life_span_months": eq.UsefulLifeSpanMonths,
	}
	if eq.ID != "" {
		body["id"] = eq.ID
	}
	if eq.AssetID != "" {
		body["asset_id"] = eq.AssetID
	}
	var resp Equipment
	err := c.do(ctx, http.MethodPost, "equipment", body, &resp)
	return resp, err
}

// GetEquipment fetches equipment by id.
func (c *Client) GetEquipment(ctx context.Context, id string) (Equipment, error) {
	var resp Equipment
	err := c.do(ctx, http.MethodGet, "equipment/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// NearestEvents returns the previous and next maintenance of equipment.
func (c *Client) NearestEvents(ctx context.Context, equipmentID string) (Nearest, error) {
	var resp Nearest
	err := c.do(ctx, http.MethodGet, "equipment/"+url.PathEscape(equipmentID)+"/nearest-events", nil, &resp)
	return resp, err
}

// CreatePlan creates a plan and returns its generated schedule.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	var resp PlanResult
	err := c.do(ctx, http.MethodPost, "plans", req, &resp)
	return resp, err
}

// GetPlan fetches a plan by id.
func (c *Client) GetPlan(ctx context.Context, id string) (Plan, error) {
	var resp Plan
	err := c.do(ctx, http.MethodGet, "plans/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListEvents returns events matching q.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	params := url.Values{}
	for key, v := range map[string]string{
		"equipment_id": q.EquipmentID,
		"plan_id":      q.PlanID,
		"status":       q.Status,
		"level":        q.Level,
		"from":         q.From,
		"to":           q.To,
	} {
		if v != "" {
			params.Set(key, v)
		}
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	endpoint := "events"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Summary returns event counts per status.
func (c *Client) Summary(ctx context.Context) ([]StatusSummary, error) {
	var resp struct {
		Items []StatusSummary `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "events/summary", nil, &resp)
	return resp.Items, err
}

// CompleteEvent records the date a service was performed.
func (c *Client) CompleteEvent(ctx context.Context, eventID, performedAt string) (Completion, error) {
	return c.complete(ctx, eventID, map[string]any{"performed_at": performedAt})
}

// MarkIncomplete forces an event to incomplete.
func (c *Client) MarkIncomplete(ctx context.Context, eventID string) (Completion, error) {
	return c.complete(ctx, eventID, map[string]any{"incomplete": true})
}

func (c *Client) complete(ctx context.Context, eventID string, body map[string]any) (Completion, error) {
	var resp Completion
	err := c.do(ctx, http.MethodPost, "events/"+url.PathEscape(eventID)+"/complete", body, &resp)
	return resp, err
}

// OpenEmergency opens an emergency event for equipment.
func (c *Client) OpenEmergency(ctx context.Context, equipmentID, title string) (Event, error) {
	body := map[string]any{"equipment_id": equipmentID}
	if title != "" {
		body["title"] = title
	}
	var resp Event
	err := c.do(ctx, http.MethodPost, "emergencies", body, &resp)
	return resp, err
}

// Sweep runs the incomplete sweep and returns the moved event ids.
func (c *Client) Sweep(ctx context.Context) ([]string, error) {
	var resp struct {
		Moved []string `json:"moved"`
	}
	err := c.do(ctx, http.MethodPost, "jobs/sweep", nil, &resp)
	return resp.Moved, err
}

// CloseEmergencies moves open emergency events to end today.
func (c *Client) CloseEmergencies(ctx context.Context) ([]Event, error) {
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodPost, "jobs/close-emergencies", nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := c.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(basePath, "/")
}
