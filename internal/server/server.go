package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"upkeep/internal/domain"
	"upkeep/internal/engine"
	"upkeep/internal/observability"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Log      *zap.SugaredLogger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_range"`
	Message string         `json:"message" example:"invalid date range: start 2024-07-01 is after end 2024-01-01"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"event_id\":\"3f0c\"}"`
}

type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the maintenance engine.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Log
	if log == nil {
		log = observability.New("server")
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(requestLogger(log))
	hcfg := huma.DefaultConfig("Upkeep API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerMetrics(router, basePath)
	registerHealth(group)
	registerEquipment(group, cfg.Engine)
	registerPlans(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerEmergencies(group, cfg.Engine)
	registerJobs(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debugw("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(started),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case engine.IsValidation(err):
		switch {
		case errors.Is(err, engine.ErrInvalidRange):
			return newAPIError(http.StatusBadRequest, "invalid_range", msg, nil)
		case errors.Is(err, engine.ErrNoActiveTier):
			return newAPIError(http.StatusBadRequest, "no_active_tier", msg, nil)
		case errors.Is(err, engine.ErrInvalidTransition):
			return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", msg, nil)
		case errors.Is(err, engine.ErrMissingHealthIndex):
			return newAPIError(http.StatusUnprocessableEntity, "missing_health_index", msg, nil)
		}
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case engine.IsNotFound(err):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case engine.IsConflict(err):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get(path.Join(basePath, "docs"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerMetrics(r chi.Router, basePath string) {
	r.Handle(path.Join(basePath, "metrics"), observability.MetricsHandler())
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Upkeep API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerEquipment(api huma.API, e engine.Engine) {
	type equipmentPath struct {
		ID string `path:"id"`
	}
	huma.Register(api, huma.Operation{
		OperationID:   "register-equipment",
		Method:        http.MethodPost,
		Path:          "/equipment",
		Summary:       "Register equipment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateEquipmentRequest `json:"body"`
	}) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		eq, err := e.RegisterEquipment(ctx, engine.EquipmentCreateOptions{
			ID:                   input.Body.ID,
			Name:                 input.Body.Name,
			AssetID:              input.Body.AssetID,
			DateOfManufacturing:  input.Body.DateOfManufacturing,
			UsefulLifeSpanMonths: input.Body.UsefulLifeSpanMonths,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-equipment",
		Method:      http.MethodGet,
		Path:        "/equipment/{id}",
		Summary:     "Get equipment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *equipmentPath) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		eq, err := e.GetEquipment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "nearest-events",
		Method:      http.MethodGet,
		Path:        "/equipment/{id}/nearest-events",
		Summary:     "Previous and next maintenance around today",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *equipmentPath) (*struct {
		Body engine.Nearest `json:"body"`
	}, error) {
		near, err := e.NearestEvents(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Nearest `json:"body"`
		}{Body: near}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recalculate-health-index",
		Method:      http.MethodPost,
		Path:        "/equipment/{id}/health-index",
		Summary:     "Recompute the health index from a plan",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body RecalculateHealthRequest `json:"body,omitempty" required:"false"`
	}) (*struct {
		Body HealthIndexResponse `json:"body"`
	}, error) {
		hi, err := e.RecalculateHealthIndex(ctx, input.ID, input.Body.PlanID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body HealthIndexResponse `json:"body"`
		}{Body: HealthIndexResponse{EquipmentID: input.ID, HealthIndex: hi}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/equipment/{id}/activities",
		Summary:     "Recent activity for equipment",
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body ActivityListResponse `json:"body"`
	}, error) {
		items, err := e.Activities(ctx, input.ID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityListResponse `json:"body"`
		}{Body: ActivityListResponse{Items: nonNilSlice(items)}}, nil
	})
}

func registerPlans(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-plan",
		Method:        http.MethodPost,
		Path:          "/plans",
		Summary:       "Create a maintenance plan and generate its schedule",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreatePlanRequest `json:"body"`
	}) (*struct {
		Body PlanResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		res, err := e.CreatePlan(ctx, planOptions(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanResponse `json:"body"`
		}{Body: planResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/plans/{id}",
		Summary:     "Get plan",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Plan `json:"body"`
	}, error) {
		p, err := e.GetPlan(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Plan `json:"body"`
		}{Body: p}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List maintenance events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		EquipmentID string `query:"equipment_id"`
		PlanID      string `query:"plan_id"`
		Status      string `query:"status" enum:"upcoming,overdue,complete,incomplete,emergency"`
		Level       string `query:"level" enum:"A,B,C,D,E"`
		From        string `query:"from" format:"date"`
		To          string `query:"to" format:"date"`
		Limit       int    `query:"limit"`
	}) (*struct {
		Body EventListResponse `json:"body"`
	}, error) {
		items, err := e.ListEvents(ctx, domain.EventFilter{
			EquipmentID: input.EquipmentID,
			PlanID:      input.PlanID,
			Status:      domain.Status(input.Status),
			Level:       domain.Level(input.Level),
			From:        input.From,
			To:          input.To,
			Limit:       input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventListResponse `json:"body"`
		}{Body: EventListResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "event-summary",
		Method:      http.MethodGet,
		Path:        "/events/summary",
		Summary:     "Event and equipment counts per status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		items, err := e.Summary(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		ev, err := e.GetEvent(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-event",
		Method:      http.MethodPost,
		Path:        "/events/{id}/complete",
		Summary:     "Record a performed service",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body CompleteEventRequest `json:"body"`
	}) (*struct {
		Body CompletionResponse `json:"body"`
	}, error) {
		opts := engine.CompleteOptions{EventID: input.ID, PerformedAt: input.Body.PerformedAt}
		if input.Body.Incomplete {
			forced := domain.StatusIncomplete
			opts.Forced = &forced
		}
		res, err := e.CompleteEvent(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CompletionResponse `json:"body"`
		}{Body: completionResponse(res)}, nil
	})
}

func registerEmergencies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "open-emergency",
		Method:        http.MethodPost,
		Path:          "/emergencies",
		Summary:       "Open an emergency maintenance event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body OpenEmergencyRequest `json:"body"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		ev, err := e.OpenEmergency(ctx, engine.EmergencyOptions{
			EquipmentID: input.Body.EquipmentID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Start:       input.Body.Start,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})
}

func registerJobs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sweep-incomplete",
		Method:      http.MethodPost,
		Path:        "/jobs/sweep",
		Summary:     "Mark long-overdue events incomplete",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SweepResponse `json:"body"`
	}, error) {
		moved, err := e.SweepIncomplete(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SweepResponse `json:"body"`
		}{Body: SweepResponse{Moved: nonNilSlice(moved)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-emergencies",
		Method:      http.MethodPost,
		Path:        "/jobs/close-emergencies",
		Summary:     "Move open emergency events to end today",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body EventListResponse `json:"body"`
	}, error) {
		changed, err := e.CloseEmergencyEvents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventListResponse `json:"body"`
		}{Body: EventListResponse{Items: nonNilSlice(changed)}}, nil
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
