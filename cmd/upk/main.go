package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"upkeep/internal/app"
	"upkeep/internal/config"
	"upkeep/internal/domain"
	"upkeep/internal/engine"
	"upkeep/internal/jobs"
	"upkeep/internal/observability"
	"upkeep/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "upk",
	Short: "Upkeep maintenance scheduler",
	Long: `Upkeep plans preventive maintenance for equipment and tracks its health.
Core concepts:
- Equipment: an asset with a manufacturing date and useful life span in months.
- Plan: daily working hours, a service window and up to four tiers (A..D), each with service hours and a duration in days.
- Events: the generated schedule. Higher tiers (D, then C, B, A) win when services overlap.
- Status: upcoming -> overdue -> incomplete as time passes; complete once performed. Level E events are emergencies.
- Health index: min(given index, ideal index from age); late or missed services deduct a penalty.
- Workspace: upkeep.yml holds tunables and .upkeep/upkeep.db the data (or use --store postgres).`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	envFile := filepath.Join(viper.GetString("workspace"), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", envFile, err)
	}
	viper.SetEnvPrefix("UPKEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("store", app.StoreSQLite, "persistence backend: sqlite, postgres or memory")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "PostgreSQL connection string for --store postgres")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides upkeep.yml)")
	for _, name := range []string{"workspace", "json", "store", "postgres-dsn", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(equipmentCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(emergencyCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func equipmentCmd() *cobra.Command {
	eq := &cobra.Command{Use: "equipment", Short: "Manage equipment"}
	eq.AddCommand(equipmentAddCmd())
	eq.AddCommand(equipmentShowCmd())
	eq.AddCommand(equipmentActivityCmd())
	return eq
}

func equipmentAddCmd() *cobra.Command {
	var opts engine.EquipmentCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				eq, err := e.RegisterEquipment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(eq)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "equipment id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "equipment name")
	cmd.Flags().StringVar(&opts.AssetID, "asset-id", "", "asset tag")
	cmd.Flags().StringVar(&opts.DateOfManufacturing, "manufactured", "", "date of manufacturing (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.UsefulLifeSpanMonths, "lifespan", 0, "useful life span in months")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("manufactured")
	_ = cmd.MarkFlagRequired("lifespan")
	return cmd
}

func equipmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <equipment-id>",
		Short: "Show equipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				eq, err := e.GetEquipment(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(eq)
			})
		},
	}
}

func equipmentActivityCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity <equipment-id>",
		Short: "Show recent activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Activities(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Action", "Title", "Description"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.TS, a.Action, a.Title, a.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func planCmd() *cobra.Command {
	p := &cobra.Command{Use: "plan", Short: "Manage maintenance plans"}
	p.AddCommand(planCreateCmd())
	p.AddCommand(planShowCmd())
	return p
}

func planCreateCmd() *cobra.Command {
	var opts engine.PlanCreateOptions
	var tierFlags []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan and generate its schedule",
		Example: `  upk plan create --equipment pump-1 --hours 8 --start 2024-01-01 --end 2024-12-31 \
    --tier A=40:1 --tier B=160:2 --tier D=480:3 --given 95`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tiers, err := parseTiers(tierFlags)
			if err != nil {
				return err
			}
			opts.Tiers = tiers
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CreatePlan(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("plan %s for %s: %d events, health index %.2f\n", res.Plan.ID, res.Plan.EquipmentID, len(res.Events), res.HealthIndex)
				renderEvents(res.Events)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "plan id (generated when empty)")
	cmd.Flags().StringVar(&opts.EquipmentID, "equipment", "", "equipment id")
	cmd.Flags().IntVar(&opts.DailyWorkingHours, "hours", 0, "daily working hours (1-24)")
	cmd.Flags().StringVar(&opts.ServiceStartDate, "start", "", "service start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ServiceEndDate, "end", "", "service end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.GivenHealthIndex, "given", 0, "given health index (1-100, default 100)")
	cmd.Flags().StringArrayVar(&tierFlags, "tier", nil, "tier as LEVEL=HOURS:DAYS, repeatable")
	cmd.Flags().StringVar(&opts.StartOverride, "from", "", "generate from this date instead of the service start")
	cmd.Flags().StringVar(&opts.EndOverride, "to", "", "generate until this date instead of the service end")
	_ = cmd.MarkFlagRequired("equipment")
	_ = cmd.MarkFlagRequired("hours")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// parseTiers reads LEVEL=HOURS:DAYS pairs.
func parseTiers(in []string) (map[domain.Level]domain.Tier, error) {
	out := make(map[domain.Level]domain.Tier, len(in))
	for _, raw := range in {
		level, rest, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --tier %q; want LEVEL=HOURS:DAYS", raw)
		}
		hoursRaw, daysRaw, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --tier %q; want LEVEL=HOURS:DAYS", raw)
		}
		hours, err := strconv.Atoi(hoursRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid --tier %q hours: %w", raw, err)
		}
		days, err := strconv.Atoi(daysRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid --tier %q days: %w", raw, err)
		}
		l := domain.Level(strings.ToUpper(strings.TrimSpace(level)))
		if _, dup := out[l]; dup {
			return nil, fmt.Errorf("tier %s given twice", l)
		}
		out[l] = domain.Tier{Hours: hours, DurationDays: days}
	}
	return out, nil
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetPlan(ctx, args[0])
				if err != nil {
					return err
				}
				evs, err := e.ListEvents(ctx, domain.EventFilter{PlanID: p.ID})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"plan": p, "events": evs})
				}
				fmt.Printf("plan %s for %s: %s..%s, %dh/day, given index %d\n",
					p.ID, p.EquipmentID, p.ServiceStartDate, p.ServiceEndDate, p.DailyWorkingHours, p.GivenHealthIndex)
				renderEvents(evs)
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	evs := &cobra.Command{Use: "events", Short: "Query the maintenance schedule"}
	evs.AddCommand(eventsListCmd())
	evs.AddCommand(eventsNearestCmd())
	evs.AddCommand(eventsSummaryCmd())
	return evs
}

func eventsListCmd() *cobra.Command {
	var f domain.EventFilter
	var status, level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.Status(status)
			f.Level = domain.Level(strings.ToUpper(level))
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				renderEvents(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.EquipmentID, "equipment", "", "filter by equipment")
	cmd.Flags().StringVar(&f.PlanID, "plan", "", "filter by plan")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&level, "level", "", "filter by level")
	cmd.Flags().StringVar(&f.From, "from", "", "events starting on or after this date")
	cmd.Flags().StringVar(&f.To, "to", "", "events starting on or before this date")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 0, "maximum number of events")
	return cmd
}

func eventsNearestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nearest <equipment-id>",
		Short: "Show the previous and next maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				near, err := e.NearestEvents(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(near)
				}
				var rows []domain.Event
				if near.Previous != nil {
					rows = append(rows, *near.Previous)
				}
				if near.Next != nil {
					rows = append(rows, *near.Next)
				}
				renderEvents(rows)
				return nil
			})
		},
	}
}

func eventsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count events and equipment per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Summary(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Events", "Equipment"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.Status, s.Events, s.EquipmentCount})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Work with a single event"}
	ev.AddCommand(eventShowCmd())
	ev.AddCommand(eventCompleteCmd())
	return ev
}

func eventShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, err := e.GetEvent(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
}

func eventCompleteCmd() *cobra.Command {
	var performed string
	var incomplete bool
	cmd := &cobra.Command{
		Use:   "complete <event-id>",
		Short: "Record a performed service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.CompleteOptions{EventID: args[0], PerformedAt: performed}
			if incomplete {
				forced := domain.StatusIncomplete
				opts.Forced = &forced
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CompleteEvent(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("event %s is %s", res.Event.ID, res.Event.Status)
				if res.Penalty > 0 && res.HealthIndex != nil {
					fmt.Printf("; health index -%.2f -> %.2f", res.Penalty, *res.HealthIndex)
				}
				fmt.Println()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&performed, "performed", "", "date the service was performed (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "mark the event incomplete")
	return cmd
}

func emergencyCmd() *cobra.Command {
	em := &cobra.Command{Use: "emergency", Short: "Emergency maintenance"}
	em.AddCommand(emergencyOpenCmd())
	em.AddCommand(emergencyCloseCmd())
	return em
}

func emergencyOpenCmd() *cobra.Command {
	var opts engine.EmergencyOptions
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an emergency event on the latest plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, err := e.OpenEmergency(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EquipmentID, "equipment", "", "equipment id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start date (default today)")
	_ = cmd.MarkFlagRequired("equipment")
	return cmd
}

func emergencyCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Move the end of open emergency events to today",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				changed, err := e.CloseEmergencyEvents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(changed)
				}
				fmt.Printf("%d emergency events updated\n", len(changed))
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark long-overdue events incomplete",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				moved, err := e.SweepIncomplete(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"moved": moved})
				}
				fmt.Printf("%d events marked incomplete\n", len(moved))
				return nil
			})
		},
	}
}

func healthCmd() *cobra.Command {
	h := &cobra.Command{Use: "health", Short: "Equipment health index"}
	var planID string
	recalc := &cobra.Command{
		Use:   "recalc <equipment-id>",
		Short: "Recompute the health index from a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				hi, err := e.RecalculateHealthIndex(ctx, args[0], planID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"equipment_id": args[0], "health_index": hi})
				}
				fmt.Printf("%s health index %.2f\n", args[0], hi)
				return nil
			})
		},
	}
	recalc.Flags().StringVar(&planID, "plan", "", "plan id (default latest)")
	h.AddCommand(recalc)
	return h
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "upkeep.yml holds status thresholds, penalty coefficients, colors and job intervals. Missing keys fall back to defaults.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default upkeep.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate upkeep.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			log := observability.New("serve")
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Log: observability.New("http")})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			jobsDone := make(chan struct{})
			if a.Config.Jobs.Enabled {
				runner := jobs.Runner{
					Engine:            a.Engine,
					SweepInterval:     a.Config.Jobs.SweepInterval,
					EmergencyInterval: a.Config.Jobs.EmergencyInterval,
					Log:               observability.New("jobs"),
				}
				go func() {
					runner.Run(ctx)
					close(jobsDone)
				}()
			} else {
				close(jobsDone)
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Infow("serving upkeep API", "addr", addr, "base_path", basePath, "jobs", a.Config.Jobs.Enabled)
			fmt.Printf("Serving Upkeep API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n", addr, basePath, basePath, basePath)
			err = srv.ListenAndServe()
			cancel()
			<-jobsDone
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, app.Options{
		Workspace:   viper.GetString("workspace"),
		Store:       viper.GetString("store"),
		PostgresDSN: viper.GetString("postgres-dsn"),
		LogLevel:    viper.GetString("log-level"),
	})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.Engine)
}

func renderEvents(items []domain.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Level", "Status", "Start", "End", "Performed", "Title"})
	for _, ev := range items {
		performed := ""
		if ev.PerformedAt != nil {
			performed = *ev.PerformedAt
		}
		tw.AppendRow(table.Row{ev.ID, ev.Level, ev.Status, ev.Start, ev.End, performed, ev.Title})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
