// flightplanner plans coverage flight paths for camera drones: it validates
// a survey boundary, generates a boustrophedon line pattern, splits it into
// battery-bounded sorties and evaluates environmental risk.
//
// Usage:
//
//	flightplanner plan <request.json>     run the planner on a request file
//	flightplanner serve                   expose the planner over HTTP
//	flightplanner plans [limit]           list stored plans
//	flightplanner export <id> [platform]  print a stored plan as KML
//	flightplanner models                  list built-in drone models
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codrone/flightplanner/internal/catalog"
	"github.com/codrone/flightplanner/internal/config"
	"github.com/codrone/flightplanner/internal/export"
	"github.com/codrone/flightplanner/internal/logging"
	"github.com/codrone/flightplanner/internal/otel"
	"github.com/codrone/flightplanner/internal/planner"
	"github.com/codrone/flightplanner/internal/server"
	"github.com/codrone/flightplanner/internal/store"
	"github.com/codrone/flightplanner/internal/weather"
	"github.com/codrone/flightplanner/pkg/plan"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	switch strings.ToLower(os.Args[1]) {
	case "plan":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: flightplanner plan <request.json>")
			os.Exit(2)
		}
		err = app.runPlan(os.Args[2])
	case "serve":
		err = app.runServe()
	case "plans":
		limit := 0
		if len(os.Args) > 2 {
			limit, err = strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Fprintln(os.Stderr, "usage: flightplanner plans [limit]")
				os.Exit(2)
			}
		}
		err = app.runList(limit)
	case "export":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: flightplanner export <id> [platform]")
			os.Exit(2)
		}
		platform := ""
		if len(os.Args) > 3 {
			platform = os.Args[3]
		}
		err = app.runExport(os.Args[2], platform)
	case "models":
		for _, name := range catalog.Models() {
			fmt.Println(name)
		}
	default:
		usage()
		os.Exit(2)
	}

	if shutdownErr := app.metrics.Shutdown(context.Background()); shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "metrics shutdown:", shutdownErr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flightplanner <plan|serve|plans|export|models> [args]")
}

// app wires the configured collaborators around the engine.
type app struct {
	engine  *planner.Engine
	store   *store.Manager
	zlog    zerolog.Logger
	metrics *otel.Provider
}

func newApp() (*app, error) {
	if err := config.Load("."); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	slogMgr := logging.NewSlogManager()
	var logFile *os.File
	if path := config.GetString("logFile"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
	}
	slogMgr.Setup(logFile, config.GetString("logLevel"))

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	metrics, err := setupMetrics()
	if err != nil {
		return nil, fmt.Errorf("setting up metrics: %w", err)
	}

	st, err := store.NewManager(zlog, config.GetString("store.path"))
	if err != nil {
		return nil, err
	}

	provider := weather.NewManager(zlog,
		config.GetString("weather.baseUrl"),
		time.Duration(config.GetInt("weather.timeoutSeconds"))*time.Second)

	engine, err := planner.New(config.ResolveRequirements, provider, planner.Config{
		Coverage: config.Coverage(),
		Budget:   config.Budget(),
		Risk:     config.Risk(),
	}, slogMgr.Logger())
	if err != nil {
		return nil, err
	}

	return &app{engine: engine, store: st, zlog: zlog, metrics: metrics}, nil
}

// setupMetrics builds the OTel metrics pipeline from config. Disabled by
// default; instruments fall back to the global no-op meter.
func setupMetrics() (*otel.Provider, error) {
	cfg := otel.Config{
		Enabled:        config.GetBool("otel.enabled"),
		ServiceName:    config.GetString("otel.serviceName"),
		Endpoint:       config.GetString("otel.endpoint"),
		Insecure:       config.GetBool("otel.insecure"),
		ExportInterval: time.Duration(config.GetInt("otel.exportIntervalSeconds")) * time.Second,
	}
	if path := config.GetString("otel.metricsFile"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		cfg.MetricWriter = f
	}
	return otel.New(cfg)
}

// cliRequest lets a request file name a catalog model instead of spelling
// out the full drone specifications.
type cliRequest struct {
	plan.Request
	DroneModel string `json:"droneModel,omitempty"`
}

func (a *app) runPlan(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	var req cliRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}
	if req.DroneModel != "" && req.Drone.BatteryCapacity == 0 {
		specs, err := catalog.Resolve(req.DroneModel)
		if err != nil {
			return err
		}
		req.Drone = specs
	}

	p, err := a.engine.Plan(context.Background(), req.Request)
	if err != nil {
		return err
	}

	if rec, err := a.store.Save(p); err != nil {
		a.zlog.Error().Err(err).Msg("Failed to persist plan")
	} else {
		a.zlog.Info().Uint("id", rec.ID).Msg("Plan stored")
	}

	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) runServe() error {
	srv := server.New(a.engine, a.store, a.zlog)
	listen := config.GetString("server.listen")
	a.zlog.Info().Str("listen", listen).Msg("Starting planner server")
	return httpListen(listen, srv)
}

func (a *app) runList(limit int) error {
	recs, err := a.store.List(limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no stored plans")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%d\t%s\t%s\trisk=%.2f\tarea=%.0fm2\t%s\n",
			r.ID, r.MissionType, r.Verdict, r.RiskScore, r.AreaCovered,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) runExport(rawID, platform string) error {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid plan id %q", rawID)
	}

	p, err := a.store.Get(uint(id))
	if err != nil {
		return err
	}

	res, err := export.KML(p, export.Platform(platform), "Plan "+rawID)
	if err != nil {
		return err
	}

	path := filepath.Clean(res.Filename)
	if err := os.WriteFile(path, res.KML, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.zlog.Info().Str("file", path).Int("waypoints", res.WaypointCount).Msg("KML exported")
	return nil
}
