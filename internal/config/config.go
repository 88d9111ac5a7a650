// Package config loads planner configuration from a JSON file with viper,
// with defaults for every tunable so a missing file is not an error.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/codrone/flightplanner/internal/budget"
	"github.com/codrone/flightplanner/internal/coverage"
	"github.com/codrone/flightplanner/internal/risk"
	"github.com/codrone/flightplanner/pkg/plan"
)

// Load reads configuration from flightplanner.cfg.json in configDir and
// sets default values. A missing file leaves the defaults in place.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFile", "")

	viper.SetDefault("store.path", "./flightplans.db")

	viper.SetDefault("weather.baseUrl", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather.timeoutSeconds", 10)

	viper.SetDefault("server.listen", ":8420")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "flightplanner")
	viper.SetDefault("otel.metricsFile", "")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)
	viper.SetDefault("otel.exportIntervalSeconds", 60)

	viper.SetDefault("coverage.minAreaFactor", 1.0)

	viper.SetDefault("budget.turnPenaltySeconds", 4.0)
	viper.SetDefault("budget.relaunchOverheadSeconds", 300.0)
	viper.SetDefault("budget.drainRateMahPerSecond", 2.0)
	viper.SetDefault("budget.referenceWeightGrams", 1000.0)
	viper.SetDefault("budget.usableBatteryFraction", 0.85)

	viper.SetDefault("risk.windWeight", 0.4)
	viper.SetDefault("risk.visibilityWeight", 0.2)
	viper.SetDefault("risk.timeWeight", 0.2)
	viper.SetDefault("risk.batteryWeight", 0.2)
	viper.SetDefault("risk.windWarnRatio", 0.7)
	viper.SetDefault("risk.visibilityWarnRatio", 0.7)
	viper.SetDefault("risk.batteryWarnRatio", 0.8)
	viper.SetDefault("risk.precipWarnPct", 40.0)

	setMissionDefaults(plan.MissionSurvey, 120, 80, 70, 10)
	setMissionDefaults(plan.MissionInspection, 50, 90, 60, 5)
	setMissionDefaults(plan.MissionMapping, 120, 85, 75, 8)
	setMissionDefaults(plan.MissionMonitoring, 120, 70, 60, 10)
	setMissionDefaults(plan.MissionSearchRescue, 100, 70, 50, 12)

	viper.SetConfigName("flightplanner.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func setMissionDefaults(t plan.MissionType, altitude, forward, side, speed float64) {
	prefix := "missions." + string(t) + "."
	viper.SetDefault(prefix+"altitude", altitude)
	viper.SetDefault(prefix+"forwardOverlap", forward)
	viper.SetDefault(prefix+"sideOverlap", side)
	viper.SetDefault(prefix+"targetSpeed", speed)
}

// Coverage returns the pattern generator configuration.
func Coverage() coverage.Config {
	return coverage.Config{
		MinAreaFactor: viper.GetFloat64("coverage.minAreaFactor"),
	}
}

// Budget returns the resource budgeter configuration.
func Budget() budget.Config {
	return budget.Config{
		TurnPenalty:      viper.GetFloat64("budget.turnPenaltySeconds"),
		RelaunchOverhead: viper.GetFloat64("budget.relaunchOverheadSeconds"),
		DrainRate:        viper.GetFloat64("budget.drainRateMahPerSecond"),
		ReferenceWeight:  viper.GetFloat64("budget.referenceWeightGrams"),
		UsableBattery:    viper.GetFloat64("budget.usableBatteryFraction"),
	}
}

// Risk returns the risk evaluator configuration.
func Risk() risk.Config {
	return risk.Config{
		WindWeight:          viper.GetFloat64("risk.windWeight"),
		VisibilityWeight:    viper.GetFloat64("risk.visibilityWeight"),
		TimeWeight:          viper.GetFloat64("risk.timeWeight"),
		BatteryWeight:       viper.GetFloat64("risk.batteryWeight"),
		WindWarnRatio:       viper.GetFloat64("risk.windWarnRatio"),
		VisibilityWarnRatio: viper.GetFloat64("risk.visibilityWarnRatio"),
		BatteryWarnRatio:    viper.GetFloat64("risk.batteryWarnRatio"),
		PrecipWarnPct:       viper.GetFloat64("risk.precipWarnPct"),
	}
}

// ResolveRequirements fills zero fields of the caller's requirements from
// the per-mission-type defaults table. The mission type itself must be set
// and valid.
func ResolveRequirements(req plan.MissionRequirements) (plan.MissionRequirements, error) {
	if req.Type == "" {
		req.Type = plan.MissionSurvey
	}
	if !req.Type.Valid() {
		return plan.MissionRequirements{}, fmt.Errorf("%w: %q", plan.ErrUnknownMissionType, req.Type)
	}

	prefix := "missions." + string(req.Type) + "."
	if req.Altitude <= 0 {
		req.Altitude = viper.GetFloat64(prefix + "altitude")
	}
	if req.ForwardOverlap <= 0 {
		req.ForwardOverlap = viper.GetFloat64(prefix + "forwardOverlap")
	}
	if req.SideOverlap <= 0 {
		req.SideOverlap = viper.GetFloat64(prefix + "sideOverlap")
	}
	if req.TargetSpeed <= 0 {
		req.TargetSpeed = viper.GetFloat64(prefix + "targetSpeed")
	}
	return req, nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
