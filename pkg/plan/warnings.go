package plan

// WarningKind is a machine-readable tag so callers can filter or translate
// warnings without string matching.
type WarningKind string

const (
	WarnWindMarginLow       WarningKind = "wind_margin_low"
	WarnLowVisibility       WarningKind = "low_visibility_margin"
	WarnTimeWindowExceeded  WarningKind = "time_window_exceeded"
	WarnRestrictedZone      WarningKind = "restricted_zone_conflict"
	WarnObstacleProximity   WarningKind = "obstacle_proximity"
	WarnSparseCoverage      WarningKind = "sparse_coverage"
	WarnWeatherUnavailable  WarningKind = "weather_unavailable"
	WarnBatteryMarginLow    WarningKind = "battery_margin_low"
	WarnMultiSortie         WarningKind = "multi_sortie"
	WarnPrecipitationChance WarningKind = "precipitation_chance"
)

// Warning pairs a kind tag with human-readable text.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}
