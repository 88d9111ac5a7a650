// Package plan defines the value types exchanged with the mission planning
// engine. Everything here is a plain serializable value: inputs are built by
// the caller, outputs are returned once and never mutated afterwards.
package plan

import "time"

// LatLng is a geographic coordinate in WGS84 degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CameraSpecs describes the camera payload used for footprint math.
// Sensor dimensions and focal length are in millimeters.
type CameraSpecs struct {
	SensorWidth  float64 `json:"sensorWidth"`
	SensorHeight float64 `json:"sensorHeight"`
	FocalLength  float64 `json:"focalLength"`
	Megapixels   float64 `json:"megapixels"`
}

// DroneSpecifications is the resolved flight envelope of a single airframe.
// It is created once per mission request and never mutated.
type DroneSpecifications struct {
	Model           string      `json:"model,omitempty"`
	MaxFlightTime   float64     `json:"maxFlightTime"`   // minutes
	MaxSpeed        float64     `json:"maxSpeed"`        // m/s
	MaxAltitude     float64     `json:"maxAltitude"`     // m
	BatteryCapacity float64     `json:"batteryCapacity"` // mAh
	Weight          float64     `json:"weight"`          // g
	WindResistance  float64     `json:"windResistance"`  // max tolerable wind, m/s
	CameraSpecs     CameraSpecs `json:"cameraSpecs"`
}

// MissionType enumerates the supported mission profiles.
type MissionType string

const (
	MissionSurvey       MissionType = "survey"
	MissionInspection   MissionType = "inspection"
	MissionMapping      MissionType = "mapping"
	MissionMonitoring   MissionType = "monitoring"
	MissionSearchRescue MissionType = "search_rescue"
)

// Valid reports whether t is one of the known mission types.
func (t MissionType) Valid() bool {
	switch t {
	case MissionSurvey, MissionInspection, MissionMapping, MissionMonitoring, MissionSearchRescue:
		return true
	}
	return false
}

// MissionRequirements carries the flight parameters for a request. Zero
// fields are filled from the per-type defaults table before planning.
type MissionRequirements struct {
	Type           MissionType `json:"type"`
	Altitude       float64     `json:"altitude"`       // m
	ForwardOverlap float64     `json:"forwardOverlap"` // percent
	SideOverlap    float64     `json:"sideOverlap"`    // percent
	TargetSpeed    float64     `json:"targetSpeed"`    // m/s
}

// TimeWindow is the interval the mission must fit into.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Obstacle is a point hazard with an exclusion radius in meters.
type Obstacle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// EnvironmentalConstraints are optional mission-site restrictions. A zero
// value means no constraint beyond the drone's own limits.
type EnvironmentalConstraints struct {
	MaxWindSpeed    float64     `json:"maxWindSpeed,omitempty"`  // m/s
	MinVisibility   float64     `json:"minVisibility,omitempty"` // km
	TimeWindow      *TimeWindow `json:"timeWindow,omitempty"`
	RestrictedZones [][]LatLng  `json:"restrictedZones,omitempty"`
	Obstacles       []Obstacle  `json:"obstacles,omitempty"`
}

// WeatherSnapshot is a read-only forecast sample supplied by the weather
// collaborator, valid at a specific time and location.
type WeatherSnapshot struct {
	WindSpeed     float64   `json:"windSpeed"`     // m/s
	WindDirection float64   `json:"windDirection"` // degrees
	Visibility    float64   `json:"visibility"`    // km
	Precipitation float64   `json:"precipitation"` // probability, 0-100
	Time          time.Time `json:"time"`
	Location      LatLng    `json:"location"`
}

// FlightLine is one productive pass of the coverage pattern at the pattern
// altitude. Length is precomputed in the planar frame so downstream
// components do not redo spherical math.
type FlightLine struct {
	From   LatLng  `json:"from"`
	To     LatLng  `json:"to"`
	Length float64 `json:"length"` // m
}

// CoveragePattern is the boustrophedon line set covering the boundary.
// Trigger spacing is capture metadata; lines are not expanded to per-shot
// waypoints here.
type CoveragePattern struct {
	Lines           []FlightLine `json:"lines"`
	Altitude        float64      `json:"altitude"`       // m
	LineSpacing     float64      `json:"lineSpacing"`    // m
	TriggerSpacing  float64      `json:"triggerSpacing"` // m, along-track capture interval
	TotalLength     float64      `json:"totalLength"`    // m, productive only
	EstimatedPhotos int          `json:"estimatedPhotos"`
	SparseCoverage  bool         `json:"sparseCoverage"`
}

// Sortie is a contiguous run of flight lines executable on one battery.
// StartLine/EndLine index into CoveragePattern.Lines, EndLine inclusive.
type Sortie struct {
	StartLine   int     `json:"startLine"`
	EndLine     int     `json:"endLine"`
	Duration    float64 `json:"duration"`    // seconds
	BatteryUsed float64 `json:"batteryUsed"` // mAh
	Length      float64 `json:"length"`      // m, incl. inter-line transit
}

// Verdict classifies whether a plan can be safely flown.
type Verdict string

const (
	VerdictFeasible     Verdict = "feasible"
	VerdictWithWarnings Verdict = "feasible_with_warnings"
	VerdictInfeasible   Verdict = "infeasible"
)

// Evaluation is the constraint and risk assessment of a budgeted plan.
type Evaluation struct {
	Verdict   Verdict          `json:"verdict"`
	RiskScore float64          `json:"riskScore"` // 0.0-1.0, higher is riskier
	Warnings  []Warning        `json:"warnings"`
	Weather   *WeatherSnapshot `json:"weather,omitempty"`
}

// Request bundles the inputs of one planning run.
type Request struct {
	Boundary     []LatLng                 `json:"boundary"`
	Drone        DroneSpecifications      `json:"drone"`
	Requirements MissionRequirements      `json:"requirements"`
	Constraints  EnvironmentalConstraints `json:"constraints"`
}

// MissionPlan is the terminal, immutable output of the engine.
type MissionPlan struct {
	Pattern         CoveragePattern `json:"pattern"`
	Sorties         []Sortie        `json:"sorties"`
	TotalFlightTime float64         `json:"totalFlightTime"` // seconds, incl. inter-sortie overhead
	AreaCovered     float64         `json:"areaCovered"`     // m^2
	Verdict         Verdict         `json:"verdict"`
	RiskScore       float64         `json:"riskScore"`
	Warnings        []Warning       `json:"warnings"`
	Weather         *WeatherSnapshot `json:"weather,omitempty"`
	Request         Request         `json:"request"` // inputs echoed for traceability
	CreatedAt       time.Time       `json:"createdAt"`
}
