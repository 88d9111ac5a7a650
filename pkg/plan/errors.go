package plan

import "errors"

// Input validation failures surfaced to callers. All are detected before or
// during pattern generation and are never retried internally; re-prompting
// for better input is the caller's job.
var (
	// ErrDegeneratePolygon is returned for boundaries with fewer than 3
	// distinct vertices or zero signed area.
	ErrDegeneratePolygon = errors.New("degenerate polygon")

	// ErrSelfIntersecting is returned when non-adjacent boundary edges cross.
	ErrSelfIntersecting = errors.New("self-intersecting polygon")

	// ErrPolygonTooSmall is returned when the boundary area is below the
	// configured minimum (by default one camera footprint cell).
	ErrPolygonTooSmall = errors.New("polygon smaller than minimum coverage area")

	// ErrInvalidAltitude is returned when the requested altitude is not
	// positive or exceeds the drone's ceiling.
	ErrInvalidAltitude = errors.New("invalid flight altitude")

	// ErrInvalidOverlap is returned for overlap percentages outside [0,100).
	ErrInvalidOverlap = errors.New("overlap percentage out of range")

	// ErrUnreachableCoverage is returned when a single flight line cannot be
	// completed within one battery cycle. Lines are never split mid-flight.
	ErrUnreachableCoverage = errors.New("coverage line exceeds single battery range")

	// ErrInvalidTimeWindow is returned when the constraint window ends
	// before it starts.
	ErrInvalidTimeWindow = errors.New("time window end precedes start")

	// ErrUnknownMissionType is returned when the requested mission type is
	// not in the supported set.
	ErrUnknownMissionType = errors.New("unknown mission type")
)
