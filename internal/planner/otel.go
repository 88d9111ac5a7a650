package planner

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/codrone/flightplanner/internal/planner"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
