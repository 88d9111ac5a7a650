// Package catalog resolves named drone models to their specifications. It is
// the configuration-side collaborator of the planner: the engine itself only
// ever sees resolved DroneSpecifications values.
package catalog

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/codrone/flightplanner/pkg/plan"
)

// Built-in presets for common airframes. Custom models can be added or
// overridden through the "drones" section of the config file.
var presets = map[string]plan.DroneSpecifications{
	"dji-mavic-3": {
		Model:           "DJI Mavic 3",
		MaxFlightTime:   46,
		MaxSpeed:        19,
		MaxAltitude:     150,
		BatteryCapacity: 5000,
		Weight:          895,
		WindResistance:  12,
		CameraSpecs:     plan.CameraSpecs{SensorWidth: 17.3, SensorHeight: 13.0, FocalLength: 24, Megapixels: 20},
	},
	"dji-phantom-4": {
		Model:           "DJI Phantom 4",
		MaxFlightTime:   28,
		MaxSpeed:        20,
		MaxAltitude:     150,
		BatteryCapacity: 5870,
		Weight:          1380,
		WindResistance:  10,
		CameraSpecs:     plan.CameraSpecs{SensorWidth: 6.17, SensorHeight: 4.55, FocalLength: 8.8, Megapixels: 20},
	},
	"generic": {
		Model:           "Generic Drone",
		MaxFlightTime:   30,
		MaxSpeed:        15,
		MaxAltitude:     150,
		BatteryCapacity: 5000,
		Weight:          1000,
		WindResistance:  10,
		CameraSpecs:     plan.CameraSpecs{SensorWidth: 6.17, SensorHeight: 4.55, FocalLength: 8.8, Megapixels: 20},
	},
}

// Resolve returns the specifications for a drone model name. An empty name
// resolves to the generic preset. Config file entries win over built-ins.
func Resolve(name string) (plan.DroneSpecifications, error) {
	if name == "" {
		name = "generic"
	}

	key := "drones." + name
	if viper.IsSet(key) {
		base, ok := presets[name]
		if !ok {
			base = plan.DroneSpecifications{Model: name}
		}
		return fromConfig(key, base), nil
	}

	specs, ok := presets[name]
	if !ok {
		return plan.DroneSpecifications{}, fmt.Errorf("unknown drone model %q (known: %v)", name, Models())
	}
	return specs, nil
}

// Models lists the built-in model names, sorted.
func Models() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fromConfig overlays config file values onto a base preset.
func fromConfig(key string, base plan.DroneSpecifications) plan.DroneSpecifications {
	get := func(field string, fallback float64) float64 {
		if viper.IsSet(key + "." + field) {
			return viper.GetFloat64(key + "." + field)
		}
		return fallback
	}

	if viper.IsSet(key + ".model") {
		base.Model = viper.GetString(key + ".model")
	}
	base.MaxFlightTime = get("maxFlightTime", base.MaxFlightTime)
	base.MaxSpeed = get("maxSpeed", base.MaxSpeed)
	base.MaxAltitude = get("maxAltitude", base.MaxAltitude)
	base.BatteryCapacity = get("batteryCapacity", base.BatteryCapacity)
	base.Weight = get("weight", base.Weight)
	base.WindResistance = get("windResistance", base.WindResistance)
	base.CameraSpecs.SensorWidth = get("cameraSpecs.sensorWidth", base.CameraSpecs.SensorWidth)
	base.CameraSpecs.SensorHeight = get("cameraSpecs.sensorHeight", base.CameraSpecs.SensorHeight)
	base.CameraSpecs.FocalLength = get("cameraSpecs.focalLength", base.CameraSpecs.FocalLength)
	base.CameraSpecs.Megapixels = get("cameraSpecs.megapixels", base.CameraSpecs.Megapixels)
	return base
}
