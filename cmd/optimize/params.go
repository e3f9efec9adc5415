// Package main provides CMA-ES optimization for the audio trigger parameters.
package main

import (
	"github.com/pthm-cable/inkflux/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters, with
// defaults taken from cfg.
func NewParamVector(cfg *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "trigger_ratio", Path: "driver.trigger_ratio", Min: 1.0, Max: 6.0, Default: cfg.Driver.TriggerRatio},
			{Name: "palette_ratio", Path: "driver.palette_ratio", Min: 2.0, Max: 12.0, Default: cfg.Driver.PaletteRatio},
			{Name: "palette_cooldown", Path: "driver.palette_cooldown", Min: 5, Max: 240, Default: float64(cfg.Driver.PaletteCooldown)},
			{Name: "volume_offset", Path: "driver.volume_offset", Min: 0.0, Max: 8.0, Default: cfg.Driver.VolumeOffset},
			{Name: "flux_buffer", Path: "driver.flux_buffer", Min: 10, Max: 240, Default: float64(cfg.Driver.FluxBuffer)},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Driver.TriggerRatio = clamped[0]
	cfg.Driver.PaletteRatio = clamped[1]
	cfg.Driver.PaletteCooldown = int(clamped[2])
	cfg.Driver.VolumeOffset = clamped[3]
	cfg.Driver.FluxBuffer = int(clamped[4])
}
