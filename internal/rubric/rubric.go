// Package rubric defines the fixed weighted scoring criteria used to
// validate and total an evaluation.
package rubric

import (
	"errors"
	"fmt"
	"math"
)

// MaxTotal is the highest total a fully scored evaluation can reach.
const MaxTotal = 100.0

// ErrScoreOutOfRange is wrapped by every ScoreError.
var ErrScoreOutOfRange = errors.New("score out of range")

// Criteria holds one evaluator's scores for the ten rubric criteria.
type Criteria struct {
	RelevanceToLOs          float64 `json:"relevanceToLOs" bson:"relevanceToLOs"`
	InnovationCreativity    float64 `json:"innovationCreativity" bson:"innovationCreativity"`
	ClarityAccessibility    float64 `json:"clarityAccessibility" bson:"clarityAccessibility"`
	Depth                   float64 `json:"depth" bson:"depth"`
	InteractivityEngagement float64 `json:"interactivityEngagement" bson:"interactivityEngagement"`
	UseOfTechnology         float64 `json:"useOfTechnology" bson:"useOfTechnology"`
	ScalabilityAdaptability float64 `json:"scalabilityAdaptability" bson:"scalabilityAdaptability"`
	EthicalStandards        float64 `json:"ethicalStandards" bson:"ethicalStandards"`
	PracticalApplication    float64 `json:"practicalApplication" bson:"practicalApplication"`
	VideoQuality            float64 `json:"videoQuality" bson:"videoQuality"`
}

// Criterion describes one rubric entry and its inclusive upper bound.
type Criterion struct {
	Name string  `json:"name"`
	Max  float64 `json:"max"`
}

var bounds = []Criterion{
	{Name: "relevanceToLOs", Max: 5},
	{Name: "innovationCreativity", Max: 15},
	{Name: "clarityAccessibility", Max: 10},
	{Name: "depth", Max: 5},
	{Name: "interactivityEngagement", Max: 25},
	{Name: "useOfTechnology", Max: 5},
	{Name: "scalabilityAdaptability", Max: 10},
	{Name: "ethicalStandards", Max: 5},
	{Name: "practicalApplication", Max: 10},
	{Name: "videoQuality", Max: 10},
}

// Bounds returns the criteria in declaration order with their maxima.
func Bounds() []Criterion {
	out := make([]Criterion, len(bounds))
	copy(out, bounds)
	return out
}

// values returns the scores in the same order as bounds.
func (c Criteria) values() []float64 {
	return []float64{
		c.RelevanceToLOs,
		c.InnovationCreativity,
		c.ClarityAccessibility,
		c.Depth,
		c.InteractivityEngagement,
		c.UseOfTechnology,
		c.ScalabilityAdaptability,
		c.EthicalStandards,
		c.PracticalApplication,
		c.VideoQuality,
	}
}

// ComputeTotal sums the ten criterion values. It does not clamp; callers
// reject out-of-range input with Validate first.
func ComputeTotal(c Criteria) float64 {
	total := 0.0
	for _, v := range c.values() {
		total += v
	}
	return total
}

// ScoreError reports the first criterion that violates its bounds.
type ScoreError struct {
	Field string
	Value float64
	Max   float64
}

func (e *ScoreError) Error() string {
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Sprintf("%s must be a finite number", e.Field)
	}
	return fmt.Sprintf("%s must be between 0 and %g, got %g", e.Field, e.Max, e.Value)
}

func (e *ScoreError) Unwrap() error {
	return ErrScoreOutOfRange
}

// Validate checks every criterion against its declared range.
func Validate(c Criteria) error {
	for i, v := range c.values() {
		b := bounds[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > b.Max {
			return &ScoreError{Field: b.Name, Value: v, Max: b.Max}
		}
	}
	return nil
}
