package artifact

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Complexity classes.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

var hoursByComplexity = map[string]int{
	ComplexitySimple:  8,
	ComplexityMedium:  24,
	ComplexityComplex: 80,
}

const bufferPercentage = 20

// FeatureEstimate is one line of the breakdown.
type FeatureEstimate struct {
	Feature    string `json:"feature"`
	Complexity string `json:"complexity"`
	Hours      int    `json:"hours"`
}

// Estimate is the effort estimate for a feature list.
type Estimate struct {
	TotalHours           int               `json:"total_hours"`
	TotalHoursWithBuffer int               `json:"total_hours_with_buffer"`
	BufferPercentage     int               `json:"buffer_percentage"`
	Breakdown            []FeatureEstimate `json:"breakdown"`
	TShirt               string            `json:"t_shirt"`
	SessionID            string            `json:"session_id,omitempty"`
}

// Estimate sizes features for a session.
func (s *Service) Estimate(ctx context.Context, sessionID string, features []string, includeBuffer bool) (*Estimate, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	est, err := EstimateFeatures(features, includeBuffer)
	if err != nil {
		return nil, err
	}
	est.SessionID = sessionID
	return est, nil
}

// EstimateFeatures classifies each feature by description length.
func EstimateFeatures(features []string, includeBuffer bool) (*Estimate, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: features must not be empty", ErrInvalidInput)
	}

	est := &Estimate{Breakdown: make([]FeatureEstimate, 0, len(features))}
	for _, feature := range features {
		complexity := classify(feature)
		hours := hoursByComplexity[complexity]
		est.TotalHours += hours
		est.Breakdown = append(est.Breakdown, FeatureEstimate{
			Feature:    feature,
			Complexity: complexity,
			Hours:      hours,
		})
	}

	est.TotalHoursWithBuffer = est.TotalHours
	if includeBuffer {
		est.TotalHoursWithBuffer = est.TotalHours * (100 + bufferPercentage) / 100
		est.BufferPercentage = bufferPercentage
	}
	est.TShirt = TShirtSize(est.TotalHours)
	return est, nil
}

func classify(feature string) string {
	switch n := utf8.RuneCountInString(feature); {
	case n < 20:
		return ComplexitySimple
	case n < 60:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

// TShirtSize maps total hours to S, M, L or XL.
func TShirtSize(hours int) string {
	switch {
	case hours <= 40:
		return "S"
	case hours <= 160:
		return "M"
	case hours <= 400:
		return "L"
	default:
		return "XL"
	}
}
