package inference

import (
	"fmt"
	"math"
)

// Scaler transforms a raw feature vector into the space the classifier was trained on.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(s.Mean) != len(x) || len(s.Scale) != len(x) {
		return nil, fmt.Errorf("standard scaler fitted on %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return checkFinite(out)
}

// MinMaxScaler computes x*scale + min per feature, matching the fitted attributes of a min-max scaler.
type MinMaxScaler struct {
	Min   []float64
	Scale []float64
}

func (s MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if len(s.Min) != len(x) || len(s.Scale) != len(x) {
		return nil, fmt.Errorf("minmax scaler fitted on %d features, got %d", len(s.Min), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*s.Scale[i] + s.Min[i]
	}
	return checkFinite(out)
}

type IdentityScaler struct{}

func (IdentityScaler) Transform(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	copy(out, x)
	return out, nil
}

func checkFinite(x []float64) ([]float64, error) {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("scaled feature %d is not finite", i)
		}
	}
	return x, nil
}
