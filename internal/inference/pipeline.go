package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const UnknownLabel = "Unknown"

// Spec fixes everything a pipeline needs besides the fitted artifacts.
type Spec struct {
	Name     string
	Features []string
	Labels   map[int]string
}

// Label maps a class id to its display name, falling back to UnknownLabel.
func (s Spec) Label(id int) string {
	if name, ok := s.Labels[id]; ok {
		return name
	}
	return UnknownLabel
}

type Result struct {
	LabelID  int
	Label    string
	Features []float64
}

// Named pairs each feature value with its column name, in spec order.
func (r Result) Named(names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(r.Features) {
			out[name] = r.Features[i]
		}
	}
	return out
}

// Pipeline validates, scales and classifies one feature vector. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	spec       Spec
	scaler     Scaler
	classifier Classifier
}

func NewPipeline(spec Spec, scaler Scaler, classifier Classifier) *Pipeline {
	if scaler == nil {
		scaler = IdentityScaler{}
	}
	return &Pipeline{spec: spec, scaler: scaler, classifier: classifier}
}

func (p *Pipeline) Spec() Spec { return p.spec }

// Classify runs a positional feature vector through the pipeline.
func (p *Pipeline) Classify(raw []any) (Result, error) {
	if len(raw) != len(p.spec.Features) {
		return Result{}, &ValidationError{Kind: WrongArity, Expected: len(p.spec.Features), Actual: len(raw)}
	}
	x := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return Result{}, &ValidationError{Kind: NotNumeric, Index: i}
		}
		x[i] = f
	}
	return p.run(x)
}

// ClassifyFields reads every spec feature by name from fields.
func (p *Pipeline) ClassifyFields(fields map[string]any) (Result, error) {
	x := make([]float64, len(p.spec.Features))
	for i, name := range p.spec.Features {
		v, ok := fields[name]
		if !ok || v == nil {
			return Result{}, &ValidationError{Kind: Missing, Field: name, Index: i}
		}
		f, ok := toFloat(v)
		if !ok {
			return Result{}, &ValidationError{Kind: NotNumeric, Field: name, Index: i}
		}
		x[i] = f
	}
	return p.run(x)
}

func (p *Pipeline) run(x []float64) (Result, error) {
	scaled, err := p.scaler.Transform(x)
	if err != nil {
		return Result{}, &ModelError{Kind: ScalingFailed, Err: err}
	}
	if p.classifier == nil {
		return Result{}, &ModelError{Kind: PredictionFailed, Err: fmt.Errorf("%s classifier not loaded", p.spec.Name)}
	}
	id, err := p.classifier.Predict(scaled)
	if err != nil {
		return Result{}, &ModelError{Kind: PredictionFailed, Err: err}
	}
	return Result{LabelID: id, Label: p.spec.Label(id), Features: x}, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
