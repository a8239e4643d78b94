package inference

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct {
	id    int
	err   error
	calls int
}

func (f *fixedClassifier) Predict(x []float64) (int, error) {
	f.calls++
	return f.id, f.err
}

type failingScaler struct{}

func (failingScaler) Transform([]float64) ([]float64, error) {
	return nil, errors.New("boom")
}

func fetalVector(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = float64(i) + 0.5
	}
	return out
}

func TestMaternalLabelsAreInRiskSet(t *testing.T) {
	for id, want := range map[int]string{0: "Normal", 1: "Suspect", 2: "Pathological", 7: UnknownLabel} {
		p := NewPipeline(MaternalSpec, IdentityScaler{}, &fixedClassifier{id: id})
		res, err := p.ClassifyFields(map[string]any{
			"age": 29.0, "systolic_bp": 120.0, "diastolic_bp": 80.0,
			"blood_glucose": 7.5, "body_temp": 98.0, "heart_rate": 76.0,
		})
		require.NoError(t, err)
		assert.Equal(t, id, res.LabelID)
		assert.Equal(t, want, res.Label)
	}
}

func TestClassifyFieldsMissing(t *testing.T) {
	clf := &fixedClassifier{}
	p := NewPipeline(MaternalSpec, IdentityScaler{}, clf)
	_, err := p.ClassifyFields(map[string]any{"age": 30.0})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, Missing, verr.Kind)
	assert.Equal(t, "systolic_bp", verr.Field)
	assert.Zero(t, clf.calls)
}

func TestClassifyAcceptsNumericStrings(t *testing.T) {
	p := NewPipeline(MaternalSpec, IdentityScaler{}, &fixedClassifier{id: 1})
	res, err := p.ClassifyFields(map[string]any{
		"age": "29", "systolic_bp": json.Number("120"), "diastolic_bp": 80,
		"blood_glucose": 7.5, "body_temp": " 98.2 ", "heart_rate": 76.0,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{29, 120, 80, 7.5, 98.2, 76}, res.Features)
}

func TestClassifyNotNumeric(t *testing.T) {
	p := NewPipeline(FetalSpec, IdentityScaler{}, &fixedClassifier{id: 1})
	raw := fetalVector(15)
	raw[4] = "abc"
	_, err := p.Classify(raw)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, NotNumeric, verr.Kind)
	assert.Equal(t, 4, verr.Index)
}

func TestFetalWrongArity(t *testing.T) {
	clf := &fixedClassifier{id: 1}
	p := NewPipeline(FetalSpec, IdentityScaler{}, clf)

	for _, n := range []int{0, 14, 16} {
		_, err := p.Classify(fetalVector(n))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, WrongArity, verr.Kind)
		assert.Equal(t, 15, verr.Expected)
		assert.Equal(t, n, verr.Actual)
	}
	assert.Zero(t, clf.calls)
}

func TestFetalUnknownID(t *testing.T) {
	p := NewPipeline(FetalSpec, IdentityScaler{}, &fixedClassifier{id: 0})
	res, err := p.Classify(fetalVector(15))
	require.NoError(t, err)
	assert.Equal(t, 0, res.LabelID)
	assert.Equal(t, UnknownLabel, res.Label)

	named := res.Named(FetalSpec.Features)
	assert.Len(t, named, 15)
	assert.Equal(t, 0.5, named["baseline_value"])
}

func TestModelErrors(t *testing.T) {
	p := NewPipeline(FetalSpec, failingScaler{}, &fixedClassifier{id: 1})
	_, err := p.Classify(fetalVector(15))
	var merr *ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ScalingFailed, merr.Kind)

	p = NewPipeline(FetalSpec, IdentityScaler{}, &fixedClassifier{err: errors.New("bad tree")})
	_, err = p.Classify(fetalVector(15))
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, PredictionFailed, merr.Kind)
}
