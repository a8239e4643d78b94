package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump splits on feature 0 at 0.5: left leaf favours class 1, right leaf class 3.
func stump() TreeClassifier {
	return TreeClassifier{
		Classes:       []int{1, 2, 3},
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         [][]float64{{10, 5, 10}, {9, 1, 0}, {1, 4, 10}},
	}
}

func TestTreeClassifier(t *testing.T) {
	tree := stump()
	id, err := tree.Predict([]float64{0.2})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = tree.Predict([]float64{0.9})
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = TreeClassifier{Classes: []int{1}}.Predict([]float64{0})
	assert.Error(t, err)
}

func TestForestClassifierVotes(t *testing.T) {
	leaning := stump()
	leaning.Value = [][]float64{{1, 1, 1}, {0, 10, 0}, {0, 10, 0}}
	forest := ForestClassifier{Classes: []int{1, 2, 3}, Trees: []TreeClassifier{stump(), leaning, leaning}}

	id, err := forest.Predict([]float64{0.2})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestLinearClassifier(t *testing.T) {
	multi := LinearClassifier{
		Classes:   []int{0, 1, 2},
		Coef:      [][]float64{{1, 0}, {0, 1}, {-1, -1}},
		Intercept: []float64{0, 0, 0},
	}
	id, err := multi.Predict([]float64{0.1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = multi.Predict([]float64{1})
	assert.Error(t, err)

	binary := LinearClassifier{Classes: []int{0, 2}, Coef: [][]float64{{1}}, Intercept: []float64{-1}}
	id, err = binary.Predict([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestScalers(t *testing.T) {
	out, err := StandardScaler{Mean: []float64{10, 0}, Scale: []float64{2, 0}}.Transform([]float64{14, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, out)

	out, err = MinMaxScaler{Min: []float64{-1}, Scale: []float64{0.5}}.Transform([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, out)

	_, err = StandardScaler{Mean: []float64{1}, Scale: []float64{1}}.Transform([]float64{1, 2})
	assert.Error(t, err)
}

func TestLoadArtifactsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	scalerPath := filepath.Join(dir, "scaler.yaml")
	modelPath := filepath.Join(dir, "model.json")

	require.NoError(t, os.WriteFile(scalerPath, []byte("kind: standard\nmean: [0, 0]\nscale: [1, 1]\n"), 0o600))
	require.NoError(t, os.WriteFile(modelPath, []byte(`{
		"kind": "tree",
		"classes": [0, 1, 2],
		"children_left": [1, -1, -1],
		"children_right": [2, -1, -1],
		"feature": [1, -2, -2],
		"threshold": [140, -2, -2],
		"value": [[1, 1, 1], [5, 1, 0], [0, 1, 5]]
	}`), 0o600))

	spec := Spec{Name: "demo", Features: []string{"a", "b"}, Labels: MaternalSpec.Labels}
	p, err := LoadPipeline(spec, modelPath, scalerPath)
	require.NoError(t, err)

	res, err := p.Classify([]any{30.0, 160.0})
	require.NoError(t, err)
	assert.Equal(t, "Pathological", res.Label)
}

func TestLoadPipelineRejectsShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	scalerPath := filepath.Join(dir, "scaler.json")
	modelPath := filepath.Join(dir, "model.yml")
	require.NoError(t, os.WriteFile(scalerPath, []byte(`{"kind":"standard","mean":[0],"scale":[1]}`), 0o600))
	require.NoError(t, os.WriteFile(modelPath, []byte("kind: linear\nclasses: [0, 1]\ncoef: [[1]]\nintercept: [0]\n"), 0o600))

	_, err := LoadPipeline(FetalSpec, modelPath, scalerPath)
	require.Error(t, err)

	var merr *ModelError
	assert.ErrorAs(t, err, &merr)
}

func TestLoadArtifactUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.sav")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o600))
	_, err := LoadClassifier(path)
	assert.ErrorContains(t, err, "unsupported extension")
}
