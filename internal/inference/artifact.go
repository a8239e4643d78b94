package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type scalerArtifact struct {
	Kind  string    `json:"kind" yaml:"kind"`
	Mean  []float64 `json:"mean" yaml:"mean"`
	Min   []float64 `json:"min" yaml:"min"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

type treeArtifact struct {
	ChildrenLeft  []int       `json:"children_left" yaml:"children_left"`
	ChildrenRight []int       `json:"children_right" yaml:"children_right"`
	Feature       []int       `json:"feature" yaml:"feature"`
	Threshold     []float64   `json:"threshold" yaml:"threshold"`
	Value         [][]float64 `json:"value" yaml:"value"`
}

type classifierArtifact struct {
	Kind         string         `json:"kind" yaml:"kind"`
	Classes      []int          `json:"classes" yaml:"classes"`
	Coef         [][]float64    `json:"coef" yaml:"coef"`
	Intercept    []float64      `json:"intercept" yaml:"intercept"`
	Trees        []treeArtifact `json:"trees" yaml:"trees"`
	treeArtifact `yaml:",inline"`
}

// LoadScaler reads a fitted scaler exported as JSON or YAML.
func LoadScaler(path string) (Scaler, error) {
	var a scalerArtifact
	if err := decodeArtifact(path, &a); err != nil {
		return nil, err
	}
	return a.build()
}

func (a scalerArtifact) build() (Scaler, error) {
	switch strings.ToLower(a.Kind) {
	case "standard":
		if len(a.Mean) == 0 || len(a.Mean) != len(a.Scale) {
			return nil, fmt.Errorf("standard scaler needs mean and scale of equal length")
		}
		return StandardScaler{Mean: a.Mean, Scale: a.Scale}, nil
	case "minmax":
		if len(a.Min) == 0 || len(a.Min) != len(a.Scale) {
			return nil, fmt.Errorf("minmax scaler needs min and scale of equal length")
		}
		return MinMaxScaler{Min: a.Min, Scale: a.Scale}, nil
	case "identity", "":
		return IdentityScaler{}, nil
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", a.Kind)
	}
}

// LoadClassifier reads a fitted classifier exported as JSON or YAML.
func LoadClassifier(path string) (Classifier, error) {
	var a classifierArtifact
	if err := decodeArtifact(path, &a); err != nil {
		return nil, err
	}
	return a.build()
}

func (a classifierArtifact) build() (Classifier, error) {
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("classifier artifact lists no classes")
	}
	switch strings.ToLower(a.Kind) {
	case "linear":
		return LinearClassifier{Classes: a.Classes, Coef: a.Coef, Intercept: a.Intercept}, nil
	case "tree":
		return a.treeArtifact.classifier(a.Classes), nil
	case "forest":
		if len(a.Trees) == 0 {
			return nil, fmt.Errorf("forest artifact has no trees")
		}
		trees := make([]TreeClassifier, 0, len(a.Trees))
		for _, t := range a.Trees {
			trees = append(trees, t.classifier(a.Classes))
		}
		return ForestClassifier{Classes: a.Classes, Trees: trees}, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", a.Kind)
	}
}

func (t treeArtifact) classifier(classes []int) TreeClassifier {
	return TreeClassifier{
		Classes:       classes,
		ChildrenLeft:  t.ChildrenLeft,
		ChildrenRight: t.ChildrenRight,
		Feature:       t.Feature,
		Threshold:     t.Threshold,
		Value:         t.Value,
	}
}

func decodeArtifact(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, v)
	case ".json":
		err = json.Unmarshal(raw, v)
	default:
		return fmt.Errorf("artifact %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
	if err != nil {
		return fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return nil
}
