package inference

import (
	"errors"
	"fmt"
)

// Classifier maps a scaled feature vector to a class label id.
type Classifier interface {
	Predict(x []float64) (int, error)
}

// LinearClassifier is a multinomial or one-vs-rest linear model. A single
// coefficient row with two classes is treated as a binary decision function.
type LinearClassifier struct {
	Classes   []int
	Coef      [][]float64
	Intercept []float64
}

func (c LinearClassifier) Predict(x []float64) (int, error) {
	if len(c.Coef) == 0 || len(c.Coef) != len(c.Intercept) {
		return 0, errors.New("linear model has inconsistent coefficients")
	}
	scores := make([]float64, len(c.Coef))
	for k, row := range c.Coef {
		if len(row) != len(x) {
			return 0, fmt.Errorf("linear model expects %d features, got %d", len(row), len(x))
		}
		s := c.Intercept[k]
		for i, w := range row {
			s += w * x[i]
		}
		scores[k] = s
	}

	if len(scores) == 1 {
		if len(c.Classes) != 2 {
			return 0, errors.New("binary linear model needs exactly two classes")
		}
		if scores[0] > 0 {
			return c.Classes[1], nil
		}
		return c.Classes[0], nil
	}
	if len(c.Classes) != len(scores) {
		return 0, fmt.Errorf("linear model has %d score rows for %d classes", len(scores), len(c.Classes))
	}
	return c.Classes[argmax(scores)], nil
}

// TreeClassifier walks a flattened binary decision tree. Leaves have
// ChildrenLeft[i] == -1 and Value[i] holds per-class sample weights.
type TreeClassifier struct {
	Classes       []int
	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	Value         [][]float64
}

func (t TreeClassifier) Predict(x []float64) (int, error) {
	dist, err := t.leaf(x)
	if err != nil {
		return 0, err
	}
	if len(dist) != len(t.Classes) {
		return 0, fmt.Errorf("tree leaf has %d values for %d classes", len(dist), len(t.Classes))
	}
	return t.Classes[argmax(dist)], nil
}

func (t TreeClassifier) leaf(x []float64) ([]float64, error) {
	n := len(t.ChildrenLeft)
	if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return nil, errors.New("tree arrays have inconsistent lengths")
	}
	node := 0
	// Each step moves strictly deeper, so n steps bound any well-formed tree.
	for steps := 0; steps <= n; steps++ {
		left := t.ChildrenLeft[node]
		if left == -1 {
			return t.Value[node], nil
		}
		f := t.Feature[node]
		if f < 0 || f >= len(x) {
			return nil, fmt.Errorf("tree node %d splits on feature %d of %d", node, f, len(x))
		}
		next := t.ChildrenRight[node]
		if x[f] <= t.Threshold[node] {
			next = left
		}
		if next <= 0 || next >= n {
			return nil, fmt.Errorf("tree node %d points to invalid child %d", node, next)
		}
		node = next
	}
	return nil, errors.New("tree contains a cycle")
}

// ForestClassifier averages normalized leaf distributions across trees.
type ForestClassifier struct {
	Classes []int
	Trees   []TreeClassifier
}

func (f ForestClassifier) Predict(x []float64) (int, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("forest has no trees")
	}
	total := make([]float64, len(f.Classes))
	for i, tree := range f.Trees {
		dist, err := tree.leaf(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		if len(dist) != len(total) {
			return 0, fmt.Errorf("tree %d has %d values for %d classes", i, len(dist), len(total))
		}
		sum := 0.0
		for _, v := range dist {
			sum += v
		}
		if sum == 0 {
			continue
		}
		for k, v := range dist {
			total[k] += v / sum
		}
	}
	return f.Classes[argmax(total)], nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
