package inference

import "fmt"

var MaternalSpec = Spec{
	Name:     "maternal",
	Features: []string{"age", "systolic_bp", "diastolic_bp", "blood_glucose", "body_temp", "heart_rate"},
	Labels:   map[int]string{0: "Normal", 1: "Suspect", 2: "Pathological"},
}

var FetalSpec = Spec{
	Name: "fetal",
	Features: []string{
		"baseline_value",
		"accelerations",
		"fetal_movement",
		"uterine_contractions",
		"light_decelerations",
		"severe_decelerations",
		"prolonged_decelerations",
		"abnormal_short_term_variability",
		"mean_value_of_short_term_variability",
		"percentage_of_time_with_abnormal_long_term_variability",
		"mean_value_of_long_term_variability",
		"histogram_width",
		"histogram_min",
		"histogram_max",
		"histogram_number_of_peaks",
	},
	Labels: map[int]string{1: "Normal", 2: "Suspect", 3: "Pathological"},
}

// LoadPipeline loads the scaler and classifier artifacts for spec and checks
// them with a zero vector so shape mismatches fail at startup.
func LoadPipeline(spec Spec, modelPath, scalerPath string) (*Pipeline, error) {
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, fmt.Errorf("%s scaler: %w", spec.Name, err)
	}
	classifier, err := LoadClassifier(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", spec.Name, err)
	}
	p := NewPipeline(spec, scaler, classifier)
	if _, err := p.run(make([]float64, len(spec.Features))); err != nil {
		return nil, fmt.Errorf("%s artifacts do not fit %d features: %w", spec.Name, len(spec.Features), err)
	}
	return p, nil
}
