package inference

import "fmt"

type ValidationKind string

const (
	WrongArity ValidationKind = "wrong_arity"
	NotNumeric ValidationKind = "not_numeric"
	Missing    ValidationKind = "missing"
)

// ValidationError reports input that never reached the model.
type ValidationError struct {
	Kind     ValidationKind
	Expected int
	Actual   int
	Index    int
	Field    string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case WrongArity:
		return fmt.Sprintf("invalid feature length, expected %d got %d", e.Expected, e.Actual)
	case NotNumeric:
		if e.Field != "" {
			return fmt.Sprintf("feature %q is not numeric", e.Field)
		}
		return fmt.Sprintf("feature %d is not numeric", e.Index)
	case Missing:
		return fmt.Sprintf("missing required field %q", e.Field)
	default:
		return "invalid features"
	}
}

type ModelKind string

const (
	ScalingFailed    ModelKind = "scaling_failed"
	PredictionFailed ModelKind = "prediction_failed"
)

type ModelError struct {
	Kind ModelKind
	Err  error
}

func (e *ModelError) Error() string {
	switch e.Kind {
	case ScalingFailed:
		return fmt.Sprintf("feature scaling failed: %v", e.Err)
	default:
		return fmt.Sprintf("prediction failed: %v", e.Err)
	}
}

func (e *ModelError) Unwrap() error { return e.Err }
