package models

// FieldState tells whether a model output field was present and well-formed
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldInvalid
	FieldValid
)

func (s FieldState) String() string {
	switch s {
	case FieldValid:
		return "valid"
	case FieldInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Field is one block of structured model output.
// Value is meaningful only when State is FieldValid.
type Field[T any] struct {
	State FieldState
	Value T
}

// Valid wraps a well-formed value
func Valid[T any](v T) Field[T] {
	return Field[T]{State: FieldValid, Value: v}
}

// Invalid marks a field that was present but malformed
func Invalid[T any]() Field[T] {
	return Field[T]{State: FieldInvalid}
}

func (f Field[T]) IsValid() bool {
	return f.State == FieldValid
}

// Bands are model-proposed valuation bands aligned with the chart price line
type Bands struct {
	Upper []float64 `validate:"required,min=1,dive,gt=0"`
	Mid   []float64 `validate:"required,min=1,dive,gt=0"`
	Lower []float64 `validate:"required,min=1,dive,gt=0"`
}

// ModelOutput is a parsed model response. Fields the model left out stay Absent.
type ModelOutput struct {
	Industry  Field[Industry]
	Technical Field[Technical]
	Dividend  Field[Dividend]
	News      Field[[]NewsItem]
	Calendar  Field[[]CalendarEvent]
	Bands     Field[Bands]
}

// Usable reports whether at least one block is well-formed
func (o *ModelOutput) Usable() bool {
	return o.Industry.IsValid() ||
		o.Technical.IsValid() ||
		o.Dividend.IsValid() ||
		o.News.IsValid() ||
		o.Calendar.IsValid() ||
		o.Bands.IsValid()
}
