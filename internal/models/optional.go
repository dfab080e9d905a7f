package models

import "encoding/json"

// Optional carries a value that upstream may not have provided. An
// unavailable Optional encodes as JSON null.
type Optional[T any] struct {
	Value     T
	Available bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Available: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Available
}

func (o Optional[T]) OrElse(fallback T) T {
	if o.Available {
		return o.Value
	}
	return fallback
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Available {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetHTML  AssetKind = "html"
)

type Asset struct {
	Name  string    `json:"name" yaml:"name"`
	Title string    `json:"title" yaml:"title"`
	Kind  AssetKind `json:"kind" yaml:"kind"`
	Path  string    `json:"-" yaml:"path"`
}

// Overview is the landing slide. Each field is independently available so
// the page can show a placeholder per section.
type Overview struct {
	Ranking    Optional[[]CountryScore] `json:"ranking"`
	TopCountry Optional[string]         `json:"top_country"`
	TopScore   Optional[float64]        `json:"top_score"`
	BestValue  Optional[string]         `json:"best_value"`
	Assets     []Asset                  `json:"assets"`
	Records    int                      `json:"records"`
}
