package models

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// QueryInput is user input before validation. Query parameters, Datastar
// signals and CLI flags are all reduced to it.
type QueryInput struct {
	Search    string
	Countries []string
	Wineries  []string
	Varieties []string
	PriceMin  string
	PriceMax  string
	PointsMin string
	PointsMax string
	Sort      string
	Limit     string
}

// ParamError names the input that failed validation.
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// QueryInputFromValues reads the API query string. Facets repeat:
// ?country=Italy&country=Spain.
func QueryInputFromValues(v url.Values) QueryInput {
	return QueryInput{
		Search:    v.Get("search"),
		Countries: v["country"],
		Wineries:  v["winery"],
		Varieties: v["variety"],
		PriceMin:  v.Get("price_min"),
		PriceMax:  v.Get("price_max"),
		PointsMin: v.Get("points_min"),
		PointsMax: v.Get("points_max"),
		Sort:      v.Get("sort"),
		Limit:     v.Get("limit"),
	}
}

// Build validates the input. A range with only one bound is open on the
// other side.
func (raw QueryInput) Build(defaultLimit int) (Query, error) {
	q := Query{
		Criteria: FilterCriteria{
			Search:    strings.TrimSpace(raw.Search),
			Countries: compact(raw.Countries),
			Wineries:  compact(raw.Wineries),
			Varieties: compact(raw.Varieties),
		},
		Limit: defaultLimit,
	}

	sort, err := ParseSortSpec(raw.Sort)
	if err != nil {
		return Query{}, &ParamError{"sort", err}
	}
	q.Sort = sort

	if raw.Limit != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(raw.Limit))
		if err != nil {
			return Query{}, &ParamError{"limit", err}
		}
		q.Limit = limit
	}

	price, err := floatRange(raw.PriceMin, raw.PriceMax)
	if err != nil {
		return Query{}, &ParamError{"price", err}
	}
	q.Criteria.Price = price

	points, err := intRange(raw.PointsMin, raw.PointsMax)
	if err != nil {
		return Query{}, &ParamError{"points", err}
	}
	q.Criteria.Points = points

	return q, nil
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func floatRange(minText, maxText string) (*FloatRange, error) {
	minText, maxText = strings.TrimSpace(minText), strings.TrimSpace(maxText)
	if minText == "" && maxText == "" {
		return nil, nil
	}
	r := &FloatRange{Min: 0, Max: math.Inf(1)}
	if minText != "" {
		v, err := strconv.ParseFloat(minText, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("min %q is not a number", minText)
		}
		r.Min = v
	}
	if maxText != "" {
		v, err := strconv.ParseFloat(maxText, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("max %q is not a number", maxText)
		}
		r.Max = v
	}
	return r, nil
}

func intRange(minText, maxText string) (*IntRange, error) {
	minText, maxText = strings.TrimSpace(minText), strings.TrimSpace(maxText)
	if minText == "" && maxText == "" {
		return nil, nil
	}
	r := &IntRange{Min: 0, Max: 100}
	if minText != "" {
		v, err := strconv.Atoi(minText)
		if err != nil {
			return nil, fmt.Errorf("min %q is not an integer", minText)
		}
		r.Min = v
	}
	if maxText != "" {
		v, err := strconv.Atoi(maxText)
		if err != nil {
			return nil, fmt.Errorf("max %q is not an integer", maxText)
		}
		r.Max = v
	}
	return r, nil
}
