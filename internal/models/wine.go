package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Record struct {
	Title       string  `json:"title"`
	Country     string  `json:"country"`
	Province    string  `json:"province,omitempty"`
	Region      string  `json:"region,omitempty"`
	Winery      string  `json:"winery"`
	Variety     string  `json:"variety,omitempty"`
	Designation string  `json:"designation,omitempty"`
	Points      int     `json:"points"`
	Price       float64 `json:"price"`
}

// PointsPerEuro is zero for records without a positive price; those never
// survive cleaning.
func (r Record) PointsPerEuro() float64 {
	if r.Price <= 0 {
		return 0
	}
	return float64(r.Points) / r.Price
}

type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r FloatRange) Inverted() bool { return r.Min > r.Max }

func (r FloatRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r IntRange) Inverted() bool { return r.Min > r.Max }

func (r IntRange) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// FilterCriteria is the user's current selection. The zero value matches
// every record.
type FilterCriteria struct {
	Search    string      `json:"search,omitempty"`
	Countries []string    `json:"countries,omitempty"`
	Wineries  []string    `json:"wineries,omitempty"`
	Varieties []string    `json:"varieties,omitempty"`
	Price     *FloatRange `json:"price,omitempty"`
	Points    *IntRange   `json:"points,omitempty"`
}

type SortSpec string

const (
	SortPointsDesc        SortSpec = "points_desc"
	SortPointsAsc         SortSpec = "points_asc"
	SortPriceDesc         SortSpec = "price_desc"
	SortPriceAsc          SortSpec = "price_asc"
	SortPointsPerEuroDesc SortSpec = "points_per_euro_desc"
)

var SortSpecs = []SortSpec{
	SortPointsDesc,
	SortPointsAsc,
	SortPriceDesc,
	SortPriceAsc,
	SortPointsPerEuroDesc,
}

func (s SortSpec) Valid() bool {
	return slices.Contains(SortSpecs, s)
}

func (s SortSpec) Label() string {
	switch s {
	case SortPointsDesc:
		return "Points (high to low)"
	case SortPointsAsc:
		return "Points (low to high)"
	case SortPriceDesc:
		return "Price (high to low)"
	case SortPriceAsc:
		return "Price (low to high)"
	case SortPointsPerEuroDesc:
		return "Best value"
	default:
		return string(s)
	}
}

// ParseSortSpec accepts the canonical names. An empty string selects
// points descending.
func ParseSortSpec(s string) (SortSpec, error) {
	if s == "" {
		return SortPointsDesc, nil
	}
	spec := SortSpec(strings.ToLower(strings.TrimSpace(s)))
	if !spec.Valid() {
		return "", fmt.Errorf("unknown sort %q", s)
	}
	return spec, nil
}

type Query struct {
	Criteria FilterCriteria `json:"criteria"`
	Sort     SortSpec       `json:"sort"`
	Limit    int            `json:"limit"`
}

// Key is a canonical representation of the query. Selection order does not
// matter. Every text value is quoted, so separators inside a facet value or
// the search text cannot stand in for another field.
func (q Query) Key() string {
	var b strings.Builder
	c := q.Criteria
	fmt.Fprintf(&b, "s=%s", strconv.Quote(strings.ToLower(c.Search)))
	writeSet(&b, "c", c.Countries)
	writeSet(&b, "w", c.Wineries)
	writeSet(&b, "v", c.Varieties)
	if c.Price != nil {
		fmt.Fprintf(&b, "|p=%g:%g", c.Price.Min, c.Price.Max)
	}
	if c.Points != nil {
		fmt.Fprintf(&b, "|pt=%d:%d", c.Points.Min, c.Points.Max)
	}
	fmt.Fprintf(&b, "|sort=%s|limit=%d", strconv.Quote(string(q.Sort)), q.Limit)
	return b.String()
}

func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	slices.Sort(quoted)
	fmt.Fprintf(b, "|%s=[%s]", name, strings.Join(quoted, ","))
}

type Summary struct {
	Count      int               `json:"count"`
	MeanPrice  Optional[float64] `json:"mean_price"`
	MeanPoints Optional[float64] `json:"mean_points"`
	MaxPrice   Optional[float64] `json:"max_price"`
	MaxPoints  Optional[int]     `json:"max_points"`
}

type ViewResult struct {
	Records []Record `json:"records"`
	Matched int      `json:"matched"`
	Shown   int      `json:"shown"`
	Summary Summary  `json:"summary"`
}

type CountryScore struct {
	Country    string  `json:"country"`
	MeanPoints float64 `json:"mean_points"`
	Wines      int     `json:"wines"`
}

type FacetOptions struct {
	Countries []string `json:"countries"`
	Wineries  []string `json:"wineries"`
	Varieties []string `json:"varieties"`
}
