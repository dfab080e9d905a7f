package pipeline

import (
	"cmp"
	"fmt"
	"slices"

	"wine-dashboard/internal/models"
)

const (
	MinLimit     = 10
	MaxLimit     = 500
	DefaultLimit = 50
)

// Sort returns a stably sorted copy. Records with equal keys keep their
// relative order. An unknown spec is a programming error and panics.
func Sort(records []models.Record, spec models.SortSpec) []models.Record {
	less := comparator(spec)
	out := slices.Clone(records)
	slices.SortStableFunc(out, less)
	return out
}

func comparator(spec models.SortSpec) func(a, b models.Record) int {
	switch spec {
	case models.SortPointsDesc:
		return func(a, b models.Record) int { return cmp.Compare(b.Points, a.Points) }
	case models.SortPointsAsc:
		return func(a, b models.Record) int { return cmp.Compare(a.Points, b.Points) }
	case models.SortPriceDesc:
		return func(a, b models.Record) int { return cmp.Compare(b.Price, a.Price) }
	case models.SortPriceAsc:
		return func(a, b models.Record) int { return cmp.Compare(a.Price, b.Price) }
	case models.SortPointsPerEuroDesc:
		return func(a, b models.Record) int { return cmp.Compare(b.PointsPerEuro(), a.PointsPerEuro()) }
	default:
		panic(fmt.Sprintf("pipeline: unknown sort spec %q", spec))
	}
}

// ClampLimit bounds a row limit coming from the UI to [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	return min(max(limit, MinLimit), MaxLimit)
}

// Paginate returns the first min(limit, len(records)) records.
func Paginate(records []models.Record, limit int) []models.Record {
	n := min(max(limit, 0), len(records))
	return records[:n:n]
}

// TopByPoints returns the n highest scoring records. Ties keep insertion
// order.
func TopByPoints(records []models.Record, n int) []models.Record {
	if n <= 0 {
		return []models.Record{}
	}
	return Paginate(Sort(records, models.SortPointsDesc), n)
}
