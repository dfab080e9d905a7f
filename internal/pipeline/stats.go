package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/aclements/go-moremath/stats"

	"wine-dashboard/internal/models"
)

// Summarize computes mean and max of price and points. Statistics over an
// empty set are reported as unavailable rather than computed.
func Summarize(records []models.Record) models.Summary {
	summary := models.Summary{Count: len(records)}
	if len(records) == 0 {
		return summary
	}

	prices := make([]float64, len(records))
	points := make([]float64, len(records))
	maxPoints := records[0].Points
	for i, r := range records {
		prices[i] = r.Price
		points[i] = float64(r.Points)
		maxPoints = max(maxPoints, r.Points)
	}

	priceSample := stats.Sample{Xs: prices}
	_, maxPrice := priceSample.Bounds()

	summary.MeanPrice = models.Some(priceSample.Mean())
	summary.MeanPoints = models.Some(stats.Mean(points))
	summary.MaxPrice = models.Some(maxPrice)
	summary.MaxPoints = models.Some(maxPoints)
	return summary
}

type countryAcc struct {
	points float64
	value  float64
	n      int
}

func groupByCountry(records []models.Record) map[string]*countryAcc {
	groups := make(map[string]*countryAcc)
	for _, r := range records {
		if r.Country == "" {
			continue
		}
		acc := groups[r.Country]
		if acc == nil {
			acc = &countryAcc{}
			groups[r.Country] = acc
		}
		acc.points += float64(r.Points)
		acc.value += r.PointsPerEuro()
		acc.n++
	}
	return groups
}

// RankCountries orders countries by mean points, highest first. Equal means
// are ordered by country name.
func RankCountries(records []models.Record) []models.CountryScore {
	groups := groupByCountry(records)
	result := make([]models.CountryScore, 0, len(groups))
	for country, acc := range groups {
		result = append(result, models.CountryScore{
			Country:    country,
			MeanPoints: acc.points / float64(acc.n),
			Wines:      acc.n,
		})
	}
	slices.SortFunc(result, func(a, b models.CountryScore) int {
		if c := cmp.Compare(b.MeanPoints, a.MeanPoints); c != 0 {
			return c
		}
		return strings.Compare(a.Country, b.Country)
	})
	return result
}

// BestValue names the country with the highest mean points per euro.
func BestValue(records []models.Record) models.Optional[string] {
	groups := groupByCountry(records)
	if len(groups) == 0 {
		return models.None[string]()
	}

	var best string
	var bestMean float64
	for country, acc := range groups {
		mean := acc.value / float64(acc.n)
		if best == "" || mean > bestMean || (mean == bestMean && country < best) {
			best, bestMean = country, mean
		}
	}
	return models.Some(best)
}

// Run executes the full pipeline: filter, summarize the filtered set, sort,
// then truncate to the clamped limit. A zero Sort means points descending.
func Run(records []models.Record, q models.Query) models.ViewResult {
	spec := q.Sort
	if spec == "" {
		spec = models.SortPointsDesc
	}

	filtered := Filter(records, q.Criteria)
	page := Paginate(Sort(filtered, spec), ClampLimit(q.Limit))

	return models.ViewResult{
		Records: page,
		Matched: len(filtered),
		Shown:   len(page),
		Summary: Summarize(filtered),
	}
}
