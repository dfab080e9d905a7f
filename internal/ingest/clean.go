package ingest

import (
	"slices"
	"strings"
	"unicode"

	"github.com/aclements/go-moremath/stats"

	"wine-dashboard/internal/models"
)

// EUCountries lists the member states as they are spelled in the dataset.
var EUCountries = []string{
	"Austria", "Belgium", "Bulgaria", "Croatia", "Cyprus", "Czech Republic",
	"Denmark", "Estonia", "Finland", "France", "Germany", "Greece", "Hungary",
	"Ireland", "Italy", "Latvia", "Lithuania", "Luxembourg", "Malta",
	"Netherlands", "Poland", "Portugal", "Romania", "Slovakia", "Slovenia",
	"Spain", "Sweden",
}

func IsEU(country string) bool {
	return slices.Contains(EUCountries, country)
}

// Report describes what cleaning did to the raw rows.
type Report struct {
	Rows        int     `json:"rows"`
	NonEU       int     `json:"non_eu"`
	Imputed     int     `json:"imputed"`
	NonPositive int     `json:"non_positive"`
	MedianPrice float64 `json:"median_price"`
	Kept        int     `json:"kept"`
}

// Clean keeps EU rows, fills missing prices with the median EU price and
// drops rows whose price is not positive.
func Clean(rows []Row) ([]models.Record, Report) {
	report := Report{Rows: len(rows)}

	eu := make([]Row, 0, len(rows))
	var known []float64
	for _, r := range rows {
		if !IsEU(r.Country) {
			report.NonEU++
			continue
		}
		eu = append(eu, r)
		if r.Price != nil {
			known = append(known, *r.Price)
		}
	}

	if len(known) > 0 {
		slices.Sort(known)
		report.MedianPrice = stats.Sample{Xs: known, Sorted: true}.Quantile(0.5)
	}

	records := make([]models.Record, 0, len(eu))
	for _, r := range eu {
		price := report.MedianPrice
		if r.Price != nil {
			price = *r.Price
		} else {
			report.Imputed++
		}
		if price <= 0 {
			report.NonPositive++
			continue
		}
		records = append(records, models.Record{
			Title:       normaliseText(r.Title),
			Country:     r.Country,
			Province:    normaliseText(r.Province),
			Region:      normaliseText(r.Region),
			Winery:      normaliseText(r.Winery),
			Variety:     normaliseText(r.Variety),
			Designation: normaliseText(r.Designation),
			Points:      r.Points,
			Price:       price,
		})
	}

	report.Kept = len(records)
	return records, report
}

// normaliseText collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
