package pipeline

import (
	"slices"

	"wine-dashboard/internal/models"
)

// Options computes the values still selectable in each facet. The facets
// form a chain, country then winery then variety: countries always come
// from the full set, wineries from records in the selected countries, and
// varieties from records in the selected countries and wineries.
func Options(records []models.Record, c models.FilterCriteria) models.FacetOptions {
	countrySel := newSet(c.Countries)
	winerySel := newSet(c.Wineries)

	countries := make(map[string]struct{})
	wineries := make(map[string]struct{})
	varieties := make(map[string]struct{})

	for _, r := range records {
		countries[r.Country] = struct{}{}
		if !countrySel.allows(r.Country) {
			continue
		}
		wineries[r.Winery] = struct{}{}
		if !winerySel.allows(r.Winery) {
			continue
		}
		varieties[r.Variety] = struct{}{}
	}

	return models.FacetOptions{
		Countries: sortedKeys(countries),
		Wineries:  sortedKeys(wineries),
		Varieties: sortedKeys(varieties),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
