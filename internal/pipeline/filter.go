package pipeline

import (
	"math"
	"strings"

	"golang.org/x/text/cases"

	"wine-dashboard/internal/models"
)

// Filter returns the records matching every active facet, in their original
// order. Predicates run in a fixed order: search, country, winery, variety,
// price, points. A facet with an empty selection does not constrain.
// An inverted range matches nothing.
func Filter(records []models.Record, c models.FilterCriteria) []models.Record {
	if len(records) == 0 {
		return []models.Record{}
	}
	if (c.Price != nil && c.Price.Inverted()) || (c.Points != nil && c.Points.Inverted()) {
		return []models.Record{}
	}

	m := newMatcher(c)
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

type matcher struct {
	fold      cases.Caser
	term      string
	countries set
	wineries  set
	varieties set
	price     *models.FloatRange
	points    *models.IntRange
}

// newMatcher builds a fresh Caser per call; Casers carry state and must not
// be shared between goroutines.
func newMatcher(c models.FilterCriteria) *matcher {
	fold := cases.Fold()
	return &matcher{
		fold:      fold,
		term:      fold.String(strings.TrimSpace(c.Search)),
		countries: newSet(c.Countries),
		wineries:  newSet(c.Wineries),
		varieties: newSet(c.Varieties),
		price:     c.Price,
		points:    c.Points,
	}
}

func (m *matcher) match(r models.Record) bool {
	if m.term != "" && !m.matchSearch(r) {
		return false
	}
	if !m.countries.allows(r.Country) {
		return false
	}
	if !m.wineries.allows(r.Winery) {
		return false
	}
	if !m.varieties.allows(r.Variety) {
		return false
	}
	if m.price != nil && !m.price.Contains(r.Price) {
		return false
	}
	if m.points != nil && !m.points.Contains(r.Points) {
		return false
	}
	return true
}

func (m *matcher) matchSearch(r models.Record) bool {
	for _, field := range [...]string{r.Title, r.Winery, r.Variety, r.Province} {
		if field != "" && strings.Contains(m.fold.String(field), m.term) {
			return true
		}
	}
	return false
}

// set is a facet selection. A nil set allows everything.
type set map[string]struct{}

func newSet(values []string) set {
	if len(values) == 0 {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) allows(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

// Sanitize drops records that break the RecordSet invariant: a finite
// positive price and points within [0, 100].
func Sanitize(records []models.Record) (valid []models.Record, dropped int) {
	valid = make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.Price <= 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
			dropped++
			continue
		}
		if r.Points < 0 || r.Points > 100 {
			dropped++
			continue
		}
		valid = append(valid, r)
	}
	return valid, dropped
}
