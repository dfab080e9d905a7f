package assets

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"wine-dashboard/internal/models"
)

// Manifest is the summary the analysis notebook writes next to its figures.
// Every field is optional.
type Manifest struct {
	TopCountry *string        `yaml:"top_country"`
	TopScore   *float64       `yaml:"top_score"`
	BestValue  *string        `yaml:"best_value_country"`
	Ranking    []RankingEntry `yaml:"ranking"`
	Assets     []models.Asset `yaml:"assets"`
}

type RankingEntry struct {
	Country    string  `yaml:"country"`
	MeanPoints float64 `yaml:"mean_points"`
	Wines      int     `yaml:"wines"`
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &m, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	for i, a := range m.Assets {
		if a.Name == "" || a.Path == "" {
			return nil, fmt.Errorf("asset %d: name and path are required", i)
		}
		switch a.Kind {
		case models.AssetImage, models.AssetHTML:
		case "":
			m.Assets[i].Kind = models.AssetImage
		default:
			return nil, fmt.Errorf("asset %q: unknown kind %q", a.Name, a.Kind)
		}
		if a.Title == "" {
			m.Assets[i].Title = a.Name
		}
	}
	return &m, nil
}

func (m *Manifest) RankingScores() models.Optional[[]models.CountryScore] {
	if m == nil || len(m.Ranking) == 0 {
		return models.None[[]models.CountryScore]()
	}
	out := make([]models.CountryScore, len(m.Ranking))
	for i, e := range m.Ranking {
		out[i] = models.CountryScore{Country: e.Country, MeanPoints: e.MeanPoints, Wines: e.Wines}
	}
	return models.Some(out)
}

func (m *Manifest) TopCountryLabel() models.Optional[string] {
	if m == nil || m.TopCountry == nil || *m.TopCountry == "" {
		return models.None[string]()
	}
	return models.Some(*m.TopCountry)
}

func (m *Manifest) TopScoreValue() models.Optional[float64] {
	if m == nil || m.TopScore == nil {
		return models.None[float64]()
	}
	return models.Some(*m.TopScore)
}

func (m *Manifest) BestValueLabel() models.Optional[string] {
	if m == nil || m.BestValue == nil || *m.BestValue == "" {
		return models.None[string]()
	}
	return models.Some(*m.BestValue)
}

func (m *Manifest) Asset(name string) (models.Asset, bool) {
	if m == nil {
		return models.Asset{}, false
	}
	for _, a := range m.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return models.Asset{}, false
}
