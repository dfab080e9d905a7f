package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"slices"

	"github.com/a-h/templ"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

// Page is the state the shell renders. Result is nil when no RecordSet is
// loaded.
type Page struct {
	Title    string
	Features config.FeatureConfig
	Slide    int
	Overview models.Overview
	Options  models.FacetOptions
	Query    models.Query
	Result   *models.ViewResult
}

func (p Page) slides() []Slide {
	return Slides(p.Features)
}

func (p Page) current() Slide {
	slides := p.slides()
	return slides[NormalizeSlide(p.Slide, len(slides))]
}

// Signals is the initial Datastar signal set. Range bounds are strings so
// empty inputs mean "no bound".
func (p Page) Signals() map[string]any {
	signals := map[string]any{
		"slide":     NormalizeSlide(p.Slide, len(p.slides())),
		"search":    p.Query.Criteria.Search,
		"countries": nonNil(p.Query.Criteria.Countries),
		"wineries":  nonNil(p.Query.Criteria.Wineries),
		"varieties": nonNil(p.Query.Criteria.Varieties),
		"priceMin":  "",
		"priceMax":  "",
		"pointsMin": "",
		"pointsMax": "",
		"sort":      string(p.Query.Sort),
		"limit":     p.Query.Limit,
	}
	if r := p.Query.Criteria.Price; r != nil {
		signals["priceMin"] = fmt.Sprintf("%g", r.Min)
		if !math.IsInf(r.Max, 1) {
			signals["priceMax"] = fmt.Sprintf("%g", r.Max)
		}
	}
	if r := p.Query.Criteria.Points; r != nil {
		signals["pointsMin"] = fmt.Sprint(r.Min)
		signals["pointsMax"] = fmt.Sprint(r.Max)
	}
	return signals
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func Dashboard(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := json.Marshal(p.Signals())
		if err != nil {
			return fmt.Errorf("encode signals: %w", err)
		}

		h := &htmlWriter{w: w}
		h.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		h.rawf("<title>%s</title>\n", esc(p.Title))
		h.rawf("<script type=\"module\" src=\"%s\"></script>\n", datastarScript)
		h.raw(styles)
		h.raw("</head>\n")
		h.rawf("<body data-signals='%s'>\n", esc(string(signals)))
		h.rawf("<header><h1>%s</h1></header>\n", esc(p.Title))
		if h.err != nil {
			return h.err
		}

		if p.Features.Carousel {
			if err := carousel(p).Render(ctx, w); err != nil {
				return err
			}
		} else {
			h.raw("<main id=\"sections\">\n")
			for _, s := range p.slides() {
				if h.err != nil {
					return h.err
				}
				if err := section(p, s).Render(ctx, w); err != nil {
					return err
				}
			}
			h.raw("</main>\n")
		}

		h.raw("</body>\n</html>\n")
		return h.err
	})
}

func carousel(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		slides := p.slides()
		h.raw("<nav class=\"carousel-nav\">\n")
		h.raw("<button data-on-click=\"$slide = $slide - 1; @get('/sse/slide')\">&larr; Previous</button>\n")
		for i, s := range slides {
			h.rawf("<button data-on-click=\"$slide = %d; @get('/sse/slide')\" data-class-active=\"$slide == %d\">%s</button>\n", i, i, esc(s.Title))
		}
		h.raw("<button data-on-click=\"$slide = $slide + 1; @get('/sse/slide')\">Next &rarr;</button>\n")
		h.raw("</nav>\n")
		if h.err != nil {
			return h.err
		}
		return SlideView(p).Render(ctx, w)
	})
}

// SlideView is the element /sse/slide replaces.
func SlideView(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		s := p.current()
		h.rawf("<main id=\"slide\" data-slide=\"%s\">\n", s.Kind)
		if h.err != nil {
			return h.err
		}
		if err := section(p, s).Render(ctx, w); err != nil {
			return err
		}
		h.raw("</main>\n")
		return h.err
	})
}

func section(p Page, s Slide) templ.Component {
	switch s.Kind {
	case SlideExplorer:
		return Explorer(p)
	case SlideGallery:
		return Gallery(p.Overview.Assets)
	default:
		return Overview(p.Overview)
	}
}

func placeholder(h *htmlWriter, id, message string) {
	h.rawf("<p id=\"%s\" class=\"placeholder\">%s</p>\n", id, esc(message))
}

func Overview(ov models.Overview) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<section id=\"overview\">\n<h2>EU wine overview</h2>\n")

		h.raw("<div class=\"cards\">\n")
		card(h, "Top-scoring country", ov.TopCountry, func(v string) string { return v })
		card(h, "Top score", ov.TopScore, func(v float64) string { return fmt.Sprintf("%.2f", v) })
		card(h, "Best value", ov.BestValue, func(v string) string { return v })
		h.rawf("<div class=\"card\"><span class=\"label\">Wines loaded</span><strong>%d</strong></div>\n", ov.Records)
		h.raw("</div>\n")

		if ranking, ok := ov.Ranking.Get(); ok && len(ranking) > 0 {
			h.raw("<table id=\"ranking\" class=\"modern-table\">\n")
			h.raw("<thead><tr><th>#</th><th>Country</th><th>Mean points</th><th>Wines</th></tr></thead>\n<tbody>\n")
			for i, c := range ranking {
				h.rawf("<tr><td>%d</td><td>%s</td><td>%.2f</td><td>%d</td></tr>\n", i+1, esc(c.Country), c.MeanPoints, c.Wines)
			}
			h.raw("</tbody>\n</table>\n")
		} else {
			placeholder(h, "ranking", "No ranking data available.")
		}

		h.raw("</section>\n")
		return h.err
	})
}

func card[T any](h *htmlWriter, label string, v models.Optional[T], format func(T) string) {
	h.rawf("<div class=\"card\"><span class=\"label\">%s</span>", esc(label))
	if value, ok := v.Get(); ok {
		h.rawf("<strong>%s</strong>", esc(format(value)))
	} else {
		h.raw("<em class=\"placeholder\">not available</em>")
	}
	h.raw("</div>\n")
}

func Explorer(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<section id=\"explorer\">\n<h2>Explore wines</h2>\n")
		h.raw("<form class=\"filters\" data-on-change=\"@get('/sse/explorer')\" onsubmit=\"return false\">\n")
		if p.Features.Search {
			h.raw("<label>Search <input type=\"search\" data-bind-search data-on-input__debounce.300ms=\"@get('/sse/explorer')\" placeholder=\"Title, winery, variety or province\"></label>\n")
		}
		h.raw("<div class=\"ranges\">\n")
		h.raw("<label>Price from <input type=\"number\" min=\"0\" step=\"any\" data-bind-price-min></label>\n")
		h.raw("<label>to <input type=\"number\" min=\"0\" step=\"any\" data-bind-price-max></label>\n")
		h.raw("<label>Points from <input type=\"number\" min=\"0\" max=\"100\" data-bind-points-min></label>\n")
		h.raw("<label>to <input type=\"number\" min=\"0\" max=\"100\" data-bind-points-max></label>\n")
		h.raw("</div>\n")
		h.raw("<label>Sort <select data-bind-sort>\n")
		for _, spec := range models.SortSpecs {
			selected := ""
			if spec == p.Query.Sort {
				selected = " selected"
			}
			h.rawf("<option value=\"%s\"%s>%s</option>\n", spec, selected, esc(spec.Label()))
		}
		h.raw("</select></label>\n")
		h.rawf("<label>Show <input type=\"number\" min=\"10\" max=\"500\" step=\"10\" data-bind-limit value=\"%d\"></label>\n", p.Query.Limit)
		if h.err != nil {
			return h.err
		}
		if err := Facets(p.Options, p.Query.Criteria).Render(ctx, w); err != nil {
			return err
		}
		h.raw("</form>\n")
		if h.err != nil {
			return h.err
		}
		if err := Results(p.Result).Render(ctx, w); err != nil {
			return err
		}
		h.raw("</section>\n")
		return h.err
	})
}

// Facets renders the three cascading multi-selects. Selected values that
// fell out of the options stay listed so the user can clear them.
func Facets(opts models.FacetOptions, c models.FilterCriteria) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<div id=\"facets\" class=\"facets\">\n")
		facet(h, "Countries", "countries", opts.Countries, c.Countries)
		facet(h, "Wineries", "wineries", opts.Wineries, c.Wineries)
		facet(h, "Varieties", "varieties", opts.Varieties, c.Varieties)
		h.raw("</div>\n")
		return h.err
	})
}

func facet(h *htmlWriter, label, signal string, options, selected []string) {
	values := slices.Clone(options)
	for _, s := range selected {
		if !slices.Contains(values, s) {
			values = append(values, s)
		}
	}
	slices.Sort(values)

	h.rawf("<label>%s <select multiple size=\"6\" data-bind-%s>\n", esc(label), signal)
	for _, v := range values {
		sel := ""
		if slices.Contains(selected, v) {
			sel = " selected"
		}
		h.rawf("<option value=\"%s\"%s>%s</option>\n", esc(v), sel, esc(v))
	}
	h.raw("</select></label>\n")
}

// Results renders the summary and the visible page. A nil result means the
// RecordSet is missing, which is distinct from an empty match.
func Results(res *models.ViewResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<div id=\"results\">\n")
		switch {
		case res == nil:
			placeholder(h, "results-missing", "No wine data available.")
		case res.Matched == 0:
			placeholder(h, "results-empty", "No wines match the current filters.")
		default:
			summary(h, *res)
			table(h, res.Records)
		}
		h.raw("</div>\n")
		return h.err
	})
}

// ResultsError replaces the results with a message for invalid input.
func ResultsError(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<div id=\"results\">\n")
		h.rawf("<p class=\"error\">%s</p>\n", esc(message))
		h.raw("</div>\n")
		return h.err
	})
}

func summary(h *htmlWriter, res models.ViewResult) {
	s := res.Summary
	h.raw("<div class=\"summary\">\n")
	h.rawf("<span>Showing %d of %d wines</span>\n", res.Shown, res.Matched)
	h.rawf("<span>Mean price: %s</span>\n", formatOptional(s.MeanPrice, "€%.2f"))
	h.rawf("<span>Mean points: %s</span>\n", formatOptional(s.MeanPoints, "%.1f"))
	h.rawf("<span>Max price: %s</span>\n", formatOptional(s.MaxPrice, "€%.2f"))
	h.rawf("<span>Max points: %s</span>\n", formatOptional(s.MaxPoints, "%d"))
	h.raw("</div>\n")
}

func formatOptional[T any](v models.Optional[T], format string) string {
	if value, ok := v.Get(); ok {
		return esc(fmt.Sprintf(format, value))
	}
	return "n/a"
}

func table(h *htmlWriter, records []models.Record) {
	h.raw("<table class=\"modern-table\">\n")
	h.raw("<thead><tr><th>Title</th><th>Country</th><th>Winery</th><th>Variety</th><th>Points</th><th>Price</th><th>Points/€</th></tr></thead>\n<tbody>\n")
	for _, r := range records {
		h.rawf("<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>€%.2f</td><td>%.2f</td></tr>\n",
			esc(r.Title), esc(r.Country), esc(r.Winery), esc(r.Variety), r.Points, r.Price, r.PointsPerEuro())
	}
	h.raw("</tbody>\n</table>\n")
}

func Gallery(assets []models.Asset) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<section id=\"gallery\">\n<h2>Figures</h2>\n")
		if len(assets) == 0 {
			placeholder(h, "gallery-empty", "No figures available.")
		}
		for _, a := range assets {
			src := esc("/assets/" + url.PathEscape(a.Name))
			h.rawf("<figure>\n<figcaption>%s</figcaption>\n", esc(a.Title))
			switch a.Kind {
			case models.AssetHTML:
				h.rawf("<iframe src=\"%s\" title=\"%s\" loading=\"lazy\"></iframe>\n", src, esc(a.Title))
			default:
				h.rawf("<img src=\"%s\" alt=\"%s\" loading=\"lazy\">\n", src, esc(a.Title))
			}
			h.raw("</figure>\n")
		}
		h.raw("</section>\n")
		return h.err
	})
}

const styles = `<style>
body{font-family:system-ui,sans-serif;margin:0;background:#faf7f2;color:#2b1d1d}
header{background:#5e1a2b;color:#fff;padding:1rem 2rem}
main{padding:1rem 2rem}
.carousel-nav{display:flex;gap:.5rem;padding:1rem 2rem}
.carousel-nav .active{font-weight:bold;text-decoration:underline}
.cards{display:flex;gap:1rem;flex-wrap:wrap;margin-bottom:1rem}
.card{background:#fff;border-radius:6px;padding:.75rem 1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card .label{display:block;font-size:.8rem;color:#777}
.modern-table{border-collapse:collapse;width:100%;background:#fff}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #eee;text-align:left}
.filters,.facets,.ranges,.summary{display:flex;gap:1rem;flex-wrap:wrap;margin:.5rem 0}
.placeholder{color:#999;font-style:italic}
.error{color:#b00020}
figure{display:inline-block;margin:1rem}
figure img,figure iframe{max-width:640px;width:100%;min-height:360px;border:0}
</style>
`
