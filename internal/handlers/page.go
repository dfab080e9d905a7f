package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/models"
	"wine-dashboard/internal/services"
	"wine-dashboard/internal/ui/templates"
)

const (
	pageTitle     = "EU Wine Dashboard"
	renderTimeout = 10 * time.Second
)

// viewState derives everything the templates need from the catalog and an
// explicit query. Handlers own the state; nothing is kept between requests.
type viewState struct {
	catalog  *services.Catalog
	features config.FeatureConfig
	logger   *slog.Logger
}

func (v viewState) page(ctx context.Context, q models.Query, slide int) templates.Page {
	p := templates.Page{
		Title:    pageTitle,
		Features: v.features,
		Slide:    slide,
		Overview: v.catalog.Overview(),
		Query:    q,
	}
	p.Result = v.result(ctx, q)
	p.Options = v.options(q.Criteria)
	return p
}

// result is nil when no RecordSet is loaded.
func (v viewState) result(ctx context.Context, q models.Query) *models.ViewResult {
	res, err := v.catalog.Query(ctx, q)
	if err != nil {
		if !stderrors.Is(err, services.ErrRecordsUnavailable) {
			v.logger.ErrorContext(ctx, "query failed", "error", err)
		}
		return nil
	}
	return &res
}

func (v viewState) options(c models.FilterCriteria) models.FacetOptions {
	if !v.features.Cascading {
		c.Countries, c.Wineries = nil, nil
	}
	opts, err := v.catalog.Options(c)
	if err != nil {
		return models.FacetOptions{}
	}
	return opts
}

type PageHandlers struct {
	state        viewState
	defaultLimit int
}

func NewPageHandlers(catalog *services.Catalog, cfg *config.Config, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		state:        viewState{catalog: catalog, features: cfg.Features, logger: logger},
		defaultLimit: cfg.Query.DefaultLimit,
	}
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	q := models.Query{Sort: models.SortPointsDesc, Limit: h.defaultLimit}
	page := h.state.page(ctx, q, 0)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := templates.Dashboard(page).Render(ctx, w); err != nil {
		h.state.logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
