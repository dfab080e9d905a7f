package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/config"
	"wine-dashboard/internal/errors"
	"wine-dashboard/internal/models"
	"wine-dashboard/internal/observability"
	"wine-dashboard/internal/services"
)

const (
	version         = "1.0.0"
	defaultTopCount = 10
	maxTopCount     = 100
	cacheMaxAge     = "public, max-age=300"
)

type APIHandlers struct {
	catalog  *services.Catalog
	assets   *assets.Provider
	features config.FeatureConfig
	query    config.QueryConfig
	logger   *slog.Logger
}

func NewAPIHandlers(catalog *services.Catalog, provider *assets.Provider, cfg *config.Config, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		catalog:  catalog,
		assets:   provider,
		features: cfg.Features,
		query:    cfg.Query,
		logger:   logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

// toAppError maps domain errors onto the HTTP envelope. Missing inputs are
// 503 NO_DATA with the section name so the page can show a placeholder.
func toAppError(err error) error {
	var perr *models.ParamError
	switch {
	case stderrors.Is(err, services.ErrRecordsUnavailable):
		return errors.NoData("records", err)
	case stderrors.Is(err, services.ErrRankingUnavailable):
		return errors.NoData("ranking", err)
	case stderrors.Is(err, assets.ErrManifestMissing):
		return errors.NoData("assets", err)
	case stderrors.As(err, &perr) && perr.Param == "sort":
		return errors.InvalidSort(err)
	case stderrors.As(err, &perr):
		return errors.BadParam(perr.Param, err)
	default:
		return err
	}
}

func (h *APIHandlers) HandleWines(w http.ResponseWriter, r *http.Request) {
	q, err := models.QueryInputFromValues(r.URL.Query()).Build(h.query.DefaultLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.catalog.Query(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, result)
}

// HandleOptions lists the facet values for the current selection. Without
// cascading every facet is computed from the full set.
func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	q, err := models.QueryInputFromValues(r.URL.Query()).Build(h.query.DefaultLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	criteria := q.Criteria
	if !h.features.Cascading {
		criteria.Countries, criteria.Wineries = nil, nil
	}

	opts, err := h.catalog.Options(criteria)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, opts)
}

func (h *APIHandlers) HandleRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.catalog.Ranking()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, ranking, map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

func (h *APIHandlers) HandleTop(w http.ResponseWriter, r *http.Request) {
	n := defaultTopCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, &models.ParamError{Param: "n", Err: err})
			return
		}
		n = min(v, maxTopCount)
	}

	top, err := h.catalog.Top(n)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, top)
}

// HandleOverview always succeeds; each section carries its own
// availability.
func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.catalog.Overview())
}

func (h *APIHandlers) HandleAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	manifest := h.catalog.Manifest()
	if manifest == nil {
		h.fail(w, r, assets.ErrManifestMissing)
		return
	}

	asset, ok := manifest.Asset(name)
	if !ok {
		h.fail(w, r, errors.NotFound("unknown asset "+strconv.Quote(name)))
		return
	}

	path, err := h.assets.Resolve(asset.Path)
	if err != nil {
		h.fail(w, r, errors.BadParam("asset", err))
		return
	}

	w.Header().Set("Cache-Control", cacheMaxAge)
	http.ServeFile(w, r, path)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"records":   h.catalog.Available(),
		"manifest":  h.catalog.Manifest() != nil,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.catalog.Stats())
}
