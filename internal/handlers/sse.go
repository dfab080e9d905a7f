package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"wine-dashboard/internal/config"
	"wine-dashboard/internal/models"
	"wine-dashboard/internal/pipeline"
	"wine-dashboard/internal/services"
	"wine-dashboard/internal/ui/templates"
)

// flexString accepts a JSON string or number. Bound number inputs send
// either depending on the browser.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// uiSignals is the client-side state Datastar sends with each request.
type uiSignals struct {
	Slide     int        `json:"slide"`
	Search    string     `json:"search"`
	Countries []string   `json:"countries"`
	Wineries  []string   `json:"wineries"`
	Varieties []string   `json:"varieties"`
	PriceMin  flexString `json:"priceMin"`
	PriceMax  flexString `json:"priceMax"`
	PointsMin flexString `json:"pointsMin"`
	PointsMax flexString `json:"pointsMax"`
	Sort      string     `json:"sort"`
	Limit     flexString `json:"limit"`
}

func (s uiSignals) input() models.QueryInput {
	return models.QueryInput{
		Search:    s.Search,
		Countries: s.Countries,
		Wineries:  s.Wineries,
		Varieties: s.Varieties,
		PriceMin:  string(s.PriceMin),
		PriceMax:  string(s.PriceMax),
		PointsMin: string(s.PointsMin),
		PointsMax: string(s.PointsMax),
		Sort:      s.Sort,
		Limit:     string(s.Limit),
	}
}

func readSignals(r *http.Request) (uiSignals, error) {
	var s uiSignals
	if r.Method == http.MethodGet && r.URL.Query().Get("datastar") == "" {
		return s, nil
	}
	if err := datastar.ReadSignals(r, &s); err != nil {
		return s, fmt.Errorf("read signals: %w", err)
	}
	return s, nil
}

type SSEHandlers struct {
	state        viewState
	defaultLimit int
	logger       *slog.Logger
}

func NewSSEHandlers(catalog *services.Catalog, cfg *config.Config, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		state:        viewState{catalog: catalog, features: cfg.Features, logger: logger},
		defaultLimit: cfg.Query.DefaultLimit,
		logger:       logger,
	}
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) error {
	html, err := templates.RenderString(ctx, c)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}
	return sse.PatchElements(html)
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	return sse.PatchSignals(data)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleExplorer re-runs the pipeline for the signals and patches the
// results, the facet options and the normalized limit.
func (h *SSEHandlers) HandleExplorer(w http.ResponseWriter, r *http.Request) {
	signals, err := readSignals(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	q, err := signals.input().Build(h.defaultLimit)
	if err != nil {
		if err := h.patch(ctx, sse, templates.ResultsError(err.Error())); err != nil {
			h.logger.Error("patch explorer error", "error", err)
		}
		return
	}

	if err := h.patch(ctx, sse, templates.Results(h.state.result(ctx, q))); err != nil {
		h.logger.Error("patch results", "error", err)
		return
	}
	if err := h.patch(ctx, sse, templates.Facets(h.state.options(q.Criteria), q.Criteria)); err != nil {
		h.logger.Error("patch facets", "error", err)
		return
	}
	if err := h.patchSignals(sse, map[string]any{"limit": pipeline.ClampLimit(q.Limit)}); err != nil {
		h.logger.Error("patch limit", "error", err)
		return
	}

	flush(w)
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	if err := h.patch(r.Context(), sse, templates.Overview(h.state.catalog.Overview())); err != nil {
		h.logger.Error("patch overview", "error", err)
		return
	}

	flush(w)
}

// HandleSlide renders the slide named by the slide signal. Out of range
// indexes wrap, and the normalized index is sent back.
func (h *SSEHandlers) HandleSlide(w http.ResponseWriter, r *http.Request) {
	signals, err := readSignals(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	q, err := signals.input().Build(h.defaultLimit)
	if err != nil {
		// The slide still changes; the explorer shows the error.
		q, _ = models.QueryInput{}.Build(h.defaultLimit)
	}

	slide := templates.NormalizeSlide(signals.Slide, len(templates.Slides(h.state.features)))
	page := h.state.page(ctx, q, slide)

	if err := h.patch(ctx, sse, templates.SlideView(page)); err != nil {
		h.logger.Error("patch slide", "error", err)
		return
	}
	if err := h.patchSignals(sse, map[string]any{"slide": slide}); err != nil {
		h.logger.Error("patch slide signal", "error", err)
		return
	}

	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	signals, err := readSignals(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if err := h.patch(ctx, sse, templates.Overview(h.state.catalog.Overview())); err != nil {
		h.logger.Error("patch overview", "error", err)
		return
	}

	if h.state.features.Explorer {
		q, err := signals.input().Build(h.defaultLimit)
		if err != nil {
			q, _ = models.QueryInput{}.Build(h.defaultLimit)
		}
		if err := h.patch(ctx, sse, templates.Results(h.state.result(ctx, q))); err != nil {
			h.logger.Error("patch results", "error", err)
			return
		}
		if err := h.patch(ctx, sse, templates.Facets(h.state.options(q.Criteria), q.Criteria)); err != nil {
			h.logger.Error("patch facets", "error", err)
			return
		}
	}

	flush(w)
}
