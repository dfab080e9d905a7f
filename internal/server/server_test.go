package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/config"
	"wine-dashboard/internal/models"
	"wine-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{ShutdownTimeout: time.Second, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Assets:   config.AssetsConfig{Dir: "cache", Manifest: "summary.yaml"},
		Query:    config.QueryConfig{DefaultLimit: 50, MemoSize: 16},
		Features: config.FeatureConfig{Carousel: true, Explorer: true, Search: true, Cascading: true, Gallery: true},
	}
}

func newTestServer(cfg *config.Config) *Server {
	catalog := services.NewCatalog(cfg.Query.MemoSize, testLogger())
	catalog.SetRecords([]models.Record{
		{Title: "Barolo", Country: "Italy", Winery: "Vietti", Variety: "Nebbiolo", Points: 95, Price: 100},
		{Title: "Rioja", Country: "Spain", Winery: "Muga", Variety: "Tempranillo", Points: 91, Price: 30},
	})
	return NewServer(catalog, assets.NewProvider(cfg.Assets, testLogger()), cfg, testLogger())
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(testConfig())

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/admin/stats", http.StatusOK},
		{"/api/wines", http.StatusOK},
		{"/api/options", http.StatusOK},
		{"/api/ranking", http.StatusOK},
		{"/api/top?n=1", http.StatusOK},
		{"/api/overview", http.StatusOK},
		{"/api/wines?sort=bogus", http.StatusBadRequest},
		{"/assets/map", http.StatusServiceUnavailable},
		{"/sse/overview", http.StatusOK},
		{"/sse/explorer", http.StatusOK},
		{"/sse/slide", http.StatusOK},
		{"/sse/refresh-all", http.StatusOK},
		{"/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(testConfig())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/wines", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestServer_FeatureGatedRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Features.Carousel = false
	cfg.Features.Explorer = false
	srv := newTestServer(cfg)

	for _, path := range []string{"/sse/slide", "/sse/explorer"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s should be disabled, got %d", path, w.Code)
		}
	}
}

func TestGracefulServer_ShutdownRunsHooks(t *testing.T) {
	cfg := testConfig()
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), cfg)

	var ran []string
	done := make(chan string, 2)
	gs.RegisterShutdownHook("catalog", func(ctx context.Context) error {
		done <- "catalog"
		return nil
	})
	gs.RegisterShutdownHook("broken", func(ctx context.Context) error {
		done <- "broken"
		return errors.New("flush failed")
	})

	err := gs.Shutdown(context.Background())
	close(done)
	for name := range done {
		ran = append(ran, name)
	}

	if len(ran) != 2 {
		t.Errorf("expected both hooks to run, ran %v", ran)
	}
	if err == nil {
		t.Error("a failing hook should surface its error")
	}
}

func TestGracefulServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Run() returned %v after cancel", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
