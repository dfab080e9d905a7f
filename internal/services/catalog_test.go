package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/models"
)

type stubSource struct {
	records []models.Record
	err     error
	calls   int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(ctx context.Context) ([]models.Record, error) {
	s.calls++
	return s.records, s.err
}

func testRecords() []models.Record {
	return []models.Record{
		{Title: "Quinta A", Country: "Portugal", Winery: "Quinta", Variety: "Touriga Nacional", Points: 90, Price: 20},
		{Title: "Quinta B", Country: "Portugal", Winery: "Quinta", Variety: "Baga", Points: 92, Price: 15},
		{Title: "Chianti Classico", Country: "Italy", Winery: "Castello", Variety: "Sangiovese", Points: 88, Price: 50},
		{Title: "Barolo", Country: "Italy", Winery: "Vietti", Variety: "Nebbiolo", Points: 95, Price: 100},
		{Title: "Rioja", Country: "Spain", Winery: "Muga", Variety: "Tempranillo", Points: 91, Price: 30},
	}
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestNewCatalog(t *testing.T) {
	c := NewCatalog(10, nil)
	if c == nil {
		t.Fatal("NewCatalog() returned nil")
	}
	if c.logger == nil {
		t.Error("logger should be initialized")
	}
	if c.Available() {
		t.Error("new catalog should not have records")
	}
	if got := NewCatalog(-1, nil).memoSize; got != defaultMemoSize {
		t.Errorf("negative memo size should fall back to %d, got %d", defaultMemoSize, got)
	}
}

func TestCatalog_Unavailable(t *testing.T) {
	c := NewCatalog(10, nil)

	if _, err := c.Query(context.Background(), models.Query{}); !errors.Is(err, ErrRecordsUnavailable) {
		t.Errorf("Query() error = %v, want ErrRecordsUnavailable", err)
	}
	if _, err := c.Options(models.FilterCriteria{}); !errors.Is(err, ErrRecordsUnavailable) {
		t.Errorf("Options() error = %v, want ErrRecordsUnavailable", err)
	}
	if _, err := c.Top(3); !errors.Is(err, ErrRecordsUnavailable) {
		t.Errorf("Top() error = %v, want ErrRecordsUnavailable", err)
	}
	if _, err := c.Ranking(); !errors.Is(err, ErrRankingUnavailable) {
		t.Errorf("Ranking() error = %v, want ErrRankingUnavailable", err)
	}

	ov := c.Overview()
	if ov.Ranking.Available || ov.TopCountry.Available || ov.TopScore.Available || ov.BestValue.Available {
		t.Errorf("Overview() should report every section unavailable, got %+v", ov)
	}
	if ov.Assets == nil || len(ov.Assets) != 0 {
		t.Errorf("Overview().Assets should be an empty slice, got %v", ov.Assets)
	}
}

func TestCatalog_EmptyRecordSetIsNotMissing(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetRecords(nil)

	result, err := c.Query(context.Background(), models.Query{})
	if err != nil {
		t.Fatalf("Query() on empty set returned error: %v", err)
	}
	if result.Matched != 0 || result.Summary.MeanPrice.Available {
		t.Errorf("empty set should yield an empty result, got %+v", result)
	}
}

func TestCatalog_Query(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetRecords(testRecords())

	result, err := c.Query(context.Background(), models.Query{
		Criteria: models.FilterCriteria{Countries: []string{"Italy"}},
		Sort:     models.SortPriceAsc,
		Limit:    50,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if result.Matched != 2 || result.Shown != 2 {
		t.Fatalf("expected 2 matched/shown, got %d/%d", result.Matched, result.Shown)
	}
	if result.Records[0].Title != "Chianti Classico" {
		t.Errorf("expected cheapest first, got %q", result.Records[0].Title)
	}
	if got, _ := result.Summary.MaxPoints.Get(); got != 95 {
		t.Errorf("MaxPoints = %d, want 95", got)
	}
}

func TestCatalog_QueryMemo(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetRecords(testRecords())

	q := models.Query{Criteria: models.FilterCriteria{Countries: []string{"Portugal", "Spain"}}}
	reordered := models.Query{Criteria: models.FilterCriteria{Countries: []string{"Spain", "Portugal"}}}

	if _, err := c.Query(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Query(context.Background(), reordered); err != nil {
		t.Fatal(err)
	}

	if hits := c.memoHits.Load(); hits != 1 {
		t.Errorf("expected 1 memo hit for equivalent query, got %d", hits)
	}

	c.SetRecords(testRecords()[:1])
	if len(c.memo) != 0 {
		t.Error("SetRecords should reset the memo")
	}
	result, _ := c.Query(context.Background(), q)
	if result.Matched != 1 {
		t.Errorf("query after reload should see the new records, matched %d", result.Matched)
	}
}

func TestCatalog_MemoBounded(t *testing.T) {
	c := NewCatalog(2, nil)
	c.SetRecords(testRecords())

	for _, search := range []string{"a", "b", "c"} {
		if _, err := c.Query(context.Background(), models.Query{Criteria: models.FilterCriteria{Search: search}}); err != nil {
			t.Fatal(err)
		}
	}
	if len(c.memo) > 2 {
		t.Errorf("memo should hold at most 2 entries, has %d", len(c.memo))
	}

	disabled := NewCatalog(0, nil)
	disabled.SetRecords(testRecords())
	disabled.Query(context.Background(), models.Query{})
	if len(disabled.memo) != 0 {
		t.Error("memo size 0 should disable memoization")
	}
}

func TestCatalog_ConcurrentQueries(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetRecords(testRecords())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.Query(context.Background(), models.Query{Sort: models.SortPointsPerEuroDesc})
			if err != nil {
				t.Error(err)
				return
			}
			if result.Records[0].Title != "Quinta B" {
				t.Errorf("best value should be Quinta B, got %q", result.Records[0].Title)
			}
		}()
	}
	wg.Wait()

	if q := c.queries.Load(); q != 20 {
		t.Errorf("expected 20 queries counted, got %d", q)
	}
}

func TestCatalog_SetRecordsDropsInvalid(t *testing.T) {
	c := NewCatalog(10, nil)
	records := append(testRecords(), models.Record{Title: "Free", Country: "Italy", Points: 85, Price: 0})
	c.SetRecords(records)

	stats := c.Stats()
	if stats["record_count"] != 5 {
		t.Errorf("record_count = %v, want 5", stats["record_count"])
	}
}

func TestCatalog_Load(t *testing.T) {
	c := NewCatalog(10, nil)
	src := &stubSource{records: testRecords()}

	if err := c.Load(context.Background(), src); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source should be read once, got %d", src.calls)
	}
	if c.Stats()["source"] != "stub" {
		t.Errorf("source name not recorded: %v", c.Stats()["source"])
	}

	failing := &stubSource{err: errors.New("disk on fire")}
	fresh := NewCatalog(10, nil)
	if err := fresh.Load(context.Background(), failing); err == nil {
		t.Error("Load() should propagate source errors")
	}
	if fresh.Available() {
		t.Error("failed load should leave records unavailable")
	}
}

func TestCatalog_OptionsAndTop(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetRecords(testRecords())

	opts, err := c.Options(models.FilterCriteria{Countries: []string{"Portugal"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Countries) != 3 {
		t.Errorf("country options should ignore the selection, got %v", opts.Countries)
	}
	if len(opts.Wineries) != 1 || opts.Wineries[0] != "Quinta" {
		t.Errorf("winery options should cascade from countries, got %v", opts.Wineries)
	}

	top, err := c.Top(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Points != 95 || top[1].Points != 92 {
		t.Errorf("unexpected top wines: %+v", top)
	}
}

func TestCatalog_RankingFallback(t *testing.T) {
	c := NewCatalog(10, nil)
	c.SetManifest(&assets.Manifest{
		Ranking: []assets.RankingEntry{{Country: "France", MeanPoints: 89.1, Wines: 100}},
	})

	ranking, err := c.Ranking()
	if err != nil {
		t.Fatalf("manifest ranking should be used without records: %v", err)
	}
	if ranking[0].Country != "France" {
		t.Errorf("expected manifest ranking, got %+v", ranking)
	}

	c.SetRecords(testRecords())
	ranking, err = c.Ranking()
	if err != nil {
		t.Fatal(err)
	}
	if ranking[0].Country != "Italy" {
		t.Errorf("computed ranking should win once records exist, got %+v", ranking)
	}
}

func TestCatalog_Overview(t *testing.T) {
	t.Run("derived from records", func(t *testing.T) {
		c := NewCatalog(10, nil)
		c.SetRecords(testRecords())

		ov := c.Overview()
		if got, _ := ov.TopCountry.Get(); got != "Italy" {
			t.Errorf("TopCountry = %q, want Italy", got)
		}
		if got, _ := ov.TopScore.Get(); got != 91.5 {
			t.Errorf("TopScore = %v, want 91.5", got)
		}
		if got, _ := ov.BestValue.Get(); got != "Portugal" {
			t.Errorf("BestValue = %q, want Portugal", got)
		}
		if ov.Records != 5 {
			t.Errorf("Records = %d, want 5", ov.Records)
		}
	})

	t.Run("manifest labels win", func(t *testing.T) {
		c := NewCatalog(10, nil)
		c.SetRecords(testRecords())
		c.SetManifest(&assets.Manifest{
			TopCountry: strPtr("Austria"),
			TopScore:   floatPtr(90.1),
			BestValue:  strPtr("Romania"),
			Assets:     []models.Asset{{Name: "map", Title: "Map", Kind: models.AssetHTML, Path: "map.html"}},
		})

		ov := c.Overview()
		if got, _ := ov.TopCountry.Get(); got != "Austria" {
			t.Errorf("TopCountry = %q, want Austria", got)
		}
		if got, _ := ov.TopScore.Get(); got != 90.1 {
			t.Errorf("TopScore = %v, want 90.1", got)
		}
		if got, _ := ov.BestValue.Get(); got != "Romania" {
			t.Errorf("BestValue = %q, want Romania", got)
		}
		if len(ov.Assets) != 1 || ov.Assets[0].Name != "map" {
			t.Errorf("Assets = %+v", ov.Assets)
		}
	})
}

func TestCatalog_OverviewTopCountryPairing(t *testing.T) {
	tests := []struct {
		name        string
		manifest    *assets.Manifest
		wantCountry string
		wantScore   float64
		hasCountry  bool
		hasScore    bool
	}{
		{
			name:        "country without score uses its own mean",
			manifest:    &assets.Manifest{TopCountry: strPtr("Portugal")},
			wantCountry: "Portugal", wantScore: 91,
			hasCountry: true, hasScore: true,
		},
		{
			name:        "country missing from the ranking has no score",
			manifest:    &assets.Manifest{TopCountry: strPtr("Austria")},
			wantCountry: "Austria",
			hasCountry:  true,
		},
		{
			name:      "score without country is not attributed",
			manifest:  &assets.Manifest{TopScore: floatPtr(93.2)},
			wantScore: 93.2,
			hasScore:  true,
		},
		{
			name:        "neither uses the ranking leader",
			manifest:    &assets.Manifest{BestValue: strPtr("Romania")},
			wantCountry: "Italy", wantScore: 91.5,
			hasCountry: true, hasScore: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog(10, nil)
			c.SetRecords(testRecords())
			c.SetManifest(tt.manifest)

			ov := c.Overview()
			country, ok := ov.TopCountry.Get()
			if ok != tt.hasCountry || country != tt.wantCountry {
				t.Errorf("TopCountry = %q (%v), want %q (%v)", country, ok, tt.wantCountry, tt.hasCountry)
			}
			score, ok := ov.TopScore.Get()
			if ok != tt.hasScore || score != tt.wantScore {
				t.Errorf("TopScore = %v (%v), want %v (%v)", score, ok, tt.wantScore, tt.hasScore)
			}
		})
	}
}

func TestCatalog_MemoKeepsDistinctQueriesApart(t *testing.T) {
	c := NewCatalog(16, nil)
	c.SetRecords(testRecords())
	ctx := context.Background()

	decoy := models.Query{Criteria: models.FilterCriteria{Countries: []string{"Italy|w=Vietti"}}, Sort: models.SortPointsDesc, Limit: 10}
	res, err := c.Query(ctx, decoy)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matched != 0 {
		t.Fatalf("decoy query matched %d, want 0", res.Matched)
	}

	genuine := models.Query{Criteria: models.FilterCriteria{Countries: []string{"Italy"}, Wineries: []string{"Vietti"}}, Sort: models.SortPointsDesc, Limit: 10}
	res, err = c.Query(ctx, genuine)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matched != 1 || res.Records[0].Title != "Barolo" {
		t.Errorf("expected the Barolo, got matched=%d records=%+v", res.Matched, res.Records)
	}
}

func TestCatalog_Stats(t *testing.T) {
	c := NewCatalog(10, nil)
	stats := c.Stats()
	if stats["records_available"] != false {
		t.Error("records_available should be false before load")
	}
	if _, ok := stats["loaded_at"]; ok {
		t.Error("loaded_at should be absent before load")
	}

	c.SetRecords(testRecords())
	c.Query(context.Background(), models.Query{})
	stats = c.Stats()
	for _, key := range []string{"loaded_at", "last_query"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %q", key)
		}
	}
	if stats["queries"] != int64(1) {
		t.Errorf("queries = %v, want 1", stats["queries"])
	}
}
