package urlcollect

import (
	"context"
	"testing"
	"time"

	"github.com/btraven00/geofetch/pkg/cache"
	"github.com/btraven00/geofetch/pkg/models"
	"github.com/btraven00/geofetch/pkg/providers"
)

// fakeClient is a minimal providers.Client for collector tests.
type fakeClient struct {
	name string
	url  *models.SourceURL
	err  error
}

func (f *fakeClient) Name() string { return f.name }
func (f *fakeClient) Lookup(ctx context.Context, id string) (*providers.Record, error) {
	return nil, nil
}
func (f *fakeClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]providers.Record, error) {
	return nil, nil
}
func (f *fakeClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	return f.url, f.err
}

func newTestCollector(t *testing.T, clients ...providers.Client) (*Collector, *cache.Cache) {
	t.Helper()
	reg := providers.NewRegistry()
	for _, c := range clients {
		reg.Register(c)
	}
	c, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	t.Cleanup(c.Close)
	return New(reg, c, nil, time.Second, 4), c
}

func TestCollectAggregatesAndSortsURLs(t *testing.T) {
	collector, _ := newTestCollector(t,
		&fakeClient{name: "pmc", url: &models.SourceURL{URL: "http://pmc.example/a.pdf", Provider: "pmc", URLType: models.URLTypePDF, Priority: models.PriorityPMC, Confidence: 0.9}},
		&fakeClient{name: "scihub", url: &models.SourceURL{URL: "http://scihub.example/a.pdf", Provider: "scihub", URLType: models.URLTypePDF, Priority: models.PriorityScihub, Confidence: 0.5}},
		&fakeClient{name: "geo"}, // no url, no error: "not found" outcome
	)

	pub := &models.Publication{PMID: "123"}
	result, err := collector.Collect(context.Background(), pub)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 candidate urls, got %d: %v", len(result.URLs), result.URLs)
	}
	if result.URLs[0].Provider != "pmc" {
		t.Errorf("expected pmc (higher priority) first, got %s", result.URLs[0].Provider)
	}
	if len(result.Provenance) != 3 {
		t.Errorf("expected provenance recorded for all 3 providers, got %d", len(result.Provenance))
	}
}

func TestCollectFiltersKnownBrokenPattern(t *testing.T) {
	collector, _ := newTestCollector(t,
		&fakeClient{name: "pmc", url: &models.SourceURL{URL: "https://example.org/pmc/utils/oa/oa.fcgi?id=1", Provider: "pmc"}},
	)
	result, err := collector.Collect(context.Background(), &models.Publication{PMID: "1"})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(result.URLs) != 0 {
		t.Errorf("expected the oa.fcgi url to be filtered out, got %v", result.URLs)
	}
}

func TestCollectUsesCacheOnSecondCall(t *testing.T) {
	calls := 0
	countingClient := &countingFakeClient{fakeClient: fakeClient{name: "pmc", url: &models.SourceURL{URL: "http://pmc.example/a.pdf", Provider: "pmc"}}, calls: &calls}
	collector, c := newTestCollector(t, countingClient)
	defer c.Close()

	pub := &models.Publication{PMID: "1"}
	if _, err := collector.Collect(context.Background(), pub); err != nil {
		t.Fatalf("first Collect() error: %v", err)
	}
	c.Wait()
	if _, err := collector.Collect(context.Background(), pub); err != nil {
		t.Fatalf("second Collect() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected provider to be called once with cache hit on second call, got %d calls", calls)
	}
}

type countingFakeClient struct {
	fakeClient
	calls *int
}

func (f *countingFakeClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	*f.calls++
	return f.fakeClient.GetPDFURL(ctx, pub)
}

// blockingClient holds GetPDFURL open until release is closed or ctx is
// canceled, used to pin a goroutine in flight long enough to cancel the
// collector's context before every registered client has been launched.
type blockingClient struct {
	name    string
	release chan struct{}
}

func (f *blockingClient) Name() string { return f.name }
func (f *blockingClient) Lookup(ctx context.Context, id string) (*providers.Record, error) {
	return nil, nil
}
func (f *blockingClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]providers.Record, error) {
	return nil, nil
}
func (f *blockingClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	select {
	case <-f.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCollectHonorsCanceledContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	reg := providers.NewRegistry()
	// The registry fans out in name order, so "a-slow" is launched first.
	reg.Register(&blockingClient{name: "a-slow", release: release})
	reg.Register(&fakeClient{name: "b-fast"})
	c, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	defer c.Close()

	// maxParallel=1 so the second client's Acquire has to wait for the
	// first (blocked) goroutine's token and observes the cancellation.
	collector := New(reg, c, nil, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var result *models.CandidateURLs
	var collectErr error
	go func() {
		result, collectErr = collector.Collect(ctx, &models.Publication{PMID: "1"})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Collect did not return after context cancellation; launch/receive loops deadlocked")
	}

	if collectErr != nil {
		t.Fatalf("Collect() error: %v", collectErr)
	}
	if len(result.Provenance) != 1 {
		t.Errorf("expected provenance only for the one goroutine launched before cancellation, got %d", len(result.Provenance))
	}
}
