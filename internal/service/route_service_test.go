package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"repolens/internal/llm"
	"repolens/internal/models"
)

const testRoutePath = "/api/users"

// storedAnalysis seeds the analysis repository the way a prior full
// analysis would.
func storedAnalysis() models.RepositoryAnalysis {
	bundle := testBundle()
	return models.RepositoryAnalysis{
		ID:         "octo/demo",
		Identity:   models.RepoIdentity{Owner: "octo", Name: "demo"},
		Metadata:   bundle.Metadata,
		FileTree:   bundle.FileTree,
		KeyFiles:   bundle.KeyFiles,
		AnalyzedAt: time.Now(),
	}
}

func newRouteFixture(t *testing.T, gen *promptGenerator, files map[string]string) (*fakeAnalysisRepo, *fakeRouteCache, *fileHost, RouteService) {
	t.Helper()
	analysisRepo := newFakeAnalysisRepo()
	analysisRepo.docs["octo/demo"] = storedAnalysis()
	cache := newFakeRouteCache()
	host, gh := newFileHost(t, files)
	svc := NewRouteService(analysisRepo, cache, gh, llm.NewPool(gen), noWaitGuard(), zerolog.Nop())
	return analysisRepo, cache, host, svc
}

func TestRouteAnalyzeRequiresPriorAnalysis(t *testing.T) {
	analysisRepo, _, _, svc := newRouteFixture(t, &promptGenerator{}, nil)
	delete(analysisRepo.docs, "octo/demo")

	_, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if !errors.Is(err, ErrNotAnalyzed) {
		t.Fatalf("err = %v, want ErrNotAnalyzed", err)
	}
}

func TestRouteAnalyzeValidatesInput(t *testing.T) {
	_, _, _, svc := newRouteFixture(t, &promptGenerator{}, nil)

	if _, err := svc.Analyze(context.Background(), "nonsense", testRoutePath, 0, false, "tok"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad url: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Analyze(context.Background(), testRepoURL, "   ", 0, false, "tok"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank route: err = %v, want ErrInvalidInput", err)
	}
}

func TestRouteAnalyzeFallsBackToKeyFiles(t *testing.T) {
	gen := &promptGenerator{responses: map[string]string{
		"route under analysis": "[]",
		"Trace the execution":  cannedTraceResponse,
	}}
	_, cache, host, svc := newRouteFixture(t, gen, nil)

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("fresh deep dive reported as cached")
	}
	if host.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 when relevance comes back empty", host.calls)
	}
	if !strings.Contains(result.FlowVisualization, "flowchart TD") {
		t.Errorf("flow = %q", result.FlowVisualization)
	}
	// The source-ref marker resolves against the cached key files.
	if !strings.Contains(result.ExecutionTrace, "line one\nline two") {
		t.Errorf("trace missing resolved snippet: %q", result.ExecutionTrace)
	}
	if strings.Contains(result.ExecutionTrace, "<<<FILE:") {
		t.Error("unresolved marker left in trace")
	}

	stored, ok := cache.docs[routeKey("octo/demo", testRoutePath)]
	if !ok {
		t.Fatal("deep dive not cached")
	}
	if !stored.Complete() {
		t.Errorf("cached record incomplete: %+v", stored)
	}
}

func TestRouteAnalyzeParsesSteps(t *testing.T) {
	gen := &promptGenerator{responses: map[string]string{
		"route under analysis": "[]",
		"Trace the execution":  cannedTraceResponse,
	}}
	_, _, _, svc := newRouteFixture(t, gen, nil)

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != 1 {
		t.Fatalf("steps = %+v", result.Steps)
	}
	step := result.Steps[0]
	if step.Number != 1 || step.Title != "Route matched" {
		t.Errorf("step = %+v", step)
	}
	if step.Location != "src/routes/users.ts" {
		t.Errorf("location = %q", step.Location)
	}
	if step.Language != "typescript" || !strings.Contains(step.Code, "line one") {
		t.Errorf("code = %q (%s)", step.Code, step.Language)
	}
}

func TestRouteAnalyzeFetchesIdentifiedFiles(t *testing.T) {
	gen := &promptGenerator{responses: map[string]string{
		"route under analysis": `["src/routes/users.ts"]`,
		"Trace the execution":  cannedTraceResponse,
	}}
	_, _, host, svc := newRouteFixture(t, gen, map[string]string{
		"src/routes/users.ts": "fresh line one\nfresh line two",
	})

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", host.calls)
	}
	// Freshly fetched content wins over the cached key file.
	if !strings.Contains(result.ExecutionTrace, "fresh line one") {
		t.Errorf("trace = %q", result.ExecutionTrace)
	}
}

func TestRouteAnalyzeFetchesAsCaller(t *testing.T) {
	gen := &promptGenerator{responses: map[string]string{
		"route under analysis": `["src/routes/users.ts"]`,
		"Trace the execution":  cannedTraceResponse,
	}}
	_, _, host, svc := newRouteFixture(t, gen, map[string]string{
		"src/routes/users.ts": "fresh line one\nfresh line two",
	})

	if _, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "user-token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.auth) == 0 {
		t.Fatal("no file fetch reached the source host")
	}
	// Deep-dive fetches must carry the caller's token, not the server's
	// fallback credential.
	for _, auth := range host.auth {
		if auth != "Bearer user-token" {
			t.Fatalf("fetch authenticated as %q, want caller token", auth)
		}
	}
}

func TestRouteAnalyzeRelevanceFailureDegrades(t *testing.T) {
	// No relevance response scripted: that call fails with an ordinary error,
	// which must degrade to the key-file fallback rather than fail the dive.
	gen := &promptGenerator{responses: map[string]string{
		"Trace the execution": cannedTraceResponse,
	}}
	_, cache, _, svc := newRouteFixture(t, gen, nil)

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExecutionTrace == "" || cache.upserts != 1 {
		t.Errorf("result = %+v, upserts = %d", result, cache.upserts)
	}
}

func TestRouteAnalyzeCacheHit(t *testing.T) {
	gen := &promptGenerator{} // any model call would error
	_, cache, _, svc := newRouteFixture(t, gen, nil)
	cache.docs[routeKey("octo/demo", testRoutePath)] = models.RouteAnalysis{
		RepoID:            "octo/demo",
		RoutePath:         testRoutePath,
		FlowVisualization: "flowchart TD\n    A --> B",
		ExecutionTrace:    "Step 1: Cached\nLocation: src/index.ts\nalready explained",
		CachedAt:          time.Now(),
	}

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Cached {
		t.Error("complete record not served from cache")
	}
	if gen.calls != 0 {
		t.Errorf("llm calls = %d, want 0 on cache hit", gen.calls)
	}
	if len(result.Steps) != 1 {
		t.Errorf("steps reparsed from cached trace = %+v", result.Steps)
	}
}

func TestRouteAnalyzeIncompleteRecordRecomputes(t *testing.T) {
	gen := &promptGenerator{responses: map[string]string{
		"route under analysis": "[]",
		"Trace the execution":  cannedTraceResponse,
	}}
	_, cache, _, svc := newRouteFixture(t, gen, nil)
	// A record missing its trace must be treated as a miss.
	cache.docs[routeKey("octo/demo", testRoutePath)] = models.RouteAnalysis{
		RepoID:            "octo/demo",
		RoutePath:         testRoutePath,
		FlowVisualization: "flowchart TD\n    A --> B",
	}

	result, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("incomplete record served as cache hit")
	}
	if gen.calls == 0 {
		t.Error("expected recomputation")
	}
}

func TestRouteAnalyzeExhaustion(t *testing.T) {
	gen := &promptGenerator{err: errors.New("resource exhausted: quota resets in 2 hours")}
	_, cache, _, svc := newRouteFixture(t, gen, nil)

	_, err := svc.Analyze(context.Background(), testRepoURL, testRoutePath, 0, false, "tok")
	if !errors.Is(err, llm.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if cache.upserts != 0 {
		t.Error("exhausted dive must not write the cache")
	}
}
