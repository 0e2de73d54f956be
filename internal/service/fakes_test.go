package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"repolens/internal/evidence"
	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/models"
)

// ---- in-memory repositories --------------------------------------------------

type fakeAnalysisRepo struct {
	docs    map[string]models.RepositoryAnalysis
	upserts int
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{docs: map[string]models.RepositoryAnalysis{}}
}

func (r *fakeAnalysisRepo) FindByIdentity(ctx context.Context, id models.RepoIdentity) (models.RepositoryAnalysis, bool, error) {
	doc, ok := r.docs[id.ID()]
	return doc, ok, nil
}

func (r *fakeAnalysisRepo) Upsert(ctx context.Context, a models.RepositoryAnalysis) error {
	r.upserts++
	r.docs[a.ID] = a
	return nil
}

type fakeRouteCache struct {
	docs    map[string]models.RouteAnalysis
	upserts int
}

func newFakeRouteCache() *fakeRouteCache {
	return &fakeRouteCache{docs: map[string]models.RouteAnalysis{}}
}

func routeKey(repoID, routePath string) string { return repoID + "|" + routePath }

func (r *fakeRouteCache) Find(ctx context.Context, repoID, routePath string) (models.RouteAnalysis, bool, error) {
	doc, ok := r.docs[routeKey(repoID, routePath)]
	if !ok || !doc.Complete() {
		return models.RouteAnalysis{}, false, nil
	}
	return doc, true, nil
}

func (r *fakeRouteCache) Upsert(ctx context.Context, a models.RouteAnalysis) error {
	r.upserts++
	r.docs[routeKey(a.RepoID, a.RoutePath)] = a
	return nil
}

// ---- evidence & file fetch -----------------------------------------------------

type fakeAssembler struct {
	bundle evidence.Bundle
	err    error
	calls  int
}

func (a *fakeAssembler) Assemble(ctx context.Context, id models.RepoIdentity, token string) (evidence.Bundle, error) {
	a.calls++
	if a.err != nil {
		return evidence.Bundle{}, a.err
	}
	return a.bundle, nil
}

// fileHost stubs the source-host contents endpoint. It records every
// Authorization header it sees; handlers run concurrently, hence the lock.
type fileHost struct {
	mu    sync.Mutex
	files map[string]string
	calls int
	auth  []string
}

// newFileHost returns the stub plus a client pointed at it, authenticated
// with the server-level fallback token.
func newFileHost(t *testing.T, files map[string]string) (*fileHost, *github.Client) {
	t.Helper()
	h := &fileHost{files: files}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.calls++
		h.auth = append(h.auth, r.Header.Get("Authorization"))
		content, ok := h.files[strings.TrimPrefix(r.URL.Path, "/repos/octo/demo/contents/")]
		h.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"encoding": "base64", "content": "%s"}`,
			base64.StdEncoding.EncodeToString([]byte(content)))
	}))
	t.Cleanup(srv.Close)

	return h, github.NewClientWithBaseURL("server-token", srv.URL)
}

// ---- scripted model -------------------------------------------------------------

// promptGenerator answers each prompt by substring dispatch, counting calls.
// The analysis passes run concurrently, hence the lock.
type promptGenerator struct {
	mu        sync.Mutex
	responses map[string]string // prompt substring -> response
	err       error
	calls     int
}

func (g *promptGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	for marker, resp := range g.responses {
		if strings.Contains(prompt, marker) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("unscripted prompt: %.60s", prompt)
}

// ---- canned model output ---------------------------------------------------------

const (
	cannedArchResponse = "```json\n" +
		`{"overall_flow": "Requests flow from the client through the API into the store.", "architecture_diagram": "flowchart LR\n    A[\"Client\"] --> B[\"API\"]"}` +
		"\n```"

	cannedCatalogResponse = "```json\n" +
		`[{"path": "/api/users", "method": "GET", "functionality": "Lists users.", "contribution": "Core data view.", "role": "Data Fetching"}]` +
		"\n```"

	cannedTraceResponse = `## Flow Diagram
` + "```mermaid\nflowchart TD\n    A --> B\n```" + `

## Execution Trace
**Step 1: Route matched**
Location: src/routes/users.ts
<<<FILE:src/routes/users.ts:1-2>>>
The router matches the path and calls the handler.`
)

func testBundle() evidence.Bundle {
	return evidence.Bundle{
		Metadata: models.RepoMetadata{Language: "TypeScript", DefaultBranch: "main"},
		FileTree: []models.TreeEntry{
			{Path: "src/index.ts", Type: "blob"},
			{Path: "src/routes/users.ts", Type: "blob"},
		},
		KeyFiles: []models.KeyFile{
			{Path: "src/routes/users.ts", Content: "line one\nline two\nline three"},
		},
	}
}

func noWaitGuard() *llm.Guard {
	return llm.NewGuardWithSleep(zerolog.Nop(), func(ctx context.Context, d time.Duration) error {
		return nil
	})
}
