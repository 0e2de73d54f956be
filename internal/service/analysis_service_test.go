package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/models"
)

const testRepoURL = "https://github.com/octo/demo"

func newAnalysisFixture() (*fakeAnalysisRepo, *fakeAssembler, *promptGenerator, AnalysisService) {
	repo := newFakeAnalysisRepo()
	assembler := &fakeAssembler{bundle: testBundle()}
	gen := &promptGenerator{responses: map[string]string{
		"analyzing":  cannedArchResponse,
		"cataloging": cannedCatalogResponse,
	}}
	svc := NewAnalysisService(repo, assembler, llm.NewPool(gen), noWaitGuard(), zerolog.Nop())
	return repo, assembler, gen, svc
}

func TestAnalyzeFreshRepository(t *testing.T) {
	repo, assembler, gen, svc := newAnalysisFixture()

	result, err := svc.Analyze(context.Background(), testRepoURL, false, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("fresh analysis reported as cached")
	}
	if assembler.calls != 1 {
		t.Errorf("assembler calls = %d, want 1", assembler.calls)
	}
	if gen.calls != 2 {
		t.Errorf("llm calls = %d, want 2 (architecture + catalog)", gen.calls)
	}
	if repo.upserts != 1 {
		t.Errorf("upserts = %d, want 1", repo.upserts)
	}
	if result.Analysis.Analysis.OverallFlow == "" {
		t.Error("overall flow empty")
	}
	if len(result.Analysis.Analysis.Routes) != 1 {
		t.Errorf("routes = %+v", result.Analysis.Analysis.Routes)
	}
	if result.Analysis.ID != "octo/demo" {
		t.Errorf("id = %q", result.Analysis.ID)
	}
}

func TestAnalyzeSecondRequestHitsCache(t *testing.T) {
	repo, assembler, gen, svc := newAnalysisFixture()

	if _, err := svc.Analyze(context.Background(), testRepoURL, false, "tok"); err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	assemblerCalls, genCalls, upserts := assembler.calls, gen.calls, repo.upserts

	result, err := svc.Analyze(context.Background(), testRepoURL, false, "tok")
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if !result.Cached {
		t.Error("second request not served from cache")
	}
	if assembler.calls != assemblerCalls || gen.calls != genCalls || repo.upserts != upserts {
		t.Errorf("cache hit recomputed: assembler %d→%d llm %d→%d upserts %d→%d",
			assemblerCalls, assembler.calls, genCalls, gen.calls, upserts, repo.upserts)
	}
}

func TestAnalyzeForceRefreshOverwrites(t *testing.T) {
	repo, _, _, svc := newAnalysisFixture()

	if _, err := svc.Analyze(context.Background(), testRepoURL, false, "tok"); err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	result, err := svc.Analyze(context.Background(), testRepoURL, true, "tok")
	if err != nil {
		t.Fatalf("forced analyze: %v", err)
	}
	if result.Cached {
		t.Error("forced refresh served from cache")
	}
	if repo.upserts != 2 {
		t.Errorf("upserts = %d, want 2", repo.upserts)
	}
	if len(repo.docs) != 1 {
		t.Errorf("stored docs = %d, want exactly one per identity", len(repo.docs))
	}
}

func TestAnalyzeInvalidURL(t *testing.T) {
	_, _, _, svc := newAnalysisFixture()

	_, err := svc.Analyze(context.Background(), "not a url at all", false, "tok")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAnalyzeUpstreamErrors(t *testing.T) {
	cases := []struct {
		name     string
		upstream error
		want     error
	}{
		{"not found", github.ErrNotFound, ErrUpstreamNotFound},
		{"rate limited", github.ErrRateLimited, ErrUpstreamRateLimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeAnalysisRepo()
			assembler := &fakeAssembler{err: tc.upstream}
			gen := &promptGenerator{}
			svc := NewAnalysisService(repo, assembler, llm.NewPool(gen), noWaitGuard(), zerolog.Nop())

			_, err := svc.Analyze(context.Background(), testRepoURL, false, "tok")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if repo.upserts != 0 {
				t.Error("failed analysis must not write the cache")
			}
		})
	}
}

func TestAnalyzeModelExhaustion(t *testing.T) {
	repo := newFakeAnalysisRepo()
	assembler := &fakeAssembler{bundle: testBundle()}
	gen := &promptGenerator{err: errors.New("429 rate limit exceeded, try again in 2h")}
	svc := NewAnalysisService(repo, assembler, llm.NewPool(gen), noWaitGuard(), zerolog.Nop())

	_, err := svc.Analyze(context.Background(), testRepoURL, false, "tok")
	if !errors.Is(err, llm.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if repo.upserts != 0 {
		t.Error("exhausted analysis must not write the cache")
	}
}

func TestAnalyzeMalformedModelOutputStillSucceeds(t *testing.T) {
	repo := newFakeAnalysisRepo()
	assembler := &fakeAssembler{bundle: testBundle()}
	gen := &promptGenerator{responses: map[string]string{
		"analyzing":  "the model rambled instead of returning JSON",
		"cataloging": "also not JSON",
	}}
	svc := NewAnalysisService(repo, assembler, llm.NewPool(gen), noWaitGuard(), zerolog.Nop())

	result, err := svc.Analyze(context.Background(), testRepoURL, false, "tok")
	if err != nil {
		t.Fatalf("malformed output must not fail the request: %v", err)
	}
	if len(result.Analysis.Analysis.Routes) == 0 {
		t.Error("fallback route catalog empty")
	}
	if result.Analysis.Analysis.ArchitectureDiagram == "" {
		t.Error("fallback diagram empty")
	}
	if repo.upserts != 1 {
		t.Errorf("upserts = %d, want 1", repo.upserts)
	}
}

func TestLookupNeverComputes(t *testing.T) {
	repo, assembler, gen, svc := newAnalysisFixture()

	result, err := svc.Lookup(context.Background(), testRepoURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Analyzed {
		t.Error("lookup reported analysis that does not exist")
	}
	if assembler.calls != 0 || gen.calls != 0 {
		t.Error("lookup must never trigger computation")
	}

	repo.docs["octo/demo"] = models.RepositoryAnalysis{ID: "octo/demo"}
	result, err = svc.Lookup(context.Background(), testRepoURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Analyzed || result.RepoID != "octo/demo" {
		t.Errorf("result = %+v", result)
	}
}
