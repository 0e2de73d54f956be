package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"repolens/internal/codec"
	"repolens/internal/evidence"
	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/models"
)

// ---- Repository layer contracts -------------------------------------------

// AnalysisRepository persists repository-level analyses.
type AnalysisRepository interface {
	FindByIdentity(ctx context.Context, id models.RepoIdentity) (models.RepositoryAnalysis, bool, error)
	Upsert(ctx context.Context, a models.RepositoryAnalysis) error
}

// EvidenceAssembler produces the evidence bundle for one repository.
type EvidenceAssembler interface {
	Assemble(ctx context.Context, id models.RepoIdentity, token string) (evidence.Bundle, error)
}

// ---- Return DTOs ------------------------------------------------------------

// AnalysisResult is the full-analysis payload plus a cache-hit flag.
type AnalysisResult struct {
	Cached   bool                      `json:"cached"`
	Analysis models.RepositoryAnalysis `json:"analysis"`
}

// LookupResult answers the existence check without ever recomputing.
type LookupResult struct {
	Analyzed   bool      `json:"analyzed"`
	RepoID     string    `json:"repo_id"`
	AnalyzedAt time.Time `json:"analyzed_at,omitempty"`
}

// ---- Service interface + implementation ------------------------------------

// AnalysisService orchestrates the whole-repository analysis: evidence
// assembly, the two concurrent LLM passes, and the cache write.
type AnalysisService interface {
	Analyze(ctx context.Context, rawURL string, force bool, token string) (AnalysisResult, error)
	Lookup(ctx context.Context, rawURL string) (LookupResult, error)
}

type analysisService struct {
	repo      AnalysisRepository
	assembler EvidenceAssembler
	pool      *llm.Pool
	guard     *llm.Guard
	log       zerolog.Logger
	now       func() time.Time
}

// NewAnalysisService wires dependencies.
func NewAnalysisService(repo AnalysisRepository, assembler EvidenceAssembler, pool *llm.Pool, guard *llm.Guard, log zerolog.Logger) AnalysisService {
	return &analysisService{
		repo:      repo,
		assembler: assembler,
		pool:      pool,
		guard:     guard,
		log:       log.With().Str("component", "analysis").Logger(),
		now:       time.Now,
	}
}

// Analyze runs the full pipeline for one repository URL. With force=false a
// cached analysis is returned immediately; with force=true the cache read is
// skipped and the result overwrites the stored document.
func (s *analysisService) Analyze(ctx context.Context, rawURL string, force bool, token string) (AnalysisResult, error) {
	id, err := models.ParseRepoURL(rawURL)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if !force {
		cached, found, err := s.repo.FindByIdentity(ctx, id)
		if err != nil {
			return AnalysisResult{}, err
		}
		if found {
			s.log.Info().Str("repo", id.ID()).Msg("analysis cache hit")
			return AnalysisResult{Cached: true, Analysis: cached}, nil
		}
	}

	s.log.Info().Str("repo", id.ID()).Msg("assembling evidence")
	bundle, err := s.assembler.Assemble(ctx, id, token)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrNotFound):
			return AnalysisResult{}, fmt.Errorf("%w: %v", ErrUpstreamNotFound, err)
		case errors.Is(err, github.ErrRateLimited):
			return AnalysisResult{}, fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
		}
		return AnalysisResult{}, err
	}

	// The two top-level passes are independent prompts over the same
	// evidence, so they run concurrently on the primary credential.
	var (
		wg       sync.WaitGroup
		arch     codec.ArchitectureResult
		routes   []models.Route
		archErr  error
		routeErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		prompt := codec.BuildArchitecturePrompt(id, bundle.Metadata, bundle.TechStack, bundle.FileTree, bundle.KeyFiles)
		resp, err := s.guard.Do(ctx, s.pool.Primary(), prompt)
		if err != nil {
			archErr = err
			return
		}
		var parsed bool
		arch, parsed = codec.DecodeArchitecture(resp)
		if !parsed {
			s.log.Warn().Str("repo", id.ID()).Msg("architecture decode fell back")
		}
	}()
	go func() {
		defer wg.Done()
		prompt := codec.BuildRouteCatalogPrompt(id, bundle.KeyFiles)
		resp, err := s.guard.Do(ctx, s.pool.Primary(), prompt)
		if err != nil {
			routeErr = err
			return
		}
		var parsed bool
		routes, parsed = codec.DecodeRouteCatalog(resp)
		if !parsed {
			s.log.Warn().Str("repo", id.ID()).Msg("route catalog decode fell back")
		}
	}()
	wg.Wait()

	// Exhaustion wins over any other failure so the caller sees the
	// dedicated terminal state.
	for _, err := range []error{archErr, routeErr} {
		if errors.Is(err, llm.ErrExhausted) {
			return AnalysisResult{}, err
		}
	}
	if archErr != nil {
		return AnalysisResult{}, archErr
	}
	if routeErr != nil {
		return AnalysisResult{}, routeErr
	}

	analysis := models.RepositoryAnalysis{
		ID:           id.ID(),
		Identity:     id,
		Metadata:     bundle.Metadata,
		Commits:      bundle.Commits,
		Contributors: bundle.Contributors,
		Status:       bundle.Status,
		TechStack:    bundle.TechStack,
		FileTree:     bundle.FileTree,
		KeyFiles:     bundle.KeyFiles,
		Analysis: models.LLMAnalysis{
			OverallFlow:         arch.OverallFlow,
			ArchitectureDiagram: arch.ArchitectureDiagram,
			Routes:              routes,
		},
		AnalyzedAt: s.now(),
	}

	if err := s.repo.Upsert(ctx, analysis); err != nil {
		return AnalysisResult{}, err
	}

	s.log.Info().Str("repo", id.ID()).Int("routes", len(routes)).Msg("analysis stored")
	return AnalysisResult{Cached: false, Analysis: analysis}, nil
}

// Lookup reports whether an analysis exists. It never triggers computation.
func (s *analysisService) Lookup(ctx context.Context, rawURL string) (LookupResult, error) {
	id, err := models.ParseRepoURL(rawURL)
	if err != nil {
		return LookupResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	analysis, found, err := s.repo.FindByIdentity(ctx, id)
	if err != nil {
		return LookupResult{}, err
	}
	if !found {
		return LookupResult{Analyzed: false, RepoID: id.ID()}, nil
	}
	return LookupResult{Analyzed: true, RepoID: id.ID(), AnalyzedAt: analysis.AnalyzedAt}, nil
}
