package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"repolens/internal/codec"
	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/models"
)

// RouteCacheRepository persists per-route deep dives.
type RouteCacheRepository interface {
	Find(ctx context.Context, repoID, routePath string) (models.RouteAnalysis, bool, error)
	Upsert(ctx context.Context, a models.RouteAnalysis) error
}

// RouteResult is the deep-dive payload plus a cache-hit flag. Steps are
// parsed from the trace on the way out and never persisted.
type RouteResult struct {
	Cached            bool                   `json:"cached"`
	FlowVisualization string                 `json:"flow_visualization"`
	ExecutionTrace    string                 `json:"execution_trace"`
	Steps             []models.ExecutionStep `json:"steps,omitempty"`
}

// RouteService orchestrates the single-route deep dive: relevance
// identification, full-file fetch, execution-trace synthesis and snippet
// resolution. It requires a prior repository analysis and never triggers one
// itself.
type RouteService interface {
	Analyze(ctx context.Context, rawURL, routePath string, ordinal int, force bool, token string) (RouteResult, error)
}

type routeService struct {
	analysisRepo AnalysisRepository
	routeCache   RouteCacheRepository
	gh           *github.Client
	pool         *llm.Pool
	guard        *llm.Guard
	log          zerolog.Logger
	now          func() time.Time
}

// NewRouteService wires dependencies.
func NewRouteService(analysisRepo AnalysisRepository, routeCache RouteCacheRepository, gh *github.Client, pool *llm.Pool, guard *llm.Guard, log zerolog.Logger) RouteService {
	return &routeService{
		analysisRepo: analysisRepo,
		routeCache:   routeCache,
		gh:           gh,
		pool:         pool,
		guard:        guard,
		log:          log.With().Str("component", "route").Logger(),
		now:          time.Now,
	}
}

// Analyze produces (or returns the cached) deep dive for one route.
func (s *routeService) Analyze(ctx context.Context, rawURL, routePath string, ordinal int, force bool, token string) (RouteResult, error) {
	id, err := models.ParseRepoURL(rawURL)
	if err != nil {
		return RouteResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(routePath) == "" {
		return RouteResult{}, fmt.Errorf("%w: route path is required", ErrInvalidInput)
	}

	if !force {
		cached, found, err := s.routeCache.Find(ctx, id.ID(), routePath)
		if err != nil {
			return RouteResult{}, err
		}
		if found {
			s.log.Info().Str("repo", id.ID()).Str("route", routePath).Msg("route cache hit")
			return RouteResult{
				Cached:            true,
				FlowVisualization: cached.FlowVisualization,
				ExecutionTrace:    cached.ExecutionTrace,
				Steps:             codec.ParseSteps(cached.ExecutionTrace),
			}, nil
		}
	}

	// A deep dive reasons over the stored analysis; without one the caller
	// must analyze the repository first.
	analysis, found, err := s.analysisRepo.FindByIdentity(ctx, id)
	if err != nil {
		return RouteResult{}, err
	}
	if !found {
		return RouteResult{}, ErrNotAnalyzed
	}

	// Relevance identification on a secondary credential, selected by the
	// route's ordinal so the call volume spreads across extra quota.
	relevantPaths, err := s.identifyRelevantFiles(ctx, analysis, routePath, ordinal)
	if err != nil {
		return RouteResult{}, err // exhausted; distinct terminal signal
	}

	// Fetch full contents for the identified paths. Any failure here — or an
	// empty identification result — degrades to the cached key files so the
	// deep analysis still has something to reason about.
	fresh := s.fetchFiles(ctx, id, token, relevantPaths)
	filesUsed := fresh
	if len(filesUsed) == 0 {
		s.log.Info().Str("route", routePath).Msg("falling back to cached key files")
		filesUsed = analysis.KeyFiles
	}

	// Trace synthesis always runs on the primary credential.
	resp, err := s.guard.Do(ctx, s.pool.Primary(), codec.BuildTracePrompt(routePath, filesUsed))
	if err != nil {
		return RouteResult{}, err
	}

	trace, parsed := codec.DecodeTrace(resp)
	if !parsed {
		s.log.Warn().Str("route", routePath).Msg("trace decode fell back")
	}
	resolved := codec.ResolveSourceRefs(trace.ExecutionTrace, fresh, analysis.KeyFiles)

	record := models.RouteAnalysis{
		RepoID:            id.ID(),
		RoutePath:         routePath,
		FlowVisualization: trace.FlowDiagram,
		ExecutionTrace:    resolved,
		CachedAt:          s.now(),
	}
	if err := s.routeCache.Upsert(ctx, record); err != nil {
		return RouteResult{}, err
	}

	return RouteResult{
		Cached:            false,
		FlowVisualization: record.FlowVisualization,
		ExecutionTrace:    record.ExecutionTrace,
		Steps:             codec.ParseSteps(record.ExecutionTrace),
	}, nil
}

// identifyRelevantFiles asks the model which files implement the route.
// Exhaustion propagates; every other failure degrades to an empty list.
func (s *routeService) identifyRelevantFiles(ctx context.Context, analysis models.RepositoryAnalysis, routePath string, ordinal int) ([]string, error) {
	candidates := candidatePaths(analysis)
	if len(candidates) == 0 {
		return nil, nil
	}

	resp, err := s.guard.Do(ctx, s.pool.ForRelevance(ordinal), codec.BuildRelevancePrompt(routePath, candidates))
	if err != nil {
		if errors.Is(err, llm.ErrExhausted) {
			return nil, err
		}
		s.log.Warn().Err(err).Str("route", routePath).Msg("relevance call failed; degrading")
		return nil, nil
	}
	return codec.DecodeRelevantFiles(resp), nil
}

// candidatePaths derives the relevance-scoring path list from the stored
// file tree, falling back to the key-file paths when the tree is absent.
func candidatePaths(analysis models.RepositoryAnalysis) []string {
	var paths []string
	for _, e := range analysis.FileTree {
		if e.Type == "blob" {
			paths = append(paths, e.Path)
		}
	}
	if len(paths) > 0 {
		return paths
	}
	for _, f := range analysis.KeyFiles {
		paths = append(paths, f.Path)
	}
	return paths
}

// fetchFiles pulls full contents for the given paths concurrently, as the
// calling user; fetch failures are skipped.
func (s *routeService) fetchFiles(ctx context.Context, id models.RepoIdentity, token string, paths []string) []models.KeyFile {
	if len(paths) == 0 {
		return nil
	}

	gh := s.gh.WithToken(token)
	contents := make([]string, len(paths))
	ok := make([]bool, len(paths))

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			content, err := gh.GetFileContent(ctx, id.Owner, id.Name, p, "")
			if err != nil {
				s.log.Debug().Err(err).Str("path", p).Msg("full-file fetch skipped")
				return
			}
			contents[i], ok[i] = content, true
		}(i, p)
	}
	wg.Wait()

	var files []models.KeyFile
	for i, p := range paths {
		if ok[i] {
			files = append(files, models.KeyFile{Path: p, Content: contents[i]})
		}
	}
	return files
}
