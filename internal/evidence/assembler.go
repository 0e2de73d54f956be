// Package evidence gathers everything the LLM prompts are built from:
// repository metadata, commit and contributor summaries, tech-stack
// detection, the filtered file tree, and a capped set of key-file contents.
package evidence

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"repolens/internal/github"
	"repolens/internal/models"
)

// Bundle is the assembled evidence for one repository. It exists only for
// the duration of one orchestration call; the orchestrator copies it into
// the persisted analysis document.
type Bundle struct {
	Metadata     models.RepoMetadata
	Commits      models.CommitSummary
	Contributors []models.Contributor
	Status       models.RepoStatus
	TechStack    models.TechStack
	FileTree     []models.TreeEntry
	KeyFiles     []models.KeyFile
}

// Assembler produces evidence bundles from the GitHub API.
type Assembler struct {
	gh  *github.Client
	log zerolog.Logger
}

// NewAssembler wires the GitHub client.
func NewAssembler(gh *github.Client, log zerolog.Logger) *Assembler {
	return &Assembler{gh: gh, log: log.With().Str("component", "evidence").Logger()}
}

// Assemble gathers all evidence for the repository. Metadata, commits,
// contributors, repo status and tech stack are fetched concurrently; the
// file tree needs the default branch (from metadata) and key files need the
// tree, so those two run afterwards. Only a metadata failure is fatal —
// every secondary fetch degrades to a zero value.
func (a *Assembler) Assemble(ctx context.Context, id models.RepoIdentity, token string) (Bundle, error) {
	gh := a.gh.WithToken(token)

	var (
		bundle  Bundle
		metaErr error
		wg      sync.WaitGroup
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		bundle.Metadata, metaErr = gh.GetRepository(ctx, id.Owner, id.Name)
	}()
	go func() {
		defer wg.Done()
		commits, err := gh.ListCommits(ctx, id.Owner, id.Name, models.MaxRecentCommits)
		if err != nil {
			a.log.Warn().Err(err).Str("repo", id.ID()).Msg("commit listing failed")
			return
		}
		bundle.Commits.Recent = commits
	}()
	go func() {
		defer wg.Done()
		contributors, err := gh.ListContributors(ctx, id.Owner, id.Name, models.MaxContributors)
		if err != nil {
			a.log.Warn().Err(err).Str("repo", id.ID()).Msg("contributor listing failed")
			return
		}
		bundle.Contributors = contributors
	}()
	go func() {
		defer wg.Done()
		bundle.Status = a.fetchStatus(ctx, gh, id)
	}()
	go func() {
		defer wg.Done()
		bundle.TechStack = a.detectTechStack(ctx, gh, id)
	}()
	wg.Wait()

	if metaErr != nil {
		return Bundle{}, metaErr
	}

	// Approximate total: summed contributor contributions. Known to diverge
	// from the true count (merges, force pushes); cheaper than paginating
	// the full commit history.
	for _, c := range bundle.Contributors {
		bundle.Commits.Total += c.Contributions
	}
	if bundle.Commits.Total == 0 {
		bundle.Commits.Total = len(bundle.Commits.Recent)
	}

	tree, err := gh.GetTree(ctx, id.Owner, id.Name, bundle.Metadata.DefaultBranch)
	if err != nil {
		a.log.Warn().Err(err).Str("repo", id.ID()).Msg("tree fetch failed")
	}
	bundle.FileTree = FilterTree(tree)

	bundle.KeyFiles = a.fetchKeyFiles(ctx, gh, id, SelectKeyFilePaths(bundle.FileTree))

	return bundle, nil
}

// fetchStatus obtains issue/PR/deployment counts. Every count is its own
// call and fails to zero on its own.
func (a *Assembler) fetchStatus(ctx context.Context, gh *github.Client, id models.RepoIdentity) models.RepoStatus {
	var (
		status models.RepoStatus
		wg     sync.WaitGroup
	)

	count := func(dst *int, query string) {
		defer wg.Done()
		n, err := gh.CountSearchItems(ctx, query)
		if err != nil {
			a.log.Debug().Err(err).Str("query", query).Msg("count failed")
			return
		}
		*dst = n
	}

	repo := "repo:" + id.ID()
	wg.Add(5)
	go count(&status.OpenIssues, repo+" type:issue state:open")
	go count(&status.ClosedIssues, repo+" type:issue state:closed")
	go count(&status.OpenPRs, repo+" type:pr state:open")
	go count(&status.ClosedPRs, repo+" type:pr state:closed")
	go func() {
		defer wg.Done()
		n, err := gh.CountDeployments(ctx, id.Owner, id.Name)
		if err != nil {
			a.log.Debug().Err(err).Msg("deployment count failed")
			return
		}
		status.Deployments = n
	}()
	wg.Wait()

	return status
}

// fetchKeyFiles pulls content for the selected paths. Files that fail to
// fetch (moved, binary, deleted) are skipped, not fatal.
func (a *Assembler) fetchKeyFiles(ctx context.Context, gh *github.Client, id models.RepoIdentity, paths []string) []models.KeyFile {
	type result struct {
		idx     int
		content string
		ok      bool
	}

	results := make([]result, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			content, err := gh.GetFileContent(ctx, id.Owner, id.Name, p, "")
			if err != nil {
				a.log.Debug().Err(err).Str("path", p).Msg("key file fetch skipped")
				return
			}
			results[i] = result{idx: i, content: Truncate(content, models.MaxKeyFileContent), ok: true}
		}(i, p)
	}
	wg.Wait()

	files := make([]models.KeyFile, 0, len(paths))
	for i, r := range results {
		if r.ok {
			files = append(files, models.KeyFile{Path: paths[i], Content: r.content})
		}
	}
	return files
}

// excludedTreePrefixes are vendored or VCS-internal directories never worth
// showing the model.
var excludedTreePrefixes = []string{
	".git/", "node_modules/", "vendor/", "dist/", "build/", "out/",
	".next/", ".nuxt/", "__pycache__/", ".idea/", ".vscode/", "coverage/",
	"target/", ".venv/",
}

// FilterTree drops vendored/VCS-internal entries and caps the tree at
// MaxTreeEntries.
func FilterTree(tree []models.TreeEntry) []models.TreeEntry {
	filtered := make([]models.TreeEntry, 0, len(tree))
	for _, e := range tree {
		if excludedPath(e.Path) {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) == models.MaxTreeEntries {
			break
		}
	}
	return filtered
}

func excludedPath(p string) bool {
	for _, prefix := range excludedTreePrefixes {
		if strings.HasPrefix(p, prefix) || strings.Contains(p, "/"+prefix) {
			return true
		}
	}
	return false
}

// Truncate clips s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
