package evidence

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"repolens/internal/github"
	"repolens/internal/models"
)

const maxManifestRaw = 2000

// manifestCandidate is one probe target. role is "frontend", "backend" or
// "" when the role must be inferred from the manifest content.
type manifestCandidate struct {
	path string
	kind string // "npm" | "lines"
	role string
}

// manifestCandidates is the fixed, ordered probe list: root manifests first,
// then the common frontend/backend subdirectories.
var manifestCandidates = []manifestCandidate{
	{path: "package.json", kind: "npm", role: ""},
	{path: "frontend/package.json", kind: "npm", role: "frontend"},
	{path: "client/package.json", kind: "npm", role: "frontend"},
	{path: "web/package.json", kind: "npm", role: "frontend"},
	{path: "app/package.json", kind: "npm", role: "frontend"},
	{path: "backend/package.json", kind: "npm", role: "backend"},
	{path: "server/package.json", kind: "npm", role: "backend"},
	{path: "api/package.json", kind: "npm", role: "backend"},
	{path: "go.mod", kind: "lines", role: "backend"},
	{path: "backend/go.mod", kind: "lines", role: "backend"},
	{path: "server/go.mod", kind: "lines", role: "backend"},
	{path: "requirements.txt", kind: "lines", role: "backend"},
	{path: "backend/requirements.txt", kind: "lines", role: "backend"},
	{path: "server/requirements.txt", kind: "lines", role: "backend"},
	{path: "Cargo.toml", kind: "lines", role: "backend"},
	{path: "pom.xml", kind: "lines", role: "backend"},
	{path: "Gemfile", kind: "lines", role: "backend"},
	{path: "composer.json", kind: "npm", role: "backend"},
}

// Keyword vocabularies used to classify a root-level package.json when no
// explicit frontend/backend path matched.
var (
	frontendIndicators = []string{
		"react", "vue", "angular", "svelte", "next", "nuxt", "vite",
		"webpack", "tailwindcss",
	}
	backendIndicators = []string{
		"express", "fastify", "koa", "@nestjs", "hapi", "mongoose",
		"sequelize", "prisma", "pg", "mysql",
	}
)

// detectTechStack probes every manifest candidate concurrently. A missing
// file is not an error, just absence. Explicit frontend/backend path matches
// win over root-level inference.
func (a *Assembler) detectTechStack(ctx context.Context, gh *github.Client, id models.RepoIdentity) models.TechStack {
	contents := make([]string, len(manifestCandidates))
	found := make([]bool, len(manifestCandidates))

	var wg sync.WaitGroup
	for i, cand := range manifestCandidates {
		wg.Add(1)
		go func(i int, cand manifestCandidate) {
			defer wg.Done()
			content, err := gh.GetFileContent(ctx, id.Owner, id.Name, cand.path, "")
			if err != nil {
				return
			}
			contents[i], found[i] = content, true
		}(i, cand)
	}
	wg.Wait()

	var stack models.TechStack
	var rootNpm *models.Manifest

	for i, cand := range manifestCandidates {
		if !found[i] {
			continue
		}
		m := parseManifest(cand, contents[i])

		switch {
		case cand.role == "frontend" && stack.Frontend == nil:
			stack.Frontend = m
		case cand.role == "backend" && stack.Backend == nil:
			stack.Backend = m
		case cand.role == "" && rootNpm == nil:
			rootNpm = m
		}
	}

	// A root package.json only fills a slot no explicit path claimed; its
	// role is inferred from the dependency vocabulary.
	if rootNpm != nil {
		switch classifyManifest(rootNpm) {
		case "backend":
			if stack.Backend == nil {
				stack.Backend = rootNpm
			}
		default:
			if stack.Frontend == nil {
				stack.Frontend = rootNpm
			} else if stack.Backend == nil {
				stack.Backend = rootNpm
			}
		}
	}

	return stack
}

// parseManifest extracts dependency names. npm-style manifests carry
// structured dependency maps; everything else is split into non-empty
// non-comment lines.
func parseManifest(cand manifestCandidate, content string) *models.Manifest {
	m := &models.Manifest{
		Path: cand.path,
		Raw:  Truncate(content, maxManifestRaw),
	}

	if cand.kind == "npm" {
		var parsed struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
			Require         map[string]string `json:"require"` // composer.json
		}
		if err := json.Unmarshal([]byte(content), &parsed); err == nil {
			m.Dependencies = sortedKeys(parsed.Dependencies)
			if len(m.Dependencies) == 0 {
				m.Dependencies = sortedKeys(parsed.Require)
			}
			m.DevDependencies = sortedKeys(parsed.DevDependencies)
			return m
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		m.Dependencies = append(m.Dependencies, line)
	}
	return m
}

// classifyManifest decides frontend vs backend for a root manifest by
// keyword match. Frontend indicators are checked first; a tie goes to
// frontend since most root-level Node projects are UIs.
func classifyManifest(m *models.Manifest) string {
	all := strings.ToLower(strings.Join(m.Dependencies, " ") + " " + strings.Join(m.DevDependencies, " "))
	for _, kw := range frontendIndicators {
		if strings.Contains(all, kw) {
			return "frontend"
		}
	}
	for _, kw := range backendIndicators {
		if strings.Contains(all, kw) {
			return "backend"
		}
	}
	return "frontend"
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
