package evidence

import (
	"strings"

	"repolens/internal/models"
)

// keyFilePatterns are evaluated class by class, in priority order: routing
// and controller files first, then entrypoints, then config manifests, then
// READMEs. Each class is exhausted before the next is considered.
var keyFilePatterns = [][]string{
	{
		"routes", "router", "controller", "urls.py", "views.py",
		"handler", "endpoint", "api/",
	},
	{
		"main.", "index.", "app.", "server.", "cmd/",
	},
	{
		"package.json", "go.mod", "requirements.txt", "settings.py",
		"config", "cargo.toml", "pom.xml",
	},
	{
		"readme",
	},
}

// SelectKeyFilePaths scores the tree against the fixed pattern classes and
// returns up to MaxKeyFiles unique blob paths.
func SelectKeyFilePaths(tree []models.TreeEntry) []string {
	seen := make(map[string]bool)
	var selected []string

	for _, class := range keyFilePatterns {
		for _, pattern := range class {
			for _, e := range tree {
				if e.Type != "blob" {
					continue
				}
				lower := strings.ToLower(e.Path)
				if !strings.Contains(lower, pattern) {
					continue
				}
				if seen[e.Path] {
					continue
				}
				seen[e.Path] = true
				selected = append(selected, e.Path)
				if len(selected) == models.MaxKeyFiles {
					return selected
				}
			}
		}
	}
	return selected
}
