// Package codec builds LLM prompts from assembled evidence and decodes the
// model's free-text responses into typed results. Decoders never return an
// error: every decode path has a documented fallback value, so a single bad
// generation never fails a whole request.
package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"repolens/internal/models"
)

// Per-section caps applied before a section is inserted into a prompt, so
// total prompt size stays bounded regardless of repository size.
const (
	maxTreeSection     = 8000
	maxStackSection    = 3000
	maxKeyFileSection  = 24000
	maxCatalogFiles    = 8
	maxRelevancePaths  = 10
	maxTraceFileChars  = 12000
	fallbackProseChars = 600
)

// BuildArchitecturePrompt requests the broad architecture pass: a 150-250
// word flow narrative plus a left-to-right mermaid flowchart, returned as a
// single JSON object.
func BuildArchitecturePrompt(id models.RepoIdentity, meta models.RepoMetadata, stack models.TechStack, tree []models.TreeEntry, keyFiles []models.KeyFile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing the repository %s (%s).\n", id.ID(), meta.Language)
	if meta.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", meta.Description)
	}
	b.WriteString("\n## File tree\n")
	b.WriteString(truncate(formatTree(tree), maxTreeSection))
	b.WriteString("\n\n## Tech stack\n")
	b.WriteString(truncate(formatStack(stack), maxStackSection))
	b.WriteString("\n\n## Key files\n")
	b.WriteString(truncate(formatKeyFiles(keyFiles), maxKeyFileSection))

	b.WriteString(`

Produce exactly two outputs as a single JSON object:
{
  "overall_flow": "a 150-250 word narrative describing how data and control flow through the system",
  "architecture_diagram": "a mermaid flowchart"
}

Diagram rules, follow them strictly:
- start with "flowchart LR"
- node identifiers must be alphanumeric only; put human-readable text in quoted labels, e.g. A["API Server"]
- edge labels must be quoted: A -->|"request"| B
- no self-loops, and no edge label that repeats a node name
- no stray characters after an edge label, and no numeric prefixes on edge labels

Return only the JSON object.`)

	return b.String()
}

// BuildRouteCatalogPrompt requests the route-catalog pass: every
// route/page/endpoint as a structured JSON array. Source material is the
// README when present, otherwise up to maxCatalogFiles routing/entrypoint
// files.
func BuildRouteCatalogPrompt(id models.RepoIdentity, keyFiles []models.KeyFile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are cataloging every route, page and endpoint of the repository %s.\n\n", id.ID())
	b.WriteString("## Source material\n")
	b.WriteString(catalogSource(keyFiles))

	b.WriteString(`

List every route, page or API endpoint you can identify (at least five). Return a JSON array:
[
  {
    "path": "/api/users",
    "method": "GET" (an HTTP method, or "PAGE" for a rendered page),
    "functionality": "two to three sentences on what this route does",
    "contribution": "one to two sentences on how it contributes to the overall app",
    "role": "exactly one of: ` + strings.Join(models.RouteRoles, ", ") + `"
  }
]

Return only the JSON array.`)

	return b.String()
}

// catalogSource prefers a README; otherwise it concatenates the first
// maxCatalogFiles key files (which are already routing/entrypoint ranked).
func catalogSource(keyFiles []models.KeyFile) string {
	for _, f := range keyFiles {
		if strings.Contains(strings.ToLower(f.Path), "readme") {
			return fmt.Sprintf("### %s\n%s\n", f.Path, f.Content)
		}
	}

	var b strings.Builder
	n := 0
	for _, f := range keyFiles {
		if n == maxCatalogFiles {
			break
		}
		fmt.Fprintf(&b, "### %s\n%s\n\n", f.Path, f.Content)
		n++
	}
	return b.String()
}

// BuildRelevancePrompt asks which files most likely implement the given
// route: the entrypoint, the router/controller that matches it, and the core
// service or data-access files it calls into.
func BuildRelevancePrompt(routePath string, paths []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The route under analysis is: %s\n\n", routePath)
	b.WriteString("Repository file paths:\n")
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, `
Identify up to %d file paths from the list above that most likely implement
this route: the application entrypoint, the router or controller defining it,
and the core service/data-access files it uses. Return only a JSON array of
strings, e.g. ["src/index.ts", "src/routes/users.ts"].`, maxRelevancePaths)

	return b.String()
}

// BuildTracePrompt requests the per-route deep dive: a top-down mermaid
// flowchart plus a numbered execution trace. File contents are line-numbered
// so the model can reference real line ranges instead of inventing code.
func BuildTracePrompt(routePath string, files []models.KeyFile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Trace the execution of the route %s through this code.\n\n", routePath)
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n%s\n\n", f.Path, truncate(numberLines(f.Content), maxTraceFileChars))
	}

	b.WriteString(`Respond with exactly two markdown sections:

## Flow Diagram
A mermaid flowchart starting with "flowchart TD". Use plain unlabeled arrows
(A --> B) only. Node identifiers alphanumeric, labels quoted.

## Execution Trace
A numbered trace. Each step must have this shape:

**Step 1: <short title>**
Location: <file and function>
<<<FILE:path/to/file.ts:10-25>>>
<two or more sentences explaining what happens in this step>

The <<<FILE:path:startLine-endLine>>> marker must reference real line numbers
from the numbered content above. Never write code yourself; only reference it.`)

	return b.String()
}

// ---- section formatting -------------------------------------------------------

func formatTree(tree []models.TreeEntry) string {
	var b strings.Builder
	for _, e := range tree {
		if e.Type != "blob" {
			continue
		}
		b.WriteString(e.Path)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatStack(stack models.TechStack) string {
	var b strings.Builder
	if stack.Frontend != nil {
		fmt.Fprintf(&b, "Frontend (%s): %s\n", stack.Frontend.Path, strings.Join(stack.Frontend.Dependencies, ", "))
	}
	if stack.Backend != nil {
		fmt.Fprintf(&b, "Backend (%s): %s\n", stack.Backend.Path, strings.Join(stack.Backend.Dependencies, ", "))
	}
	if b.Len() == 0 {
		return "unknown\n"
	}
	return b.String()
}

func formatKeyFiles(files []models.KeyFile) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n%s\n\n", f.Path, f.Content)
	}
	return b.String()
}

// numberLines prefixes each line with its 1-based number.
func numberLines(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d | %s\n", i+1, line)
	}
	return b.String()
}

// truncate clips s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
