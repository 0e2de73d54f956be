package codec

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"repolens/internal/models"
)

// Source-reference markers the trace prompt requires the model to emit:
// <<<FILE:path:start-end>>>. The end line is optional and defaults to
// start+30.
var sourceRefRe = regexp.MustCompile(`<<<FILE:([^:>]+):(\d+)(?:-(\d+))?>>>`)

const defaultSnippetSpan = 30

// ResolveSourceRefs replaces every source-reference marker in trace with a
// fenced snippet of the literal referenced lines. Files fetched for this
// call are searched first, then the repository's cached key files. A marker
// naming an absent file resolves to an explicit not-found placeholder —
// never to silently dropped text.
func ResolveSourceRefs(trace string, fresh, cached []models.KeyFile) string {
	return sourceRefRe.ReplaceAllStringFunc(trace, func(marker string) string {
		m := sourceRefRe.FindStringSubmatch(marker)
		path := m[1]
		start, _ := strconv.Atoi(m[2])
		end := start + defaultSnippetSpan
		if m[3] != "" {
			end, _ = strconv.Atoi(m[3])
		}

		content, ok := lookupFile(path, fresh, cached)
		if !ok {
			return fmt.Sprintf("```text\nfile not found: %s\n```", path)
		}

		snippet := sliceLines(content, start, end)
		return fmt.Sprintf("```%s\n%s\n```", languageTag(path), snippet)
	})
}

func lookupFile(path string, fresh, cached []models.KeyFile) (string, bool) {
	for _, set := range [][]models.KeyFile{fresh, cached} {
		for _, f := range set {
			if f.Path == path {
				return f.Content, true
			}
		}
	}
	return "", false
}

// sliceLines extracts lines start..end, 1-based and inclusive, clamped to
// the file's bounds.
func sliceLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// languageTags maps file extensions to fence language tags. Unknown
// extensions fall back to "text".
var languageTags = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".java": "java",
	".rs":   "rust",
	".php":  "php",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".sh":   "bash",
	".sql":  "sql",
	".html": "html",
	".css":  "css",
	".json": "json",
	".yml":  "yaml",
	".yaml": "yaml",
}

func languageTag(path string) string {
	if tag, ok := languageTags[strings.ToLower(filepath.Ext(path))]; ok {
		return tag
	}
	return "text"
}
