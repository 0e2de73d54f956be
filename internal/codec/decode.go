package codec

import (
	"encoding/json"
	"regexp"
	"strings"

	"repolens/internal/models"
)

// ArchitectureResult is the decoded architecture pass.
type ArchitectureResult struct {
	OverallFlow         string `json:"overall_flow"`
	ArchitectureDiagram string `json:"architecture_diagram"`
}

// TraceResult is the decoded deep-dive pass.
type TraceResult struct {
	FlowDiagram    string
	ExecutionTrace string
}

// Placeholders used when a section of model output cannot be recovered.
const (
	PlaceholderDiagram = "flowchart TD\n    A[\"Could not extract flow diagram\"]"
	PlaceholderTrace   = "The execution trace could not be extracted from the model output."
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*\\n(.*?)```")
	mermaidRe     = regexp.MustCompile(`(?s)(flowchart\s+(?:LR|TD|TB|RL|BT).*?)(?:\z|` + "```" + `)`)
)

// stripFences returns the interior of the first fenced code block when one
// is present, otherwise the whole trimmed response. Responses typically —
// but not reliably — wrap structured payloads in fences.
func stripFences(resp string) string {
	if m := fencedBlockRe.FindStringSubmatch(resp); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(resp)
}

// DecodeArchitecture parses the architecture response. The second return
// value reports whether real model output was parsed (true) or the fallback
// path was taken (false).
func DecodeArchitecture(resp string) (ArchitectureResult, bool) {
	var out ArchitectureResult
	if err := json.Unmarshal([]byte(stripFences(resp)), &out); err == nil && out.OverallFlow != "" {
		out.ArchitectureDiagram = RepairDiagram(out.ArchitectureDiagram)
		return out, true
	}

	// Narrow fallback: pull a diagram block out of the raw text and keep a
	// truncated slice of the rest as the narrative.
	if m := mermaidRe.FindStringSubmatch(resp); m != nil {
		out.ArchitectureDiagram = RepairDiagram(strings.TrimSpace(m[1]))
	} else {
		out.ArchitectureDiagram = PlaceholderDiagram
	}

	prose := mermaidRe.ReplaceAllString(resp, "")
	prose = strings.ReplaceAll(prose, "```", "")
	out.OverallFlow = truncate(strings.TrimSpace(prose), fallbackProseChars)

	return out, false
}

// DecodeRouteCatalog parses the route-catalog response. On failure it
// returns a single synthetic home-page entry rather than failing the call.
func DecodeRouteCatalog(resp string) ([]models.Route, bool) {
	var routes []models.Route
	if err := json.Unmarshal([]byte(stripFences(resp)), &routes); err == nil && len(routes) > 0 {
		for i := range routes {
			routes[i].Role = normalizeRole(routes[i].Role)
			if routes[i].Method == "" {
				routes[i].Method = "PAGE"
			}
		}
		return routes, true
	}

	return []models.Route{{
		Path:          "/",
		Method:        "PAGE",
		Functionality: "The application home page. The model response could not be parsed into a route catalog.",
		Contribution:  "Entry point of the application.",
		Role:          models.RoleUIRendering,
	}}, false
}

// DecodeRelevantFiles parses a JSON array of file paths. Non-string entries
// are discarded; a parse failure yields an empty list so the deep-dive flow
// can degrade to cached key files.
func DecodeRelevantFiles(resp string) []string {
	var raw []interface{}
	if err := json.Unmarshal([]byte(stripFences(resp)), &raw); err != nil {
		return nil
	}

	var paths []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			paths = append(paths, s)
		}
		if len(paths) == maxRelevancePaths {
			break
		}
	}
	return paths
}

// Section headers the trace prompt demands. Decoding splits on these; a
// missing section yields a placeholder, never an error.
const (
	diagramHeader = "## Flow Diagram"
	traceHeader   = "## Execution Trace"
)

// DecodeTrace splits the deep-dive response into its two sections.
func DecodeTrace(resp string) (TraceResult, bool) {
	out := TraceResult{
		FlowDiagram:    PlaceholderDiagram,
		ExecutionTrace: PlaceholderTrace,
	}
	parsed := true

	diagramIdx := strings.Index(resp, diagramHeader)
	traceIdx := strings.Index(resp, traceHeader)

	if diagramIdx >= 0 {
		end := len(resp)
		if traceIdx > diagramIdx {
			end = traceIdx
		}
		section := resp[diagramIdx+len(diagramHeader) : end]
		if d := stripFences(section); d != "" {
			out.FlowDiagram = RepairDiagram(d)
		} else {
			parsed = false
		}
	} else {
		parsed = false
	}

	if traceIdx >= 0 {
		if t := strings.TrimSpace(resp[traceIdx+len(traceHeader):]); t != "" {
			out.ExecutionTrace = t
		} else {
			parsed = false
		}
	} else {
		parsed = false
	}

	return out, parsed
}

// normalizeRole coerces anything outside the closed vocabulary to
// UI Rendering.
func normalizeRole(role string) string {
	for _, r := range models.RouteRoles {
		if strings.EqualFold(strings.TrimSpace(role), r) {
			return r
		}
	}
	return models.RoleUIRendering
}
