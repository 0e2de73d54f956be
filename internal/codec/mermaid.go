package codec

import "regexp"

// The model recurringly emits `-->|label|>` where mermaid expects
// `-->|label|`. Fixing it here avoids a re-query.
var brokenEdgeLabelRe = regexp.MustCompile(`(-->\|[^|\n]*\|)>`)

// RepairDiagram applies deterministic fixes to a mermaid diagram string
// before it is parsed or handed to the renderer. Input without the defect
// passes through unchanged.
func RepairDiagram(diagram string) string {
	return brokenEdgeLabelRe.ReplaceAllString(diagram, "$1")
}
