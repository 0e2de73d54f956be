package codec

import (
	"regexp"
	"strconv"
	"strings"

	"repolens/internal/models"
)

var (
	stepMarkerRe = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Step\s+(\d+)\s*:\s*(.+?)(?:\*\*)?\s*$`)
	locationRe   = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Location(?:\*\*)?\s*:\s*(.+)$`)
	codeBlockRe  = regexp.MustCompile("(?s)```([a-zA-Z0-9]*)\\s*\\n(.*?)```")
)

// ParseSteps turns raw execution-trace text into ordered step records by
// locating "Step N: title" markers. A trace with no recognizable markers
// yields zero steps — the caller falls back to displaying the raw text, so
// this is not an error condition.
func ParseSteps(trace string) []models.ExecutionStep {
	markers := stepMarkerRe.FindAllStringSubmatchIndex(trace, -1)
	if len(markers) == 0 {
		return nil
	}

	steps := make([]models.ExecutionStep, 0, len(markers))
	for i, m := range markers {
		end := len(trace)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		span := trace[m[1]:end]

		number, _ := strconv.Atoi(trace[m[2]:m[3]])
		step := models.ExecutionStep{
			Number: number,
			Title:  strings.TrimSpace(trace[m[4]:m[5]]),
		}

		if loc := locationRe.FindStringSubmatch(span); loc != nil {
			step.Location = strings.TrimSpace(loc[1])
		}

		explanation := span
		if code := codeBlockRe.FindStringSubmatchIndex(span); code != nil {
			step.Language = span[code[2]:code[3]]
			step.Code = strings.TrimRight(span[code[4]:code[5]], "\n")
			explanation = span[code[1]:]
		}

		explanation = locationRe.ReplaceAllString(explanation, "")
		if cut := strings.Index(explanation, "\n\n\n"); cut >= 0 {
			explanation = explanation[:cut]
		}
		step.Explanation = strings.TrimSpace(explanation)

		steps = append(steps, step)
	}
	return steps
}
