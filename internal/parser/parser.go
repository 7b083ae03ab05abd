// Package parser extracts structured findings from raw worker output.
//
// Model output is free text. The only lines that matter are those in the
// finding grammar:
//
//	[PRIORITY] Title | location | action
//
// Everything else (reasoning narrative, headers, chatter) is skipped.
// Parsing is a pure function of the worker result and never fails: a line
// that does not fit the grammar contributes nothing.
package parser

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/skovert/sentinel/internal/models"
)

// findingLine matches a bracketed priority token followed by the
// pipe-delimited fields.
var findingLine = regexp.MustCompile(`^\[([^\[\]]+)\]\s*(.+)$`)

// reasoningBlock matches the delimited thinking block emitted by
// reasoning-tuned models. Its contents become per-result rationale and are
// excluded from finding scanning.
var reasoningBlock = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// maxLineLen bounds scanner buffers; model output lines can be long but a
// finding line never legitimately approaches this.
const maxLineLen = 1 << 20

// Parse extracts findings from one worker result, in source line order.
// Results that did not succeed yield no findings regardless of whatever
// output was buffered before the failure.
func Parse(res models.WorkerResult) []models.Finding {
	if res.ExitStatus != models.ExitSuccess {
		return nil
	}

	rationale, body := splitReasoning(res.RawOutput)

	var findings []models.Finding
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := findingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		fields := strings.Split(m[2], "|")
		if len(fields) != 3 {
			// Wrong field count is not an error, just a non-finding line.
			continue
		}

		title := strings.TrimSpace(fields[0])
		location := strings.TrimSpace(fields[1])
		action := strings.TrimSpace(fields[2])
		if title == "" {
			continue
		}

		findings = append(findings, models.Finding{
			Priority:   models.NormalizePriority(m[1]),
			Title:      title,
			Location:   location,
			Action:     action,
			Rationale:  rationale,
			SourceTask: res.TaskName,
		})
	}

	return findings
}

// splitReasoning removes reasoning blocks from raw output and returns their
// combined contents alongside the remaining text. An unterminated opening
// marker is left in place; the line grammar will not match inside it anyway.
func splitReasoning(raw string) (rationale, body string) {
	matches := reasoningBlock.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return "", raw
	}

	var parts []string
	for _, m := range matches {
		if trimmed := strings.TrimSpace(m[1]); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n\n"), reasoningBlock.ReplaceAllString(raw, "")
}
