// Package extract recovers structured payloads embedded in free-form agent
// text.
//
// Agents embed self-describing JSON objects (visualizations) inside natural
// language in several ways: as the whole message, inside fenced code
// blocks, as bare objects in prose, wrapped in an XML tag, or identified
// only by a templateId field. Each embedding has its own extraction
// strategy; strategies are pure functions combined in priority order, with
// exact-duplicate objects removed by JSON deep equality.
//
// Malformed candidates are expected upstream noise: anything that fails to
// parse, or whose braces never balance (a payload truncated by the stream),
// is silently discarded.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Payload is one extracted structured object.
type Payload = map[string]any

// Identifying fields for structured payloads.
const (
	// TypeField tags a payload with its visualization type.
	TypeField = "visualizationType"

	// TemplateIDField is the secondary identifier; only values ending in
	// TemplateIDSuffix mark a payload.
	TemplateIDField = "templateId"

	// TemplateIDSuffix is the required suffix of an identifying templateId.
	TemplateIDSuffix = "-visualization"
)

// Strategy locates candidate payloads in text. Strategies never return an
// error: a candidate that cannot be recovered is dropped.
type Strategy func(text string) []Payload

var (
	fencedBlockRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	xmlWrapperRe  = regexp.MustCompile(`<visualization-data\s+type="([^"]+)"\s*>`)
)

// Extract runs all strategies against text in priority order and returns
// the merged, deduplicated payload set. If the whole text is itself a
// single tagged object it is returned immediately and no further strategy
// runs.
func Extract(text string) []Payload {
	if p, ok := wholeTextPayload(text); ok {
		return []Payload{p}
	}

	strategies := []Strategy{
		FencedBlocks,
		BraceScan,
		XMLWrapped,
		LooseTemplateID,
	}

	var merged []Payload
	for _, strategy := range strategies {
		merged = mergePayloads(merged, strategy(text))
	}
	return merged
}

// WholeText parses the trimmed text as a single tagged object.
func WholeText(text string) []Payload {
	if p, ok := wholeTextPayload(text); ok {
		return []Payload{p}
	}
	return nil
}

// FencedBlocks extracts tagged objects from ```json fenced code blocks,
// parsing each block independently.
func FencedBlocks(text string) []Payload {
	var out []Payload
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		if p, ok := parseTagged(m[1]); ok {
			out = append(out, p)
		}
	}
	return out
}

// BraceScan locates opening braces near occurrences of the identifying
// type field and recovers each candidate with a string-aware balanced scan.
func BraceScan(text string) []Payload {
	var out []Payload
	needle := `"` + TypeField + `"`
	for idx := 0; ; {
		rel := strings.Index(text[idx:], needle)
		if rel < 0 {
			break
		}
		at := idx + rel
		if start := lastOpenBrace(text[:at]); start >= 0 {
			if candidate, ok := scanBalanced(text, start); ok {
				if p, ok := parseTagged(candidate); ok {
					out = append(out, p)
				}
			}
		}
		idx = at + len(needle)
	}
	return out
}

// XMLWrapped extracts payloads wrapped in <visualization-data type="X">
// tags. The closing tag is optional since the payload may be truncated by
// the stream. The tag's type attribute is injected as the payload's type
// field when absent.
func XMLWrapped(text string) []Payload {
	var out []Payload
	for _, loc := range xmlWrapperRe.FindAllStringSubmatchIndex(text, -1) {
		vizType := text[loc[2]:loc[3]]
		inner := text[loc[1]:]
		start := strings.IndexByte(inner, '{')
		if start < 0 {
			continue
		}
		candidate, ok := scanBalanced(inner, start)
		if !ok {
			continue
		}
		var p Payload
		if err := json.Unmarshal([]byte(candidate), &p); err != nil {
			continue
		}
		if _, exists := p[TypeField]; !exists {
			p[TypeField] = vizType
		}
		out = append(out, p)
	}
	return out
}

// LooseTemplateID locates occurrences of the secondary identifying field
// and recovers the enclosing object by searching backward for the nearest
// unmatched opening brace.
func LooseTemplateID(text string) []Payload {
	var out []Payload
	needle := `"` + TemplateIDField + `"`
	for idx := 0; ; {
		rel := strings.Index(text[idx:], needle)
		if rel < 0 {
			break
		}
		at := idx + rel
		if start := unmatchedOpenBrace(text[:at]); start >= 0 {
			if candidate, ok := scanBalanced(text, start); ok {
				if p, ok := parseTagged(candidate); ok {
					out = append(out, p)
				}
			}
		}
		idx = at + len(needle)
	}
	return out
}

func wholeTextPayload(text string) (Payload, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}
	return parseTagged(trimmed)
}

// parseTagged parses candidate JSON and keeps it only when it carries an
// identifying tag.
func parseTagged(candidate string) (Payload, bool) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &p); err != nil {
		return nil, false
	}
	if !isTagged(p) {
		return nil, false
	}
	return p, true
}

func isTagged(p Payload) bool {
	if s, ok := p[TypeField].(string); ok && s != "" {
		return true
	}
	if s, ok := p[TemplateIDField].(string); ok && strings.HasSuffix(s, TemplateIDSuffix) {
		return true
	}
	return false
}

// scanBalanced scans forward from an opening brace, counting braces while
// tracking string state: an unescaped '"' toggles string mode and '\'
// escapes the next character, so braces inside string literals are not
// counted. It returns the candidate object text and whether the count
// returned to zero before the text ran out.
func scanBalanced(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// lastOpenBrace returns the index of the nearest '{' preceding the end of
// s, or -1.
func lastOpenBrace(s string) int {
	return strings.LastIndexByte(s, '{')
}

// unmatchedOpenBrace walks backward over s and returns the index of the
// nearest opening brace not matched by a closing brace seen on the way, or
// -1.
func unmatchedOpenBrace(s string) int {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// mergePayloads appends additions to base, dropping any payload already
// present by JSON deep equality. Order is preserved.
func mergePayloads(base []Payload, additions []Payload) []Payload {
	for _, add := range additions {
		addJSON, err := json.Marshal(add)
		if err != nil {
			continue
		}
		dup := false
		for _, existing := range base {
			existingJSON, err := json.Marshal(existing)
			if err != nil {
				continue
			}
			if jsonpatch.Equal(existingJSON, addJSON) {
				dup = true
				break
			}
		}
		if !dup {
			base = append(base, add)
		}
	}
	return base
}
