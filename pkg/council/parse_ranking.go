package council

import (
	"regexp"
	"strconv"
	"strings"
)

// parseRanking parses free-text LLM output into an ordered list of
// labels, trying each recognized format in turn (spec.md §4.3). If
// validLabels is non-empty, extracted tokens are matched against it
// case-insensitively; anything that doesn't match a valid label is
// discarded. If ensureAll is set, any validLabels not seen in the parsed
// output are appended to the tail in their original order. Returns nil
// on complete failure.
func parseRanking(text string, validLabels []string, ensureAll bool) []string {
	strategies := []func(string, []string) []string{
		parseArrowNotation,
		parseNumberedList,
		parseReverseRanking,
		parseTableFormat,
		parseSimpleList,
		parseResponseLabels,
		parseNaturalLanguage,
	}

	var result []string
	for _, strategy := range strategies {
		if r := strategy(text, validLabels); len(r) >= 2 {
			result = r
			break
		}
	}

	if result == nil {
		if ensureAll && len(validLabels) > 0 {
			return ensureAllIncluded(nil, validLabels)
		}
		return nil
	}

	if len(validLabels) > 0 {
		result = filterToValid(result, validLabels)
	}

	if ensureAll && len(validLabels) > 0 {
		result = ensureAllIncluded(result, validLabels)
	}

	return result
}

var idPattern = regexp.MustCompile(`(?i)\b([A-Za-z]\d+)\b`)

// extractID strips surrounding punctuation from a candidate token and
// resolves it to one of validLabels, case-insensitively, falling back to
// substring matching.
func extractID(token string, validLabels []string) (string, bool) {
	token = strings.Trim(token, "()[]{}=:;,. \t\n")
	if token == "" {
		return "", false
	}

	if m := idPattern.FindString(token); m != "" {
		token = m
	}

	if len(validLabels) == 0 {
		if idPattern.MatchString(token) {
			return strings.ToUpper(token), true
		}
		return "", false
	}

	for _, v := range validLabels {
		if strings.EqualFold(v, token) {
			return v, true
		}
	}
	// Substring fallback: token contains or is contained by a valid label.
	lowerToken := strings.ToLower(token)
	for _, v := range validLabels {
		lowerV := strings.ToLower(v)
		if strings.Contains(lowerToken, lowerV) || strings.Contains(lowerV, lowerToken) {
			return v, true
		}
	}
	return "", false
}

func filterToValid(tokens []string, validLabels []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool)
	for _, t := range tokens {
		if id, ok := extractID(t, validLabels); ok && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

func ensureAllIncluded(result []string, validLabels []string) []string {
	present := make(map[string]bool, len(result))
	for _, r := range result {
		present[r] = true
	}
	for _, v := range validLabels {
		if !present[v] {
			result = append(result, v)
		}
	}
	return result
}

var arrowSplit = regexp.MustCompile(`>>|→|>`)

// parseArrowNotation handles "A>B>C", "A>>B>>C", "A→B→C" (and mixes).
func parseArrowNotation(text string, validLabels []string) []string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.ContainsAny(line, ">→") {
			continue
		}
		parts := arrowSplit.Split(line, -1)
		if len(parts) < 2 {
			continue
		}
		var ids []string
		for _, p := range parts {
			if id, ok := extractID(p, validLabels); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) >= 2 {
			return ids
		}
	}
	return nil
}

var numberedLinePattern = regexp.MustCompile(`^\s*(?:(\d+)[.)]|(\d+)(?:st|nd|rd|th)[:.]?|[*\-•])\s*(.+)$`)

// parseNumberedList handles "1. A1", "1st: A1", "* A1", "- A1" per line.
func parseNumberedList(text string, validLabels []string) []string {
	var ids []string
	for _, line := range strings.Split(text, "\n") {
		m := numberedLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := m[3]
		if id, ok := extractID(rest, validLabels); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) >= 2 {
		return ids
	}
	return nil
}

var reverseLabelPattern = regexp.MustCompile(`(?i)^(best|second|third|fourth|fifth|worst)\s*[:\-]\s*(.+)$`)

var reverseOrder = map[string]int{
	"best":   0,
	"second": 1,
	"third":  2,
	"fourth": 3,
	"fifth":  4,
	"worst":  -1, // resolved against count at assembly time
}

type rankEntry struct {
	order int
	id    string
}

// parseReverseRanking handles "Best: A1", "Second: A2", ..., "Worst: A5"
// style labeled lines, in any order of appearance.
func parseReverseRanking(text string, validLabels []string) []string {
	var entries []rankEntry
	var worstID string
	for _, line := range strings.Split(text, "\n") {
		m := reverseLabelPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		key := strings.ToLower(m[1])
		id, ok := extractID(m[2], validLabels)
		if !ok {
			continue
		}
		if key == "worst" {
			worstID = id
			continue
		}
		entries = append(entries, rankEntry{order: reverseOrder[key], id: id})
	}
	if len(entries) == 0 && worstID == "" {
		return nil
	}
	sortEntriesByOrder(entries)
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	if worstID != "" {
		ids = append(ids, worstID)
	}
	if len(ids) >= 2 {
		return ids
	}
	return nil
}

func sortEntriesByOrder(entries []rankEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].order > entries[j].order; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// parseTableFormat handles a markdown table with a rank column, e.g.
// "| 1 | A1 | ... |" per row.
func parseTableFormat(text string, validLabels []string) []string {
	type rowRank struct {
		rank int
		id   string
	}
	var rows []rowRank
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		if len(cells) < 2 {
			continue
		}
		rankStr := strings.TrimSpace(cells[0])
		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			continue
		}
		var id string
		found := false
		for _, cell := range cells[1:] {
			if candidate, ok := extractID(cell, validLabels); ok {
				id = candidate
				found = true
				break
			}
		}
		if found {
			rows = append(rows, rowRank{rank: rank, id: id})
		}
	}
	if len(rows) < 2 {
		return nil
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j-1].rank > rows[j].rank; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}

var simpleListSplit = regexp.MustCompile(`[,;|\n]`)

// parseSimpleList handles comma/semicolon/pipe/newline-separated lists,
// falling back to whitespace-separated scanning of bare id-shaped
// tokens when no separators are found and no validLabels are given.
func parseSimpleList(text string, validLabels []string) []string {
	if simpleListSplit.MatchString(text) {
		parts := simpleListSplit.Split(text, -1)
		var ids []string
		for _, p := range parts {
			if id, ok := extractID(p, validLabels); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) >= 2 {
			return ids
		}
	}

	if len(validLabels) > 0 {
		var ids []string
		for _, v := range validLabels {
			re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(v) + `\b`)
			if re.MatchString(text) {
				ids = append(ids, v)
			}
		}
		if len(ids) >= 2 {
			return ids
		}
		return nil
	}

	matches := idPattern.FindAllString(text, -1)
	if len(matches) >= 2 {
		seen := make(map[string]bool)
		var ids []string
		for _, m := range matches {
			u := strings.ToUpper(m)
			if !seen[u] {
				ids = append(ids, u)
				seen[u] = true
			}
		}
		if len(ids) >= 2 {
			return ids
		}
	}
	return nil
}

var responseLabelPattern = regexp.MustCompile(`(?i)response\s+([A-Za-z]\d*)`)

// parseResponseLabels handles "1. Response A", "- Response B", "Response
// A:" phrasing. Only applied when validLabels themselves look like
// "Response ..." style identifiers is not required by the caller; this
// mirrors the Python implementation's gate on validLabels content, which
// we relax here to "called only as one strategy among several" since Go
// callers already supply plain labels like "A1".
func parseResponseLabels(text string, validLabels []string) []string {
	matches := responseLabelPattern.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		return nil
	}
	var ids []string
	for _, m := range matches {
		if id, ok := extractID(m[1], validLabels); ok {
			ids = append(ids, id)
		} else if len(validLabels) == 0 {
			ids = append(ids, strings.ToUpper(m[1]))
		}
	}
	if len(ids) >= 2 {
		return ids
	}
	return nil
}

// parseNaturalLanguage is the last-resort strategy: find every mention
// of a valid label by position in the text and return them in
// first-mention order, deduplicated. Without validLabels this strategy
// cannot disambiguate arbitrary prose, so it returns nil.
func parseNaturalLanguage(text string, validLabels []string) []string {
	if len(validLabels) == 0 {
		return nil
	}
	type mention struct {
		pos int
		id  string
	}
	var mentions []mention
	for _, v := range validLabels {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(v) + `\b`)
		loc := re.FindStringIndex(text)
		if loc != nil {
			mentions = append(mentions, mention{pos: loc[0], id: v})
		}
	}
	if len(mentions) < 2 {
		return nil
	}
	for i := 1; i < len(mentions); i++ {
		for j := i; j > 0 && mentions[j-1].pos > mentions[j].pos; j-- {
			mentions[j-1], mentions[j] = mentions[j], mentions[j-1]
		}
	}
	ids := make([]string, len(mentions))
	for i, m := range mentions {
		ids[i] = m.id
	}
	return ids
}
