package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"recipeagent"
)

// NoSelfCheck is the placeholder recorded when the response has no
// recognizable self-check section.
const NoSelfCheck = "No explicit self-check section found."

var (
	selfCheckRe   = regexp.MustCompile(`(?is)SELF-CHECK:?\s*(.*?)(?:\n\n|ERROR HANDLING:|$)`)
	reasoningRe   = regexp.MustCompile(`(?i)\[REASONING TYPE:\s*([A-Z_]+)\]`)
	uncertaintyRe = regexp.MustCompile(`(?i)\[UNCERTAINTY:\s*(.*?)\]`)
	errorTagRe    = regexp.MustCompile(`(?i)\[ERROR:\s*(.*?)\]`)
)

// ExtractMetadata parses the tag-bracketed metadata protocol out of a raw
// LLM response. Parsing is defensive: case-insensitive anchors, tolerant end
// markers, and nothing here is trusted to gate side effects.
func ExtractMetadata(text string) recipeagent.LLMMetadata {
	md := recipeagent.LLMMetadata{SelfCheck: NoSelfCheck}

	if m := selfCheckRe.FindStringSubmatch(text); m != nil {
		if sc := strings.TrimSpace(m[1]); sc != "" {
			md.SelfCheck = sc
		}
	}

	seen := make(map[string]bool)
	for _, m := range reasoningRe.FindAllStringSubmatch(text, -1) {
		tag := strings.ToUpper(m[1])
		if !seen[tag] {
			seen[tag] = true
			md.ReasoningTypes = append(md.ReasoningTypes, tag)
		}
	}
	// Set semantics; sorted for stable output.
	sort.Strings(md.ReasoningTypes)

	md.Uncertainties = uniqueTrimmed(uncertaintyRe.FindAllStringSubmatch(text, -1))
	md.Errors = uniqueTrimmed(errorTagRe.FindAllStringSubmatch(text, -1))
	return md
}

// uniqueTrimmed deduplicates submatches preserving insertion order.
func uniqueTrimmed(matches [][]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		v := strings.TrimSpace(m[1])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
