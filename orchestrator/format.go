package orchestrator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"recipeagent"
)

var spaceRunRe = regexp.MustCompile(` {2,}`)

// ShoppingListBody renders the delivered message. The format is stable:
// header line, blank line, then one "- <amount> <unit> <name>" line per item
// with inner space runs collapsed. An empty list gets the all-set line.
func ShoppingListBody(title string, items []recipeagent.IngredientDetail) string {
	var b strings.Builder
	b.WriteString("Shopping List for: ")
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(items) == 0 {
		b.WriteString("(You seem to have all the ingredients!)")
		return b.String()
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		var parts []string
		if it.Amount != nil {
			parts = append(parts, strconv.FormatFloat(*it.Amount, 'f', -1, 64))
		}
		if it.Unit != "" {
			parts = append(parts, it.Unit)
		}
		parts = append(parts, it.Name)
		line := strings.TrimSpace(spaceRunRe.ReplaceAllString(strings.Join(parts, " "), " "))
		lines = append(lines, "- "+line)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// truncate caps s at n bytes, appending an ellipsis when it was cut. The cut
// backs up to a rune boundary so the result stays valid UTF-8. Used to keep
// prior-stage context injected into prompts bounded.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
