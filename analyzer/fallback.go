package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// Query-shape anchors for the deterministic fallback. These mirror the
// orchestrator's stage query templates.
var (
	ingredientsAnchor = regexp.MustCompile(`(?i)I have\s+(.*?)\.`)
	foodTypeAnchor    = regexp.MustCompile(`(?i)I prefer\s+(.*?)\s+food`)
	cuisineAnchor     = regexp.MustCompile(`(?i)interested in\s+(.*?)\s+cuisine`)
	recipeAnchor      = regexp.MustCompile(`(?i)recipe:\s*(.*?)(?:\s*\(id|\.|$)`)
	deliveryAnchor    = regexp.MustCompile(`(?i)via\s+(telegram|email)\s+to\s+(\S+)`)
)

// FallbackText synthesizes a deterministic stand-in for LLM output by
// heuristic parsing of the query. The text names the stage's intended next
// action, carries a high-uncertainty tag, and never carries an [ERROR:] tag,
// so it can never block a stage.
func FallbackText(query string, stage int) string {
	var b strings.Builder

	switch stage {
	case 1:
		ingredients := firstMatch(ingredientsAnchor, query, "the listed ingredients")
		b.WriteString("[REASONING TYPE: RETRIEVAL] The language model is unavailable, so I will proceed directly to a recipe search for: ")
		b.WriteString(ingredients)
		b.WriteString(".\n")
		b.WriteString("SELF-CHECK: Ingredients were taken verbatim from the request")
		if ft := firstMatch(foodTypeAnchor, query, ""); ft != "" {
			fmt.Fprintf(&b, "; food type preference is %s", ft)
		}
		if cu := firstMatch(cuisineAnchor, query, ""); cu != "" {
			fmt.Fprintf(&b, "; cuisine preference is %s", cu)
		}
		b.WriteString(". Ingredient validation was skipped.\n\n")
		b.WriteString("[UNCERTAINTY: High - this analysis was generated without LLM assistance; ingredients and preferences were not validated.]\n")
		b.WriteString("Next action: query the recipe search tool with the ingredients and preferences above.\n")

	case 2:
		title := firstMatch(recipeAnchor, query, "the selected recipe")
		b.WriteString("[REASONING TYPE: COMPARISON] The language model is unavailable, so I will proceed directly to retrieving details for ")
		b.WriteString(title)
		b.WriteString(" and comparing its required ingredients against the user's list.\n")
		b.WriteString("SELF-CHECK: Recipe selection and user ingredients were taken verbatim from the prior stage context.\n\n")
		b.WriteString("[UNCERTAINTY: High - this analysis was generated without LLM assistance; recipe selection was not validated.]\n")
		b.WriteString("Next action: fetch the recipe details and compute the missing-ingredient list.\n")

	case 3:
		method, dest := "the chosen channel", "the given destination"
		if m := deliveryAnchor.FindStringSubmatch(query); m != nil {
			method, dest = m[1], m[2]
		}
		fmt.Fprintf(&b, "[REASONING TYPE: LOGICAL] The language model is unavailable, so I will proceed directly to sending the shopping list via %s to %s.\n", method, dest)
		b.WriteString("SELF-CHECK: Delivery method and destination were taken verbatim from the request; the destination format was validated upstream.\n\n")
		b.WriteString("[UNCERTAINTY: High - this analysis was generated without LLM assistance.]\n")
		b.WriteString("Next action: call the delivery tool with the formatted shopping list.\n")
	}

	return b.String()
}

func firstMatch(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return fallback
}
