// Package match compares a recipe's required ingredients against what the
// user has on hand. The matching is intentionally lexical; see the heuristics
// on owned. It over-matches on shared words ("chicken stock" vs "chicken"),
// which is accepted behavior.
package match

import (
	"strings"

	"recipeagent"
)

// Missing returns the required ingredients the user does not appear to own,
// preserving required's order. Required entries with empty names are skipped.
func Missing(required []recipeagent.IngredientDetail, available []string) []recipeagent.IngredientDetail {
	normAvailable := make([]string, 0, len(available))
	for _, a := range available {
		if n := normalize(a); n != "" {
			normAvailable = append(normAvailable, n)
		}
	}

	missing := make([]recipeagent.IngredientDetail, 0)
	for _, req := range required {
		r := normalize(req.Name)
		if r == "" {
			continue
		}
		if !ownedBy(r, normAvailable) {
			missing = append(missing, req)
		}
	}
	return missing
}

func ownedBy(r string, available []string) bool {
	for _, u := range available {
		if owned(r, u) {
			return true
		}
	}
	return false
}

// owned reports whether a required ingredient r is covered by a user item u.
// Both are assumed normalized. Heuristics, any one suffices:
//  1. substring containment in either direction
//  2. trailing-s singular/plural equivalence
//  3. overlap of any whitespace token longer than two characters
func owned(r, u string) bool {
	if strings.Contains(r, u) || strings.Contains(u, r) {
		return true
	}
	if strings.HasSuffix(r, "s") && u == r[:len(r)-1] {
		return true
	}
	if strings.HasSuffix(u, "s") && r == u[:len(u)-1] {
		return true
	}
	for _, tok := range strings.Fields(r) {
		if len(tok) > 2 && strings.Contains(u, tok) {
			return true
		}
	}
	for _, tok := range strings.Fields(u) {
		if len(tok) > 2 && strings.Contains(r, tok) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
