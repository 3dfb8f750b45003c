package match

import (
	"strings"

	"recipeagent"
)

// EstimateFromTitle synthesizes a stand-in ingredient list when the recipe
// provider could not supply real details. Every item is flagged as an
// estimate and carries id 0. The three defaults are always present; keyword
// matches on the title add to them.
func EstimateFromTitle(recipeTitle string) []recipeagent.IngredientDetail {
	title := strings.ToLower(recipeTitle)

	items := []recipeagent.IngredientDetail{
		estimate("Salt", 1, "tsp"),
		estimate("Pepper", 0.5, "tsp"),
		estimate("Cooking Oil", 1, "tbsp"),
	}

	switch {
	case containsAny(title, "pasta", "spaghetti", "lasagna", "macaroni"):
		items = append(items,
			estimate("Pasta", 8, "oz"),
			estimate("Tomato Sauce", 1, "can"),
		)
	case strings.Contains(title, "chicken"):
		items = append(items, estimate("Chicken", 1, "lb"))
	case strings.Contains(title, "salad"):
		items = append(items,
			estimate("Lettuce", 1, "head"),
			estimate("Vinaigrette", 2, "tbsp"),
		)
	case strings.Contains(title, "soup"):
		items = append(items, estimate("Broth", 4, "cups"))
	}

	return items
}

func estimate(name string, amount float64, unit string) recipeagent.IngredientDetail {
	return recipeagent.IngredientDetail{
		Name:       "(Estimate) " + name,
		Amount:     recipeagent.Float(amount),
		Unit:       unit,
		IsEstimate: true,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
