package recipeagent

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RecipeSource is the recipe-provider surface the orchestrator depends on.
// The int return is the number of retries the adapter consumed.
type RecipeSource interface {
	SearchRecipes(ctx context.Context, ingredients []string, prefs Preferences) ([]RecipeCandidate, int, error)
	GetRecipeDetails(ctx context.Context, id int) (RecipeDetail, int, error)
}

// Deliverer sends a finished shopping list to one destination. The subject is
// only meaningful for email-style channels; messaging channels may ignore it.
type Deliverer interface {
	Deliver(ctx context.Context, destination, subject, body string) (int, error)
}

type DeliveryMethod string

const (
	DeliveryTelegram DeliveryMethod = "telegram"
	DeliveryEmail    DeliveryMethod = "email"
)

const (
	FoodTypeAny           = "any"
	FoodTypeVegetarian    = "vegetarian"
	FoodTypeVegan         = "vegan"
	FoodTypeNonVegetarian = "non-vegetarian"
)

// Preferences holds the user's dietary preferences. Cuisine is a free-form
// tag where "any" means unset.
type Preferences struct {
	FoodType string `json:"foodType"`
	Cuisine  string `json:"cuisine"`
}

// ValidFoodType reports whether ft is one of the accepted food types.
func ValidFoodType(ft string) bool {
	switch ft {
	case FoodTypeAny, FoodTypeVegetarian, FoodTypeVegan, FoodTypeNonVegetarian:
		return true
	}
	return false
}

// SelectedRecipe identifies the recipe the user picked after stage 1.
type SelectedRecipe struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// IngredientDetail is a single ingredient, either from the recipe provider or
// synthesized as an estimate. ID is 0 for synthetic entries.
type IngredientDetail struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Amount     *float64 `json:"amount,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	IsEstimate bool     `json:"is_estimate"`
}

// RecipeCandidate is one stage-1 search hit. Field names follow the provider's
// wire format so the extension UI can render them unchanged.
type RecipeCandidate struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ImageURL    string `json:"image,omitempty"`
	UsedCount   int    `json:"usedIngredientCount"`
	MissedCount int    `json:"missedIngredientCount"`
}

// RecipeDetail is the stage-2 recipe lookup result.
type RecipeDetail struct {
	ID                  int
	Title               string
	RequiredIngredients []IngredientDetail
}

// LLMMetadata is the tagged metadata parsed out of one raw LLM response.
type LLMMetadata struct {
	SelfCheck      string   `json:"selfCheck"`
	ReasoningTypes []string `json:"reasoningTypes"`
	Uncertainties  []string `json:"uncertainties"`
	Errors         []string `json:"errors"`
}

// Float returns a pointer to v, for optional ingredient amounts.
func Float(v float64) *float64 { return &v }
