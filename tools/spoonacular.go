package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"recipeagent"
)

const (
	spoonacularBaseURL = "https://api.spoonacular.com"

	// searchLimit caps how many candidates a stage-1 search returns.
	searchLimit = 5
)

// SpoonacularClient talks to the Spoonacular recipe API. It implements
// recipeagent.RecipeSource.
type SpoonacularClient struct {
	apiKey string
	caller caller
}

func NewSpoonacularClient(apiKey string, httpClient recipeagent.HTTPClient, opts Options) *SpoonacularClient {
	opts = opts.withDefaults(spoonacularBaseURL)
	return &SpoonacularClient{
		apiKey: apiKey,
		caller: caller{provider: "spoonacular", httpClient: httpClient, opts: opts},
	}
}

type spoonacularSearchHit struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	Image                 string `json:"image"`
	UsedIngredientCount   int    `json:"usedIngredientCount"`
	MissedIngredientCount int    `json:"missedIngredientCount"`
}

// SearchRecipes finds up to five candidate recipes for the given ingredients.
// Vegetarian and vegan food types map to the provider's diet parameter;
// non-vegetarian and any omit it.
func (c *SpoonacularClient) SearchRecipes(ctx context.Context, ingredients []string, prefs recipeagent.Preferences) ([]recipeagent.RecipeCandidate, int, error) {
	if c.apiKey == "" {
		return nil, 0, &Error{Kind: KindAuth, Provider: "spoonacular", Message: "API key not configured"}
	}

	params := url.Values{}
	params.Set("ingredients", strings.Join(ingredients, ","))
	params.Set("number", fmt.Sprint(searchLimit))
	params.Set("ranking", "1")
	params.Set("apiKey", c.apiKey)
	if prefs.Cuisine != "" && prefs.Cuisine != recipeagent.FoodTypeAny {
		params.Set("cuisine", prefs.Cuisine)
	}
	switch prefs.FoodType {
	case recipeagent.FoodTypeVegetarian, recipeagent.FoodTypeVegan:
		params.Set("diet", prefs.FoodType)
	}

	slog.Info("TOOL: Calling Spoonacular findByIngredients", "ingredients_count", len(ingredients), "food_type", prefs.FoodType, "cuisine", prefs.Cuisine)

	status, body, retries, err := c.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.caller.opts.BaseURL+"/recipes/findByIngredients?"+params.Encode(), nil)
	})
	if err != nil {
		return nil, retries, err
	}
	if err := c.checkStatus(status); err != nil {
		return nil, retries, err
	}

	var hits []spoonacularSearchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, retries, &Error{Kind: KindOther, Provider: "spoonacular", Message: "invalid search response", Err: err}
	}

	candidates := make([]recipeagent.RecipeCandidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, recipeagent.RecipeCandidate{
			ID:          h.ID,
			Title:       h.Title,
			ImageURL:    h.Image,
			UsedCount:   h.UsedIngredientCount,
			MissedCount: h.MissedIngredientCount,
		})
	}
	return candidates, retries, nil
}

type spoonacularIngredient struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Amount *float64 `json:"amount"`
	Unit   string   `json:"unit"`
}

type spoonacularInformation struct {
	ID                  int                     `json:"id"`
	Title               string                  `json:"title"`
	ExtendedIngredients []spoonacularIngredient `json:"extendedIngredients"`
}

// GetRecipeDetails fetches the full ingredient list for one recipe id.
func (c *SpoonacularClient) GetRecipeDetails(ctx context.Context, id int) (recipeagent.RecipeDetail, int, error) {
	if c.apiKey == "" {
		return recipeagent.RecipeDetail{}, 0, &Error{Kind: KindAuth, Provider: "spoonacular", Message: "API key not configured"}
	}

	params := url.Values{}
	params.Set("includeNutrition", "false")
	params.Set("apiKey", c.apiKey)

	slog.Info("TOOL: Calling Spoonacular getInformation", "recipe_id", id)

	status, body, retries, err := c.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/recipes/%d/information?%s", c.caller.opts.BaseURL, id, params.Encode()), nil)
	})
	if err != nil {
		return recipeagent.RecipeDetail{}, retries, err
	}
	if status == http.StatusNotFound {
		return recipeagent.RecipeDetail{}, retries, &Error{Kind: KindNotFound, Provider: "spoonacular", Message: fmt.Sprintf("recipe %d not found", id)}
	}
	if err := c.checkStatus(status); err != nil {
		return recipeagent.RecipeDetail{}, retries, err
	}

	var info spoonacularInformation
	if err := json.Unmarshal(body, &info); err != nil {
		return recipeagent.RecipeDetail{}, retries, &Error{Kind: KindOther, Provider: "spoonacular", Message: "invalid information response", Err: err}
	}

	detail := recipeagent.RecipeDetail{ID: info.ID, Title: info.Title}
	for _, ing := range info.ExtendedIngredients {
		detail.RequiredIngredients = append(detail.RequiredIngredients, recipeagent.IngredientDetail{
			ID:     ing.ID,
			Name:   ing.Name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		})
	}
	return detail, retries, nil
}

func (c *SpoonacularClient) checkStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Provider: "spoonacular", Message: "authentication failed (invalid API key?)"}
	default:
		return &Error{Kind: KindOther, Provider: "spoonacular", Message: fmt.Sprintf("unexpected status %d", status)}
	}
}
