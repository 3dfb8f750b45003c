package tools_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/tools"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func fastOptions() tools.Options {
	return tools.Options{MaxRetries: 2, RetryBase: time.Millisecond, Timeout: time.Second}
}

func TestSearchRecipes(t *testing.T) {
	searchBody := `[
		{"id": 641803, "title": "Easy Chicken Fried Rice", "image": "http://img/1.jpg", "usedIngredientCount": 2, "missedIngredientCount": 3},
		{"id": 716429, "title": "Pasta with Garlic", "image": "http://img/2.jpg", "usedIngredientCount": 1, "missedIngredientCount": 4}
	]`

	var gotURL string
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return jsonResponse(http.StatusOK, searchBody), nil
	}}
	client := tools.NewSpoonacularClient("key123", doer, fastOptions())

	prefs := recipeagent.Preferences{FoodType: recipeagent.FoodTypeVegan, Cuisine: "thai"}
	candidates, retries, err := client.SearchRecipes(context.Background(), []string{"chicken", "rice"}, prefs)
	must.NoError(t, err)
	should.Zero(t, retries)
	must.Len(t, candidates, 2)
	should.Equal(t, recipeagent.RecipeCandidate{
		ID:          641803,
		Title:       "Easy Chicken Fried Rice",
		ImageURL:    "http://img/1.jpg",
		UsedCount:   2,
		MissedCount: 3,
	}, candidates[0])

	should.Contains(t, gotURL, "/recipes/findByIngredients")
	should.Contains(t, gotURL, "ingredients=chicken%2Crice")
	should.Contains(t, gotURL, "number=5")
	should.Contains(t, gotURL, "ranking=1")
	should.Contains(t, gotURL, "diet=vegan")
	should.Contains(t, gotURL, "cuisine=thai")
	should.Contains(t, gotURL, "apiKey=key123")
}

func TestSearchRecipesDietMapping(t *testing.T) {
	tests := []struct {
		name     string
		foodType string
		wantDiet bool
	}{
		{name: "vegetarian maps", foodType: recipeagent.FoodTypeVegetarian, wantDiet: true},
		{name: "vegan maps", foodType: recipeagent.FoodTypeVegan, wantDiet: true},
		{name: "non-vegetarian omits", foodType: recipeagent.FoodTypeNonVegetarian, wantDiet: false},
		{name: "any omits", foodType: recipeagent.FoodTypeAny, wantDiet: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotURL string
			doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
				gotURL = req.URL.String()
				return jsonResponse(http.StatusOK, `[]`), nil
			}}
			client := tools.NewSpoonacularClient("key", doer, fastOptions())

			_, _, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{FoodType: tt.foodType})
			must.NoError(t, err)
			if tt.wantDiet {
				should.Contains(t, gotURL, "diet="+tt.foodType)
			} else {
				should.NotContains(t, gotURL, "diet=")
			}
		})
	}
}

func TestSearchRecipesMissingKeyIsAuthError(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made without an API key")
		return nil, nil
	}}
	client := tools.NewSpoonacularClient("", doer, fastOptions())

	_, retries, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{})
	should.True(t, tools.IsKind(err, tools.KindAuth))
	should.Zero(t, retries)
	should.Zero(t, doer.calls)
}

func TestSearchRecipesStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind tools.Kind
	}{
		{name: "401 is auth", status: http.StatusUnauthorized, wantKind: tools.KindAuth},
		{name: "403 is auth", status: http.StatusForbidden, wantKind: tools.KindAuth},
		{name: "400 is other", status: http.StatusBadRequest, wantKind: tools.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, `{}`), nil
			}}
			client := tools.NewSpoonacularClient("key", doer, fastOptions())

			_, _, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{})
			should.True(t, tools.IsKind(err, tt.wantKind), "got %v", err)
			should.Equal(t, 1, doer.calls, "4xx must not retry")
		})
	}
}

func TestSearchRecipesRetriesTransient(t *testing.T) {
	doer := &mockDoer{}
	doer.doFunc = func(req *http.Request) (*http.Response, error) {
		if doer.calls == 1 {
			return jsonResponse(http.StatusServiceUnavailable, ``), nil
		}
		return jsonResponse(http.StatusOK, `[]`), nil
	}
	client := tools.NewSpoonacularClient("key", doer, fastOptions())

	candidates, retries, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{})
	must.NoError(t, err)
	should.Empty(t, candidates)
	should.Equal(t, 1, retries)
	should.Equal(t, 2, doer.calls)
}

func TestSearchRecipesExhaustsRetries(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	client := tools.NewSpoonacularClient("key", doer, fastOptions())

	_, retries, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{})
	should.True(t, tools.IsKind(err, tools.KindTransient), "got %v", err)
	should.Equal(t, 2, retries)
	should.Equal(t, 3, doer.calls, "initial attempt plus MaxRetries")
}

func TestSearchRecipesRateLimited(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{}`), nil
	}}
	client := tools.NewSpoonacularClient("key", doer, fastOptions())

	_, _, err := client.SearchRecipes(context.Background(), []string{"rice"}, recipeagent.Preferences{})
	should.True(t, tools.IsKind(err, tools.KindRateLimited), "got %v", err)
}

func TestGetRecipeDetails(t *testing.T) {
	infoBody := `{
		"id": 641803,
		"title": "Easy Chicken Fried Rice",
		"extendedIngredients": [
			{"id": 1, "name": "chicken breast", "amount": 1.5, "unit": "lb"},
			{"id": 2, "name": "soy sauce", "amount": 0, "unit": ""},
			{"id": 3, "name": "rice", "unit": "cups"}
		]
	}`

	var gotURL string
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return jsonResponse(http.StatusOK, infoBody), nil
	}}
	client := tools.NewSpoonacularClient("key", doer, fastOptions())

	detail, retries, err := client.GetRecipeDetails(context.Background(), 641803)
	must.NoError(t, err)
	should.Zero(t, retries)
	should.Contains(t, gotURL, "/recipes/641803/information")
	should.Contains(t, gotURL, "includeNutrition=false")

	should.Equal(t, 641803, detail.ID)
	should.Equal(t, "Easy Chicken Fried Rice", detail.Title)
	must.Len(t, detail.RequiredIngredients, 3)

	first := detail.RequiredIngredients[0]
	should.Equal(t, "chicken breast", first.Name)
	must.NotNil(t, first.Amount)
	should.Equal(t, 1.5, *first.Amount)
	should.Equal(t, "lb", first.Unit)
	should.False(t, first.IsEstimate)

	second := detail.RequiredIngredients[1]
	must.NotNil(t, second.Amount, "explicit zero amount is kept")
	should.Zero(t, *second.Amount)

	should.Nil(t, detail.RequiredIngredients[2].Amount, "absent amount stays nil")
}

func TestGetRecipeDetailsNotFound(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"status":"failure","code":404}`), nil
	}}
	client := tools.NewSpoonacularClient("key", doer, fastOptions())

	_, _, err := client.GetRecipeDetails(context.Background(), 999999)
	should.True(t, tools.IsKind(err, tools.KindNotFound), "got %v", err)
}
