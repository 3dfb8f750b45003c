package session

import (
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"recipeagent"
)

func TestNormalizeIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "trims and lowercases",
			raw:  " Chicken , RICE, tomato",
			want: []string{"chicken", "rice", "tomato"},
		},
		{
			name: "drops empty entries",
			raw:  "chicken,,  ,rice",
			want: []string{"chicken", "rice"},
		},
		{
			name: "keeps duplicates",
			raw:  "rice, rice",
			want: []string{"rice", "rice"},
		},
		{
			name: "all empty",
			raw:  " , ,",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			should.Equal(t, tt.want, NormalizeIngredients(tt.raw))
		})
	}
}

func TestSessionSetIngredients(t *testing.T) {
	sess := New()
	sess.SetIngredients(" Chicken , Rice ")
	should.Equal(t, " Chicken , Rice ", sess.UserIngredientsRaw)
	should.Equal(t, []string{"chicken", "rice"}, sess.UserIngredients)
}

func TestSessionStageCompleted(t *testing.T) {
	sess := New()
	should.False(t, sess.StageCompleted(1), "unvisited stage is not completed")

	sess.UpdateStage(1, func(rec *StageRecord) {
		rec.Query = "q"
	})
	should.True(t, sess.StageCompleted(1))

	sess.UpdateStage(1, func(rec *StageRecord) {
		rec.BlockingError = "Error: Invalid ingredients"
	})
	should.False(t, sess.StageCompleted(1), "blocking error voids completion")
}

func TestSessionReset(t *testing.T) {
	sess := New()
	id := sess.ID
	gen := sess.Generation()

	sess.SetIngredients("chicken, rice")
	sess.Preferences = recipeagent.Preferences{FoodType: recipeagent.FoodTypeVegan}
	sess.SelectedRecipe = &recipeagent.SelectedRecipe{ID: 7, Title: "Soup"}
	sess.MissingIngredients = []recipeagent.IngredientDetail{{Name: "broth"}}
	sess.MissingIsEstimate = true
	sess.UpdateStage(1, func(rec *StageRecord) { rec.Query = "q" })
	sess.Terminated = true

	sess.Reset()

	must.Equal(t, id, sess.ID, "reset keeps the session id")
	should.Greater(t, sess.Generation(), gen, "reset bumps the generation")
	should.Empty(t, sess.UserIngredients)
	should.Empty(t, sess.UserIngredientsRaw)
	should.Equal(t, recipeagent.Preferences{}, sess.Preferences)
	should.Nil(t, sess.SelectedRecipe)
	should.Nil(t, sess.MissingIngredients)
	should.False(t, sess.MissingIsEstimate)
	should.Empty(t, sess.Stages)
	should.False(t, sess.Terminated)
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(nil)

	sess := store.Create()
	must.NotEmpty(t, sess.ID)

	got, err := store.Get(sess.ID)
	must.NoError(t, err)
	should.Same(t, sess, got)

	_, err = store.Get("nope")
	should.Error(t, err)

	store.Discard(sess.ID)
	_, err = store.Get(sess.ID)
	should.Error(t, err)
}
