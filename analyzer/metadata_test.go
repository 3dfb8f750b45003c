package analyzer

import (
	"testing"

	should "github.com/stretchr/testify/assert"

	"recipeagent"
)

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name string
		text string
		want recipeagent.LLMMetadata
	}{
		{
			name: "full response",
			text: "[REASONING TYPE: RETRIEVAL] Searching recipes.\n" +
				"[REASONING TYPE: LOGICAL] Checking preferences.\n" +
				"SELF-CHECK: All three ingredients are plausible food items.\n\n" +
				"[UNCERTAINTY: Medium - cuisine preference may be too narrow.]\n" +
				"[ERROR: none]\n",
			want: recipeagent.LLMMetadata{
				SelfCheck:      "All three ingredients are plausible food items.",
				ReasoningTypes: []string{"LOGICAL", "RETRIEVAL"},
				Uncertainties:  []string{"Medium - cuisine preference may be too narrow."},
				Errors:         []string{"none"},
			},
		},
		{
			name: "no tags at all",
			text: "Here are some recipes you might like.",
			want: recipeagent.LLMMetadata{SelfCheck: NoSelfCheck},
		},
		{
			name: "self-check bounded by error handling header",
			text: "SELF-CHECK: Looks good.\nERROR HANDLING: nothing to report",
			want: recipeagent.LLMMetadata{SelfCheck: "Looks good."},
		},
		{
			name: "case insensitive anchors",
			text: "self-check: fine\n\n[reasoning type: comparison]\n[error: Invalid Ingredients detected]",
			want: recipeagent.LLMMetadata{
				SelfCheck:      "fine",
				ReasoningTypes: []string{"COMPARISON"},
				Errors:         []string{"Invalid Ingredients detected"},
			},
		},
		{
			name: "duplicate tags dedupe",
			text: "[REASONING TYPE: RETRIEVAL][REASONING TYPE: RETRIEVAL]\n" +
				"[UNCERTAINTY: high][UNCERTAINTY: high][UNCERTAINTY: low]",
			want: recipeagent.LLMMetadata{
				SelfCheck:      NoSelfCheck,
				ReasoningTypes: []string{"RETRIEVAL"},
				Uncertainties:  []string{"high", "low"},
			},
		},
		{
			name: "reasoning types come back sorted",
			text: "[REASONING TYPE: RETRIEVAL][REASONING TYPE: COMPARISON][REASONING TYPE: LOGICAL]",
			want: recipeagent.LLMMetadata{
				SelfCheck:      NoSelfCheck,
				ReasoningTypes: []string{"COMPARISON", "LOGICAL", "RETRIEVAL"},
			},
		},
		{
			name: "empty self-check keeps placeholder",
			text: "Reasoning only.\n\nSELF-CHECK:",
			want: recipeagent.LLMMetadata{SelfCheck: NoSelfCheck},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			should.Equal(t, tt.want, ExtractMetadata(tt.text))
		})
	}
}

func TestFallbackTextNeverCarriesErrorTags(t *testing.T) {
	queries := map[int]string{
		1: "I have chicken, rice. I prefer vegan food. I'm interested in thai cuisine. What recipes can I make with these ingredients?",
		2: "User selected recipe: Roast Chicken (id 42). Determine missing ingredients based on the user's available ingredients.",
		3: "Send the shopping list for recipe: Roast Chicken via telegram to 123456.",
	}
	for stage, q := range queries {
		text := FallbackText(q, stage)
		md := ExtractMetadata(text)
		should.Empty(t, md.Errors, "stage %d fallback must not be blockable", stage)
		should.NotEmpty(t, md.ReasoningTypes, "stage %d", stage)
		should.NotEmpty(t, md.Uncertainties, "stage %d", stage)
		should.NotEqual(t, NoSelfCheck, md.SelfCheck, "stage %d", stage)
	}
}

func TestFallbackTextEchoesQueryDetails(t *testing.T) {
	text := FallbackText("I have chicken, rice. I prefer vegan food. What recipes can I make with these ingredients?", 1)
	should.Contains(t, text, "chicken, rice")
	should.Contains(t, text, "vegan")

	text = FallbackText("Send the shopping list for recipe: Greek Salad via email to user@example.com.", 3)
	should.Contains(t, text, "email")
	should.Contains(t, text, "user@example.com")
}
