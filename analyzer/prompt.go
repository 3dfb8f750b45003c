package analyzer

import "strings"

// BuildReasoningPrompt assembles the full reasoning prompt for a stage:
// universal preamble, stage-specific self-check checklist, and the caller's
// query context.
func BuildReasoningPrompt(query string, stage int) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	switch stage {
	case 1:
		b.WriteString(stage1Checklist)
	case 2:
		b.WriteString(stage2Checklist)
	case 3:
		b.WriteString(stage3Checklist)
	}
	b.WriteString("\nHere is the query/context to respond to:\n")
	b.WriteString(query)
	b.WriteString("\n\nPlease structure your response with clearly labeled reasoning types using [REASONING TYPE: X] tags, include your SELF-CHECK section, flag any uncertainties with [UNCERTAINTY: X] tags, mark any errors with [ERROR: X] tags, and then conclude with the most helpful answer or action plan.\n")
	return b.String()
}

const promptPreamble = `I want you to think step-by-step about this request. First, understand what is being asked. Then, analyze the information available to you. Consider what additional information or API calls might be needed. Explain your thinking process as you go.

When responding to this query, break down the problem into components that require different types of reasoning, and for each component:
1. Identify the type of reasoning required using [REASONING TYPE: X] tags, where X can be one of: ARITHMETIC, RETRIEVAL, COMPARISON, LOGICAL, CAUSAL, ANALOGICAL, CREATIVE, SOCIAL
2. Apply that reasoning type explicitly
3. Explain your conclusion from that reasoning step

Explicitly use these tags throughout your analysis to make your reasoning transparent.

IMPORTANT: When you are uncertain about something, explicitly state your uncertainty using [UNCERTAINTY: X] tags, where X describes what you're uncertain about and your confidence level (low/medium/high).

If you encounter information that's critical but missing, or if you can't determine something with confidence, use [ERROR: X] tags to flag this, where X describes the issue.
`

const stage1Checklist = `
**Stage 1: Find Recipes**

Your goal is to assist in finding recipe suggestions that match the user's ingredients and preferences (food type and cuisine). Prioritize the user's preferences in your reasoning and ensure any suggested recipes or ingredient validations align with them.

SELF-CHECK:
1. Verify that you've correctly identified all the ingredients provided in the query. Are they plausible cooking ingredients?
2. Identify the user's food type and cuisine preferences. Are they clear and unambiguous? If not, flag with [ERROR: Ambiguous preferences: X].
3. Check if any ingredients are incompatible with the food type preference (e.g., meat in a vegetarian preference).
4. Assess whether the ingredients align with the cuisine preference.
5. Confirm that searching for recipes with these ingredients and preferences is the appropriate next action.

ERROR HANDLING:
- If ingredients appear invalid or unclear (non-food items, gibberish), flag with [ERROR: Invalid ingredients provided: X].
- If preferences seem contradictory (e.g., 'vegan' with 'chicken' listed), flag with [ERROR: Contradictory preferences: X].
- If some ingredients might not be found in standard recipe databases, mark with [UNCERTAINTY: Ingredient X might be too niche].
- If no recipes are found, recommend adding common ingredients suited to the food type and cuisine or broadening preferences.
`

const stage2Checklist = `
**Stage 2: Determine Missing Ingredients**

SELF-CHECK:
1. Verify you have correctly identified the selected recipe title and ID from the previous step/context.
2. Confirm you have the list of user's available ingredients and preferences from the previous step/context.
3. Validate that the next logical step is to get the selected recipe's required ingredients.
4. Check that comparing required and available ingredients is the appropriate action for determining missing items.

ERROR HANDLING:
- If the recipe ID seems invalid or missing from context, flag with [ERROR: Invalid recipe ID] and suggest reselecting a recipe.
- If the user's available ingredients list is missing, flag with [ERROR: User ingredients list missing].
- If unable to retrieve full recipe details, fall back to whatever partial information is available or to estimated ingredients based on the title.
- If uncertain about ingredient matching logic (e.g., "onion" vs "red onion"), mark with [UNCERTAINTY: Matching X vs Y might be imprecise] and use your best judgment.
`

const stage3Checklist = `
**Stage 3: Deliver Shopping List**

SELF-CHECK:
1. Verify you have correctly identified the intended delivery method (email or Telegram) from context.
2. Confirm you have valid-looking delivery details (email address format or numeric chat ID) from context.
3. Check that you have the list of missing ingredients (or confirmation of none missing) from the previous step/context.
4. Validate that the selected recipe title is correctly carried over for context in the message.

ERROR HANDLING:
- If delivery details appear invalid (malformed email, non-numeric chat ID), flag with [ERROR: Invalid delivery details: X].
- If the missing ingredients list is unavailable from context, flag with [ERROR: Missing ingredients list unavailable].
- If the missing ingredients list is empty, confirm this is okay and the message should reflect that.
- If uncertain about ingredient measurements or details in the list, mark with [UNCERTAINTY: Details for ingredient X are estimates].
`
