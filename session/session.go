// Package session holds the per-run conversation state the orchestrator
// threads through the three stages. A session is single-writer: exactly one
// stage mutates it at a time.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"recipeagent"
)

// StageRecord captures everything one stage produced.
type StageRecord struct {
	Query               string                  `json:"query"`
	PromptBytes         int                     `json:"prompt_bytes,omitempty"`
	LLMRawText          string                  `json:"llm_raw_text"`
	LLMFallback         bool                    `json:"llm_fallback,omitempty"`
	Metadata            recipeagent.LLMMetadata `json:"metadata"`
	ToolCallDescription string                  `json:"tool_call_description,omitempty"`
	ToolResult          string                  `json:"tool_result,omitempty"`
	LLMRetryCount       int                     `json:"llm_retry_count"`
	ToolRetryCount      int                     `json:"tool_retry_count"`
	BlockingError       string                  `json:"blocking_error,omitempty"`
	AdvisoryNotes       []string                `json:"advisory_notes,omitempty"`
}

// Session is the container for one end-to-end run. It is created on "start"
// and discarded on "start over" or delivery success.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserIngredientsRaw string                  `json:"user_ingredients_raw"`
	UserIngredients    []string                `json:"user_ingredients"`
	Preferences        recipeagent.Preferences `json:"preferences"`

	SelectedRecipe     *recipeagent.SelectedRecipe    `json:"selected_recipe,omitempty"`
	MissingIngredients []recipeagent.IngredientDetail `json:"missing_ingredients,omitempty"`
	MissingIsEstimate  bool                           `json:"missing_is_estimate"`

	Stages     map[int]*StageRecord `json:"stages"`
	Terminated bool                 `json:"terminated"`

	// generation increments on Reset so an in-flight stage can detect that
	// its session was abandoned and must not write results back.
	generation uint64
}

// New creates an empty session with a fresh opaque id.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Stages:    make(map[int]*StageRecord),
	}
}

// Generation returns the current reset generation.
func (s *Session) Generation() uint64 { return s.generation }

// Reset returns the session to its initial state, keeping the id. Any stage
// still in flight observes the bumped generation and abandons its writes.
func (s *Session) Reset() {
	s.UserIngredientsRaw = ""
	s.UserIngredients = nil
	s.Preferences = recipeagent.Preferences{}
	s.SelectedRecipe = nil
	s.MissingIngredients = nil
	s.MissingIsEstimate = false
	s.Stages = make(map[int]*StageRecord)
	s.Terminated = false
	s.generation++
}

// SetIngredients records the raw comma-separated input and its normalized
// form: split on comma, trimmed, lowercased, empty entries dropped,
// duplicates preserved as given.
func (s *Session) SetIngredients(raw string) {
	s.UserIngredientsRaw = raw
	s.UserIngredients = NormalizeIngredients(raw)
}

// NormalizeIngredients splits a raw comma-separated ingredient string into
// normalized-lowercase entries.
func NormalizeIngredients(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Stage returns the record for stage k, or nil if the stage has not run.
func (s *Session) Stage(k int) *StageRecord {
	return s.Stages[k]
}

// StageCompleted reports whether stage k ran and produced no blocking error.
func (s *Session) StageCompleted(k int) bool {
	rec, ok := s.Stages[k]
	return ok && rec.BlockingError == ""
}

// UpdateStage shallow-merges fields into stages[k] via the mutate callback,
// creating the record on first touch. Retry counters start at zero for a
// fresh record, which makes them reset on entry to the stage.
func (s *Session) UpdateStage(k int, mutate func(*StageRecord)) {
	rec, ok := s.Stages[k]
	if !ok {
		rec = &StageRecord{}
		s.Stages[k] = rec
	}
	mutate(rec)
}
