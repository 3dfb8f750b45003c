// Package orchestrator drives the three-stage recipe workflow: find candidate
// recipes, compute the missing-ingredient list, deliver the shopping list.
// Each stage runs LLM analysis first, classifies any flagged errors against a
// closed keyword set, and only then performs the stage's tool call. Blocking
// classifications abort the stage before any side effect.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"recipeagent"
	"recipeagent/analyzer"
	"recipeagent/match"
	"recipeagent/session"
)

const (
	queryTruncateLen = 150
	llmTruncateLen   = 150
	toolTruncateLen  = 200
)

var (
	telegramDestRe = regexp.MustCompile(`^-?[0-9]+$`)
	emailDestRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Analyzer is the LLM analysis surface the orchestrator depends on.
type Analyzer interface {
	Analyze(ctx context.Context, query string, stage int) (analyzer.Result, error)
}

// Orchestrator coordinates the stages for all sessions. It is stateless
// between calls; all per-run state lives in the session.
type Orchestrator struct {
	analyzer   Analyzer
	recipes    recipeagent.RecipeSource
	deliverers map[recipeagent.DeliveryMethod]recipeagent.Deliverer
	store      *session.Store
	stageLog   recipeagent.StageLogger
	tracer     trace.Tracer
}

// New creates an orchestrator. stageLog may be nil to disable audit logging.
func New(
	an Analyzer,
	recipes recipeagent.RecipeSource,
	deliverers map[recipeagent.DeliveryMethod]recipeagent.Deliverer,
	store *session.Store,
	stageLog recipeagent.StageLogger,
) *Orchestrator {
	if stageLog == nil {
		stageLog = recipeagent.NewNoOpStageLogger()
	}
	return &Orchestrator{
		analyzer:   an,
		recipes:    recipes,
		deliverers: deliverers,
		store:      store,
		stageLog:   stageLog,
		tracer:     otel.Tracer(recipeagent.TracerNameOrchestrator),
	}
}

// FindRecipesResult is the outcome of stage 1.
type FindRecipesResult struct {
	SessionID  string
	Recipes    []recipeagent.RecipeCandidate
	Advisories []string
	LLMPrompt  string
	Metadata   recipeagent.LLMMetadata
}

// MissingIngredientsResult is the outcome of stage 2.
type MissingIngredientsResult struct {
	SessionID  string
	Missing    []recipeagent.IngredientDetail
	IsEstimate bool
	Advisories []string
	LLMPrompt  string
	Metadata   recipeagent.LLMMetadata
}

// SendListResult is the outcome of stage 3.
type SendListResult struct {
	SessionID  string
	Message    string
	Advisories []string
	LLMPrompt  string
	Metadata   recipeagent.LLMMetadata
}

// FindRecipes runs stage 1: validate the raw input, analyze, then search for
// candidate recipes. Calling it on a session that already progressed resets
// the session first, so "start over" and "start" share one path.
func (o *Orchestrator) FindRecipes(ctx context.Context, sess *session.Session, ingredientsRaw string, prefs recipeagent.Preferences) (FindRecipesResult, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.FindRecipes",
		trace.WithAttributes(attribute.String("session.id", sess.ID)))
	defer span.End()

	const stage = 1
	res := FindRecipesResult{SessionID: sess.ID}

	if prefs.FoodType == "" {
		prefs.FoodType = recipeagent.FoodTypeAny
	}
	if !recipeagent.ValidFoodType(prefs.FoodType) {
		return res, inputInvalid(stage, fmt.Sprintf("unknown food type %q", prefs.FoodType))
	}
	ingredients := session.NormalizeIngredients(ingredientsRaw)
	if len(ingredients) == 0 {
		return res, inputInvalid(stage, "ingredients must contain at least one non-empty item")
	}

	sess.Reset()
	gen := sess.Generation()
	sess.SetIngredients(ingredientsRaw)
	sess.Preferences = prefs

	query := stage1Query(sess.UserIngredients, prefs)
	ar, aerr := o.analyze(ctx, sess, gen, stage, query)
	res.LLMPrompt = ar.Prompt
	res.Metadata = ar.Metadata
	if aerr != nil {
		return res, aerr
	}

	blocking, advisories := o.classifyAndRecord(sess, gen, stage, ar)
	res.Advisories = advisories
	if blocking != "" {
		o.finishStage(ctx, sess, gen, stage)
		return res, &StageError{Stage: stage, Kind: KindLLMFlaggedBlocking, Message: blocking}
	}

	toolCall := fmt.Sprintf("spoonacular.findByIngredients(%s)", strings.Join(sess.UserIngredients, ", "))
	candidates, retries, err := o.recipes.SearchRecipes(ctx, sess.UserIngredients, prefs)
	o.recordToolCall(sess, gen, stage, toolCall, candidates, retries, err)
	if err != nil {
		o.finishStage(ctx, sess, gen, stage)
		return res, toolStageError(stage, err)
	}

	if len(candidates) == 0 {
		res.Advisories = appendAdvisory(sess, gen, stage, res.Advisories,
			"no recipes found for the given ingredients and preferences")
	}
	res.Recipes = candidates
	o.finishStage(ctx, sess, gen, stage)
	return res, nil
}

// MissingIngredients runs stage 2: fetch the selected recipe's required
// ingredients and diff them against what the user has. Detail-retrieval
// failures degrade to a synthesized estimate instead of failing the stage.
func (o *Orchestrator) MissingIngredients(ctx context.Context, sess *session.Session, recipeID int, recipeTitle string, userIngredients []string) (MissingIngredientsResult, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.MissingIngredients",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.Int("recipe.id", recipeID)))
	defer span.End()

	const stage = 2
	res := MissingIngredientsResult{SessionID: sess.ID}

	if sess.Terminated {
		return res, inputInvalid(stage, "session has ended; start a new recipe search")
	}
	if !sess.StageCompleted(1) {
		return res, inputInvalid(stage, "recipe search has not completed for this session")
	}
	if recipeID <= 0 {
		return res, inputInvalid(stage, "recipe id must be a positive integer")
	}
	recipeTitle = strings.TrimSpace(recipeTitle)
	if recipeTitle == "" {
		return res, inputInvalid(stage, "recipe title must not be empty")
	}

	gen := sess.Generation()
	if len(userIngredients) > 0 {
		normalized := make([]string, 0, len(userIngredients))
		for _, ing := range userIngredients {
			if ing = strings.ToLower(strings.TrimSpace(ing)); ing != "" {
				normalized = append(normalized, ing)
			}
		}
		sess.UserIngredients = normalized
	}
	sess.SelectedRecipe = &recipeagent.SelectedRecipe{ID: recipeID, Title: recipeTitle}

	query := stage2Query(sess, recipeID, recipeTitle)
	ar, aerr := o.analyze(ctx, sess, gen, stage, query)
	res.LLMPrompt = ar.Prompt
	res.Metadata = ar.Metadata
	if aerr != nil {
		return res, aerr
	}

	blocking, advisories := o.classifyAndRecord(sess, gen, stage, ar)
	res.Advisories = advisories
	if blocking != "" {
		o.finishStage(ctx, sess, gen, stage)
		return res, &StageError{Stage: stage, Kind: KindLLMFlaggedBlocking, Message: blocking}
	}

	toolCall := fmt.Sprintf("spoonacular.recipeInformation(id=%d)", recipeID)
	detail, retries, err := o.recipes.GetRecipeDetails(ctx, recipeID)

	var missing []recipeagent.IngredientDetail
	isEstimate := false
	switch {
	case err != nil:
		// The failure is recorded but not blocking: the stage completes
		// with a synthesized estimate.
		o.recordToolCall(sess, gen, stage, toolCall, map[string]string{"error": err.Error()}, retries, nil)
		slog.Warn("ORCHESTRATOR: Recipe details unavailable, synthesizing estimate",
			"session_id", sess.ID, "recipe_id", recipeID, "error", err)
		missing = match.EstimateFromTitle(recipeTitle)
		isEstimate = true
		res.Advisories = appendAdvisory(sess, gen, stage, res.Advisories,
			"could not retrieve exact ingredients; using estimate")
	case len(detail.RequiredIngredients) == 0:
		o.recordToolCall(sess, gen, stage, toolCall, detail, retries, nil)
		missing = match.EstimateFromTitle(recipeTitle)
		isEstimate = true
		res.Advisories = appendAdvisory(sess, gen, stage, res.Advisories,
			"could not retrieve exact ingredients; using estimate")
	default:
		o.recordToolCall(sess, gen, stage, toolCall, detail, retries, nil)
		missing = match.Missing(detail.RequiredIngredients, sess.UserIngredients)
	}

	if gen == sess.Generation() {
		sess.MissingIngredients = missing
		sess.MissingIsEstimate = isEstimate
	}
	res.Missing = missing
	res.IsEstimate = isEstimate
	o.finishStage(ctx, sess, gen, stage)
	return res, nil
}

// SendList runs stage 3: validate the destination, analyze, format the
// shopping list, and deliver it. Delivery success terminates the session.
func (o *Orchestrator) SendList(ctx context.Context, sess *session.Session, method recipeagent.DeliveryMethod, destination string) (SendListResult, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.SendList",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("delivery.method", string(method))))
	defer span.End()

	const stage = 3
	res := SendListResult{SessionID: sess.ID}

	if sess.Terminated {
		return res, inputInvalid(stage, "session has ended; start a new recipe search")
	}
	if !sess.StageCompleted(2) || sess.SelectedRecipe == nil {
		return res, inputInvalid(stage, "missing-ingredient computation has not completed for this session")
	}
	destination = strings.TrimSpace(destination)
	switch method {
	case recipeagent.DeliveryTelegram:
		if !telegramDestRe.MatchString(destination) {
			return res, inputInvalid(stage, "telegram destination must be a numeric chat id")
		}
	case recipeagent.DeliveryEmail:
		if !emailDestRe.MatchString(destination) {
			return res, inputInvalid(stage, "email destination is not a valid address")
		}
	default:
		return res, inputInvalid(stage, fmt.Sprintf("unknown delivery method %q", method))
	}
	deliverer, ok := o.deliverers[method]
	if !ok {
		return res, &StageError{Stage: stage, Kind: KindToolOther,
			Message: fmt.Sprintf("no deliverer configured for method %q", method)}
	}

	gen := sess.Generation()
	title := sess.SelectedRecipe.Title

	query := stage3Query(sess, title, method, destination)
	ar, aerr := o.analyze(ctx, sess, gen, stage, query)
	res.LLMPrompt = ar.Prompt
	res.Metadata = ar.Metadata
	if aerr != nil {
		return res, aerr
	}

	blocking, advisories := o.classifyAndRecord(sess, gen, stage, ar)
	res.Advisories = advisories
	if blocking != "" {
		o.finishStage(ctx, sess, gen, stage)
		return res, &StageError{Stage: stage, Kind: KindLLMFlaggedBlocking, Message: blocking}
	}

	body := ShoppingListBody(title, sess.MissingIngredients)
	subject := "Shopping List for " + title

	toolCall := fmt.Sprintf("%s.deliver(to=%s)", method, destination)
	retries, err := deliverer.Deliver(ctx, destination, subject, body)
	o.recordToolCall(sess, gen, stage, toolCall, body, retries, err)
	if err != nil {
		o.finishStage(ctx, sess, gen, stage)
		return res, toolStageError(stage, err)
	}

	if gen == sess.Generation() {
		sess.Terminated = true
	}
	res.Message = deliveredMessage(method)
	o.finishStage(ctx, sess, gen, stage)
	return res, nil
}

func deliveredMessage(method recipeagent.DeliveryMethod) string {
	switch method {
	case recipeagent.DeliveryTelegram:
		return "Shopping list sent successfully via Telegram!"
	case recipeagent.DeliveryEmail:
		return "Shopping list sent successfully via Email!"
	}
	return "Shopping list sent successfully!"
}

// analyze runs the LLM analysis and records the attempt on the stage record.
// The only error it can return is a provider content block.
func (o *Orchestrator) analyze(ctx context.Context, sess *session.Session, gen uint64, stage int, query string) (analyzer.Result, error) {
	ar, err := o.analyzer.Analyze(ctx, query, stage)
	if err != nil {
		if gen == sess.Generation() {
			sess.UpdateStage(stage, func(rec *session.StageRecord) {
				*rec = session.StageRecord{
					Query:         query,
					PromptBytes:   len(ar.Prompt),
					LLMRetryCount: ar.Retries,
					BlockingError: err.Error(),
				}
			})
			sess.Terminated = true
		}
		o.finishStage(ctx, sess, gen, stage)
		return ar, &StageError{Stage: stage, Kind: KindLLMBlocked, Message: err.Error(), Err: err}
	}

	if gen == sess.Generation() {
		// Replace the record wholesale: re-entering a stage must not carry
		// a prior attempt's blocking error, advisories, or tool outcome.
		sess.UpdateStage(stage, func(rec *session.StageRecord) {
			*rec = session.StageRecord{
				Query:         query,
				PromptBytes:   len(ar.Prompt),
				LLMRawText:    ar.Text,
				LLMFallback:   ar.Fallback,
				Metadata:      ar.Metadata,
				LLMRetryCount: ar.Retries,
			}
		})
	}
	return ar, nil
}

// classifyAndRecord applies blocking-keyword classification to the analysis
// metadata and writes the outcome onto the stage record. The returned
// advisories already include the fallback note when the analysis degraded.
func (o *Orchestrator) classifyAndRecord(sess *session.Session, gen uint64, stage int, ar analyzer.Result) (blocking string, advisories []string) {
	blocking, advisories = classifyFlags(stage, ar.Metadata)
	if ar.Fallback {
		advisories = append(advisories,
			"LLM analysis unavailable; proceeded with deterministic fallback")
	}

	if gen != sess.Generation() {
		return blocking, advisories
	}
	sess.UpdateStage(stage, func(rec *session.StageRecord) {
		rec.AdvisoryNotes = advisories
		if blocking != "" {
			rec.BlockingError = blocking
		}
	})
	if blocking != "" {
		sess.Terminated = true
		slog.Warn("ORCHESTRATOR: LLM flagged blocking error",
			"session_id", sess.ID, "stage", stage, "error", blocking)
	}
	return blocking, advisories
}

func (o *Orchestrator) recordToolCall(sess *session.Session, gen uint64, stage int, call string, result any, retries int, err error) {
	if gen != sess.Generation() {
		return
	}
	sess.UpdateStage(stage, func(rec *session.StageRecord) {
		rec.ToolCallDescription = call
		rec.ToolRetryCount = retries
		if err != nil {
			rec.BlockingError = err.Error()
			return
		}
		if data, merr := json.Marshal(result); merr == nil {
			rec.ToolResult = string(data)
		}
	})
}

func appendAdvisory(sess *session.Session, gen uint64, stage int, advisories []string, note string) []string {
	advisories = append(advisories, note)
	if gen == sess.Generation() {
		sess.UpdateStage(stage, func(rec *session.StageRecord) {
			rec.AdvisoryNotes = append(rec.AdvisoryNotes, note)
		})
	}
	return advisories
}

// finishStage emits the audit record and snapshots the session. Abandoned
// generations are not persisted.
func (o *Orchestrator) finishStage(ctx context.Context, sess *session.Session, gen uint64, stage int) {
	if gen != sess.Generation() {
		slog.Debug("ORCHESTRATOR: Session reset mid-stage, dropping results",
			"session_id", sess.ID, "stage", stage)
		return
	}
	rec := sess.Stage(stage)
	if rec == nil {
		return
	}
	log := recipeagent.StageLog{
		SessionID:     sess.ID,
		Stage:         stage,
		Timestamp:     time.Now(),
		Query:         rec.Query,
		PromptBytes:   rec.PromptBytes,
		LLMOutput:     rec.LLMRawText,
		LLMRetries:    rec.LLMRetryCount,
		LLMFallback:   rec.LLMFallback,
		ToolCall:      rec.ToolCallDescription,
		ToolResult:    rec.ToolResult,
		ToolRetries:   rec.ToolRetryCount,
		BlockingError: rec.BlockingError,
		Advisories:    rec.AdvisoryNotes,
		Metadata:      rec.Metadata,
	}
	if err := o.stageLog.LogStage(log); err != nil {
		slog.Warn("ORCHESTRATOR: Failed to write stage log", "session_id", sess.ID, "stage", stage, "error", err)
	}
	if o.store != nil {
		o.store.Snapshot(ctx, sess)
	}
}

func stage1Query(ingredients []string, prefs recipeagent.Preferences) string {
	var b strings.Builder
	b.WriteString("I have ")
	b.WriteString(strings.Join(ingredients, ", "))
	b.WriteString(".")
	if prefs.FoodType != recipeagent.FoodTypeAny {
		fmt.Fprintf(&b, " I prefer %s food.", prefs.FoodType)
	}
	if c := strings.TrimSpace(prefs.Cuisine); c != "" && !strings.EqualFold(c, "any") {
		fmt.Fprintf(&b, " I'm interested in %s cuisine.", c)
	}
	b.WriteString(" What recipes can I make with these ingredients?")
	return b.String()
}

func stage2Query(sess *session.Session, recipeID int, title string) string {
	var b strings.Builder
	writeStageSummary(&b, sess.Stage(1))
	writePreferences(&b, sess.Preferences)
	fmt.Fprintf(&b, "User selected recipe: %s (id %d). Determine missing ingredients based on the user's available ingredients.", title, recipeID)
	return b.String()
}

func stage3Query(sess *session.Session, title string, method recipeagent.DeliveryMethod, destination string) string {
	var b strings.Builder
	writeStageSummary(&b, sess.Stage(1))
	writeStageSummary(&b, sess.Stage(2))
	writePreferences(&b, sess.Preferences)
	fmt.Fprintf(&b, "Send the shopping list for recipe: %s via %s to %s.", title, method, destination)
	return b.String()
}

// writePreferences carries the stage-1 preferences forward verbatim. The
// stage-1 query summary is truncated, so preferences at the tail of a long
// ingredient list would otherwise be lost to later stages.
func writePreferences(b *strings.Builder, prefs recipeagent.Preferences) {
	ft := prefs.FoodType
	if ft == "" {
		ft = recipeagent.FoodTypeAny
	}
	cuisine := strings.TrimSpace(prefs.Cuisine)
	if cuisine == "" {
		cuisine = "any"
	}
	fmt.Fprintf(b, "Preferences: foodType=%s, cuisine=%s.\n\n", ft, cuisine)
}

// writeStageSummary injects a bounded summary of a prior stage into the next
// stage's query. Each slot is truncated so prompt size stays linear in the
// number of stages, not in tool payload size.
func writeStageSummary(b *strings.Builder, rec *session.StageRecord) {
	if rec == nil {
		return
	}
	fmt.Fprintf(b, "Previous stage context: query: %s | LLM: %s",
		truncate(rec.Query, queryTruncateLen),
		truncate(rec.LLMRawText, llmTruncateLen))
	if rec.ToolResult != "" {
		fmt.Fprintf(b, " | tool result: %s", truncate(rec.ToolResult, toolTruncateLen))
	}
	b.WriteString("\n\n")
}
