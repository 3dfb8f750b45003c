package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"recipeagent"
)

// GeminiClient implements LLMClient using the Google AI API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient creates a Gemini-backed LLM client from the model config.
func NewGeminiClient(ctx context.Context, cfg recipeagent.ModelConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)

	return &GeminiClient{client: client, model: model}, nil
}

// Generate sends the prompt and returns the response text. Errors are
// classified into *BlockedError for content/safety refusals and
// *TransientError for retryable failures; everything else is terminal.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", &BlockedError{Reason: resp.PromptFeedback.BlockReason.String()}
	}
	if len(resp.Candidates) == 0 {
		return "", &TransientError{Err: errors.New("response missing candidates")}
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", &BlockedError{Reason: "response stopped by safety filters"}
	}
	if cand.Content == nil {
		return "", &TransientError{Err: errors.New("candidate has no content")}
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := b.String()
	if text == "" {
		return "", &TransientError{Err: errors.New("empty response text")}
	}

	slog.Info("LLM_CLIENT: Gemini responded", "text_len", len(text), "finish_reason", cand.FinishReason)
	return text, nil
}

// Close releases the underlying client resources.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return &TransientError{Err: err}
		default:
			// Other 4xx are terminal: bad request, auth failure.
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// Anything else is treated as a network-level failure.
	return &TransientError{Err: err}
}
