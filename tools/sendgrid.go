package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"recipeagent"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// SendGridClient delivers shopping lists by email. Implements
// recipeagent.Deliverer.
type SendGridClient struct {
	apiKey string
	sender string
	caller caller
}

func NewSendGridClient(apiKey, sender string, httpClient recipeagent.HTTPClient, opts Options) *SendGridClient {
	opts = opts.withDefaults(sendgridBaseURL)
	return &SendGridClient{
		apiKey: apiKey,
		sender: sender,
		caller: caller{provider: "sendgrid", httpClient: httpClient, opts: opts},
	}
}

type sendgridErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *SendGridClient) Deliver(ctx context.Context, destination, subject, body string) (int, error) {
	if c.apiKey == "" {
		return 0, &Error{Kind: KindAuth, Provider: "sendgrid", Message: "API key not configured"}
	}
	if c.sender == "" {
		return 0, &Error{Kind: KindUnverifiedSender, Provider: "sendgrid", Message: "sender email not configured"}
	}

	payload, err := json.Marshal(map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": destination}}},
		},
		"from":    map[string]string{"email": c.sender, "name": "Recipe Suggester"},
		"subject": subject,
		"content": []map[string]string{{"type": "text/plain", "value": body}},
	})
	if err != nil {
		return 0, &Error{Kind: KindOther, Provider: "sendgrid", Message: "encode payload", Err: err}
	}

	slog.Info("TOOL: Sending SendGrid email", "to", destination)

	status, respBody, retries, err := c.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.caller.opts.BaseURL+"/v3/mail/send", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return retries, err
	}
	if status == http.StatusAccepted {
		return retries, nil
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return retries, &Error{Kind: KindAuth, Provider: "sendgrid", Message: "authentication failed (invalid API key or permissions?)"}
	}

	var errResp sendgridErrorResponse
	if uerr := json.Unmarshal(respBody, &errResp); uerr == nil && len(errResp.Errors) > 0 {
		messages := make([]string, 0, len(errResp.Errors))
		for _, e := range errResp.Errors {
			messages = append(messages, e.Message)
		}
		joined := strings.ToLower(strings.Join(messages, "; "))
		switch {
		case strings.Contains(joined, "valid email address"):
			return retries, &Error{Kind: KindInvalidRecipient, Provider: "sendgrid", Message: fmt.Sprintf("invalid recipient email %q", destination)}
		case strings.Contains(joined, "verified sender") || strings.Contains(joined, "permission") || strings.Contains(joined, "authenticate"):
			return retries, &Error{Kind: KindUnverifiedSender, Provider: "sendgrid", Message: fmt.Sprintf("sender %q is not verified for sending", c.sender)}
		default:
			return retries, &Error{Kind: KindOther, Provider: "sendgrid", Message: strings.Join(messages, "; ")}
		}
	}

	return retries, &Error{Kind: KindOther, Provider: "sendgrid", Message: fmt.Sprintf("unexpected status %d", status)}
}
