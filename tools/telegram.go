package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"recipeagent"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramClient delivers shopping lists through the Telegram Bot API. It
// implements recipeagent.Deliverer; the subject argument is ignored because
// the message body already carries the title line.
type TelegramClient struct {
	botToken string
	caller   caller
}

func NewTelegramClient(botToken string, httpClient recipeagent.HTTPClient, opts Options) *TelegramClient {
	opts = opts.withDefaults(telegramBaseURL)
	return &TelegramClient{
		botToken: botToken,
		caller:   caller{provider: "telegram", httpClient: httpClient, opts: opts},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (c *TelegramClient) Deliver(ctx context.Context, destination, _ string, body string) (int, error) {
	if c.botToken == "" {
		return 0, &Error{Kind: KindAuth, Provider: "telegram", Message: "bot token not configured"}
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id": destination,
		"text":    body,
	})
	if err != nil {
		return 0, &Error{Kind: KindOther, Provider: "telegram", Message: "encode payload", Err: err}
	}

	slog.Info("TOOL: Sending Telegram message", "chat_id", destination)

	_, respBody, retries, err := c.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.caller.opts.BaseURL+"/bot"+c.botToken+"/sendMessage", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return retries, err
	}

	var tr telegramResponse
	if uerr := json.Unmarshal(respBody, &tr); uerr != nil {
		return retries, &Error{Kind: KindOther, Provider: "telegram", Message: "invalid response", Err: uerr}
	}
	if tr.OK {
		return retries, nil
	}

	desc := strings.ToLower(tr.Description)
	switch {
	case tr.ErrorCode == http.StatusBadRequest && strings.Contains(desc, "chat not found"):
		return retries, &Error{Kind: KindInvalidRecipient, Provider: "telegram", Message: "chat id not found or invalid"}
	case tr.ErrorCode == http.StatusForbidden && strings.Contains(desc, "blocked"):
		return retries, &Error{Kind: KindBlockedByRecipient, Provider: "telegram", Message: "bot was blocked by the user"}
	case tr.ErrorCode == http.StatusUnauthorized || tr.ErrorCode == http.StatusForbidden:
		return retries, &Error{Kind: KindAuth, Provider: "telegram", Message: "authentication failed (invalid bot token?)"}
	default:
		return retries, &Error{Kind: KindOther, Provider: "telegram", Message: tr.Description}
	}
}
