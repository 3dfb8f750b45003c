package tools_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"recipeagent/tools"
)

func TestSendGridDeliver(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		should.Equal(t, "/v3/mail/send", req.URL.Path)
		raw, _ := io.ReadAll(req.Body)
		must.NoError(t, json.Unmarshal(raw, &gotPayload))
		return jsonResponse(http.StatusAccepted, ``), nil
	}}
	client := tools.NewSendGridClient("sg-key", "bot@example.com", doer, fastOptions())

	retries, err := client.Deliver(context.Background(), "user@example.com", "Shopping List for Soup", "body text")
	must.NoError(t, err)
	should.Zero(t, retries)
	should.Equal(t, "Bearer sg-key", gotAuth)

	from := gotPayload["from"].(map[string]any)
	should.Equal(t, "bot@example.com", from["email"])
	should.Equal(t, "Recipe Suggester", from["name"])
	should.Equal(t, "Shopping List for Soup", gotPayload["subject"])

	content := gotPayload["content"].([]any)[0].(map[string]any)
	should.Equal(t, "text/plain", content["type"])
	should.Equal(t, "body text", content["value"])
}

func TestSendGridDeliverErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind tools.Kind
	}{
		{
			name:     "401 is auth",
			status:   http.StatusUnauthorized,
			body:     `{"errors":[{"message":"The provided authorization grant is invalid"}]}`,
			wantKind: tools.KindAuth,
		},
		{
			name:     "invalid recipient",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"The to email does not contain a valid email address."}]}`,
			wantKind: tools.KindInvalidRecipient,
		},
		{
			name:     "unverified sender",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"The from address does not match a verified Sender Identity."}]}`,
			wantKind: tools.KindUnverifiedSender,
		},
		{
			name:     "unclassified provider error",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"The subject is required."}]}`,
			wantKind: tools.KindOther,
		},
		{
			name:     "non-json error body",
			status:   http.StatusBadRequest,
			body:     `oops`,
			wantKind: tools.KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			}}
			client := tools.NewSendGridClient("sg-key", "bot@example.com", doer, fastOptions())

			_, err := client.Deliver(context.Background(), "user@example.com", "subject", "body")
			should.True(t, tools.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestSendGridDeliverMissingConfig(t *testing.T) {
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made with incomplete config")
		return nil, nil
	}}

	client := tools.NewSendGridClient("", "bot@example.com", doer, fastOptions())
	_, err := client.Deliver(context.Background(), "user@example.com", "s", "b")
	should.True(t, tools.IsKind(err, tools.KindAuth))

	client = tools.NewSendGridClient("sg-key", "", doer, fastOptions())
	_, err = client.Deliver(context.Background(), "user@example.com", "s", "b")
	should.True(t, tools.IsKind(err, tools.KindUnverifiedSender))
	should.Zero(t, doer.calls)
}
