package recipeagent

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestFileStageLoggerFlush(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileStageLogger(&buf)

	must.NoError(t, logger.LogStage(StageLog{
		SessionID: "s-1",
		Stage:     1,
		Timestamp: time.Now(),
		Query:     "I have rice.",
		LLMOutput: "SELF-CHECK: ok",
		ToolCall:  "spoonacular.findByIngredients(rice)",
		Metadata:  LLMMetadata{SelfCheck: "ok"},
	}))
	must.NoError(t, logger.LogStage(StageLog{
		SessionID:     "s-1",
		Stage:         2,
		BlockingError: "Invalid recipe ID",
	}))
	should.Empty(t, buf.Bytes(), "LogStage buffers, only Flush writes")

	must.NoError(t, logger.Flush())

	var decoded struct {
		Session struct {
			Stages []StageLog `json:"stages"`
		} `json:"session"`
	}
	must.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	must.Len(t, decoded.Session.Stages, 2)
	should.Equal(t, "I have rice.", decoded.Session.Stages[0].Query)
	should.Equal(t, "Invalid recipe ID", decoded.Session.Stages[1].BlockingError)

	buf.Reset()
	must.NoError(t, logger.Flush())
	var second struct {
		Session struct {
			Stages []StageLog `json:"stages"`
		} `json:"session"`
	}
	must.NoError(t, json.Unmarshal(buf.Bytes(), &second))
	should.Empty(t, second.Session.Stages, "flush clears the buffer")
}

func TestNewStageLogFilePath(t *testing.T) {
	path := NewStageLogFilePath("./logs/", "Gemini-1.5-Flash:latest")
	should.Regexp(t, `^\./logs/\d+\.gemini-1\.5-flash_latest\.json$`, path)
}

func TestNoOpStageLogger(t *testing.T) {
	should.NoError(t, NewNoOpStageLogger().LogStage(StageLog{SessionID: "x"}))
}
