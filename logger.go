package recipeagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// StageLogger is the interface for per-stage audit logging.
type StageLogger interface {
	LogStage(record StageLog) error
}

// NewStageLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify logs produced with various models.
func NewStageLogFilePath(dir, model string) string {
	return fmt.Sprintf(
		"%s/%d.%s.json",
		strings.TrimRight(dir, "/"),
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(model), ":", "_"),
	)
}

// StageLog captures one stage run end to end: the query, what the LLM said,
// what the tool did, and how many retries each consumed.
type StageLog struct {
	SessionID     string      `json:"session_id"`
	Stage         int         `json:"stage"`
	Timestamp     time.Time   `json:"timestamp"`
	Query         string      `json:"query,omitempty"`
	PromptBytes   int         `json:"prompt_bytes,omitempty"`
	LLMOutput     string      `json:"llm_output,omitempty"`
	LLMRetries    int         `json:"llm_retries,omitempty"`
	LLMFallback   bool        `json:"llm_fallback,omitempty"`
	ToolCall      string      `json:"tool_call,omitempty"`
	ToolResult    any         `json:"tool_result,omitempty"`
	ToolRetries   int         `json:"tool_retries,omitempty"`
	BlockingError string      `json:"blocking_error,omitempty"`
	Advisories    []string    `json:"advisories,omitempty"`
	Metadata      LLMMetadata `json:"metadata"`
}

// FileStageLogger logs to a file, accumulating stage records and flushing at the end
type FileStageLogger struct {
	records []StageLog
	writer  io.Writer
}

// NewFileStageLogger creates a new file-based stage logger
func NewFileStageLogger(writer io.Writer) *FileStageLogger {
	return &FileStageLogger{
		records: make([]StageLog, 0),
		writer:  writer,
	}
}

// LogStage logs a stage record to the buffer (does not flush immediately)
func (fsl *FileStageLogger) LogStage(record StageLog) error {
	fsl.records = append(fsl.records, record)
	return nil
}

// Flush flushes all accumulated records to the writer
func (fsl *FileStageLogger) Flush() error {
	if fsl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"session": map[string]any{
			"timestamp": time.Now(),
			"stages":    fsl.records,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stage log: %w", err)
	}

	if _, err := fsl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write stage log: %w", err)
	}

	// Clear the buffer after successful write
	fsl.records = fsl.records[:0]
	return nil
}

// NoOpStageLogger is a logger that discards all log entries
type NoOpStageLogger struct{}

// NewNoOpStageLogger creates a new no-op stage logger
func NewNoOpStageLogger() *NoOpStageLogger {
	return &NoOpStageLogger{}
}

// LogStage discards the stage record (no-op)
func (nop *NoOpStageLogger) LogStage(record StageLog) error {
	return nil
}

// StdoutStageLogger logs each stage record as a JSON line to stdout
type StdoutStageLogger struct{}

// NewStdoutStageLogger creates a new stdout-based stage logger
func NewStdoutStageLogger() *StdoutStageLogger {
	return &StdoutStageLogger{}
}

// LogStage writes the stage record as a JSON line to os.Stdout
func (l *StdoutStageLogger) LogStage(record StageLog) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
