package recipeagent

import "time"

// ModelConfig configures the Gemini analyzer.
type ModelConfig struct {
	APIKey          string        `env:"GEMINI_API_KEY"`
	Model           string        `env:"GEMINI_MODEL,default=gemini-1.5-flash-latest"`
	MaxOutputTokens int32         `env:"MAX_OUTPUT_TOKENS,default=2048"`
	Temperature     float32       `env:"TEMPERATURE,default=0.6"`
	MaxRetries      int           `env:"MAX_LLM_RETRIES,default=3"`
	CallTimeout     time.Duration `env:"LLM_CALL_TIMEOUT,default=30s"`
}

// ProviderConfig holds credentials for the recipe, messaging, and email
// providers. Keys are read once at startup and never surfaced to the UI.
type ProviderConfig struct {
	SpoonacularAPIKey string        `env:"SPOONACULAR_API_KEY"`
	TelegramBotToken  string        `env:"TELEGRAM_BOT_API_KEY"`
	SendGridAPIKey    string        `env:"SENDGRID_API_KEY"`
	SendGridSender    string        `env:"SENDGRID_SENDER_EMAIL,default=recipe-suggester-bot@example.com"`
	MaxToolRetries    int           `env:"MAX_TOOL_RETRIES,default=2"`
	CallTimeout       time.Duration `env:"TOOL_CALL_TIMEOUT,default=15s"`
}

// AgentConfig configures the local backend process.
type AgentConfig struct {
	ListenAddr     string `env:"LISTEN_ADDR,default=127.0.0.1:8000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`
	SnapshotDir    string `env:"SESSION_SNAPSHOT_DIR"`
	RedisURL       string `env:"REDIS_URL"`
	StageLogDir    string `env:"STAGE_LOG_DIR,default=./logs"`
	Debug          bool   `env:"DEBUG,default=false"`
}
