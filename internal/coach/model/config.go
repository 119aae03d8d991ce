package model

// ================ Config ================

// LLMConfig configures the OpenAI-compatible completion endpoint. The client is
// enabled only when BaseURL, APIKey and Model are all set.
type LLMConfig struct {
	BaseURL             string  `envconfig:"LLM_BASE_URL"`
	APIKey              string  `envconfig:"LLM_API_KEY"`
	Model               string  `envconfig:"LLM_MODEL"`
	Timeout             int     `envconfig:"LLM_TIMEOUT" default:"30"`
	ChatTemperature     float32 `envconfig:"LLM_CHAT_TEMPERATURE" default:"0.4"`
	AnalyzerTemperature float32 `envconfig:"LLM_ANALYZER_TEMPERATURE" default:"0.2"`
}

type LibraryConfig struct {
	// Path to a library.json; the embedded catalog is used when empty.
	Path string `envconfig:"LIBRARY_PATH"`
}

type SessionConfig struct {
	TTL string `envconfig:"SESSION_TTL" default:"2h"`
	// MaxTurns bounds the transcript sent to the remote model per chat call; 0 sends all of it.
	MaxTurns int `envconfig:"CHAT_MAX_TURNS" default:"40"`
}

type ServerConfig struct {
	Addr           string   `envconfig:"HTTP_ADDR" default:":8080"`
	AllowedOrigins []string `envconfig:"HTTP_ALLOWED_ORIGINS" default:"*"`
}
