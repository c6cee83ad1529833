package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// MailConfig represents the mail API configuration
type MailConfig struct {
	BaseURL     string
	AccessToken string
	PageSize    int
}

// ImportConfig represents the import target configuration
type ImportConfig struct {
	Sender          string
	Month           int
	Year            int
	DefaultCurrency string
}

// RateLimitConfig represents the outbound pacing configuration
type RateLimitConfig struct {
	Profile     string
	MaxAttempts int
	BaseDelay   time.Duration
}

// CategorizeConfig represents the categorization batching configuration
type CategorizeConfig struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetMail returns the mail API configuration
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		BaseURL:     c.GetString("mail.base_url"),
		AccessToken: c.GetString("mail.access_token"),
		PageSize:    c.GetInt("mail.page_size"),
	}
}

// GetImport returns the import target configuration
func (c *Config) GetImport() ImportConfig {
	return ImportConfig{
		Sender:          c.GetString("import.sender"),
		Month:           c.GetInt("import.month"),
		Year:            c.GetInt("import.year"),
		DefaultCurrency: c.GetString("import.default_currency"),
	}
}

// GetRateLimit returns the pacing configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	baseDelay, err := c.GetDuration("ratelimit.base_delay")
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{
		Profile:     c.GetString("ratelimit.profile"),
		MaxAttempts: c.GetInt("ratelimit.max_attempts"),
		BaseDelay:   baseDelay,
	}, nil
}

// GetCategorize returns the categorization batching configuration
func (c *Config) GetCategorize() (CategorizeConfig, error) {
	chunkDelay, err := c.GetDuration("categorize.chunk_delay")
	if err != nil {
		return CategorizeConfig{}, err
	}
	return CategorizeConfig{
		ChunkSize:  c.GetInt("categorize.chunk_size"),
		ChunkDelay: chunkDelay,
	}, nil
}
