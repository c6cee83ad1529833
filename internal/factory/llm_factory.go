package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/finwatch/expense-importer/internal/adapters/bedrock"
	"github.com/finwatch/expense-importer/internal/adapters/gemini"
	"github.com/finwatch/expense-importer/internal/adapters/openai"
	"github.com/finwatch/expense-importer/internal/config"
	"github.com/finwatch/expense-importer/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates text-generation clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{cfg: cfg, logger: logger}
}

// CreateTextGenerator creates a text generator based on the configuration
func (f *LLMFactory) CreateTextGenerator() (core.TextGenerator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "gemini":
		c := f.cfg.GetGemini()
		return gemini.NewGeminiClient(c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger)
	case "openai":
		c := f.cfg.GetOpenAI()
		return openai.NewOpenAIClient(c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger), nil
	case "bedrock":
		c := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(c.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		runtime := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.NewBedrockClient(runtime, c.ModelID, c.MaxTokens, c.Temperature, c.TopP, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
