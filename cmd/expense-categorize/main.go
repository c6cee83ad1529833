package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/finwatch/expense-importer/internal/config"
	"github.com/finwatch/expense-importer/internal/core"
	"github.com/finwatch/expense-importer/internal/extract"
	"github.com/finwatch/expense-importer/internal/factory"
	"github.com/finwatch/expense-importer/internal/jsonrepair"
	"github.com/finwatch/expense-importer/internal/logging"
	"github.com/finwatch/expense-importer/internal/ratelimit"
	"github.com/finwatch/expense-importer/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "none", "LLM provider (gemini, openai, bedrock, none for keyword rules only)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Extraction flags
	defaultCurrency = flag.String("currency", "USD", "Fallback currency code when the body names none")

	// Input flags
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := createConfigFromFlags()
	text := utils.NewTextProcessor(logger)

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := extract.ReadRFC822(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	extractor := extract.NewExtractor(*defaultCurrency, text, logger)
	expense, err := extractor.Extract(msg)
	if err != nil {
		logger.Fatal("Not an expense email", zap.Error(err))
	}

	gen, err := buildGenerator(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	fetcher := ratelimit.NewFetcher(ratelimit.Normal, ratelimit.DefaultRetry, logger)
	categorizer := core.NewCategorizer(gen, jsonrepair.New(logger), fetcher, text, logger, 10, 0)
	category := categorizer.CategorizeOne(context.Background(), expense.Request())

	result := core.CategorizedExpense{ExtractedExpense: *expense, Category: category}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if closer, ok := gen.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// buildGenerator returns the configured provider client, or a generator that
// always fails so the deterministic keyword rules decide.
func buildGenerator(cfg *config.Config, logger *zap.Logger) (core.TextGenerator, error) {
	if *provider == "none" {
		return ruleOnlyGenerator{}, nil
	}
	return factory.NewLLMFactory(cfg, logger).CreateTextGenerator()
}

type ruleOnlyGenerator struct{}

func (ruleOnlyGenerator) GenerateJSON(context.Context, string) (string, error) {
	return "", errors.New("no LLM provider configured")
}

// createConfigFromFlags builds a configuration instance from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()
	v.Set("llm.provider", *provider)
	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("gemini.max_tokens", *maxTokens)
	v.Set("gemini.temperature", *temperature)
	v.Set("gemini.top_p", *topP)
	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("openai.max_tokens", *maxTokens)
	v.Set("openai.temperature", *temperature)
	v.Set("openai.top_p", *topP)
	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("bedrock.max_tokens", *maxTokens)
	v.Set("bedrock.temperature", *temperature)
	v.Set("bedrock.top_p", *topP)
	return config.NewFromViper(v)
}
