package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/finwatch/expense-importer/internal/ratelimit"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient implements core.TextGenerator using Google Gemini.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client configured to return JSON.
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GenerateJSON sends the prompt and returns the raw response text. The model
// is asked for JSON but the caller must treat the payload as untrusted.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected part type %T in Gemini response", resp.Candidates[0].Content.Parts[0])
	}
	c.logger.Debug("Gemini response received",
		zap.String("model", c.modelName),
		zap.Int("response_len", len(text)))
	return string(text), nil
}

// mapError attaches the HTTP status so the retry policy can classify the
// failure.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &ratelimit.StatusError{Code: gerr.Code, Err: err}
	}
	return err
}
