package bedrock

import (
	"testing"

	"go.uber.org/zap"
)

func client(modelID string) *BedrockClient {
	return NewBedrockClient(nil, modelID, 1000, 0.1, 0.9, zap.NewNop())
}

func TestModelFamilyDetection(t *testing.T) {
	if !client("anthropic.claude-v2").isAnthropicModel() {
		t.Error("claude model not detected as anthropic")
	}
	if !client("amazon.titan-text-express-v1").isAmazonTitanModel() {
		t.Error("titan model not detected")
	}
	c := client("meta.llama3-8b-instruct-v1:0")
	if c.isAnthropicModel() || c.isAmazonTitanModel() {
		t.Error("llama model misclassified")
	}
}

func TestExtractTextPerFamily(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		body    string
		want    string
		wantErr bool
	}{
		{"anthropic", "anthropic.claude-v2", `{"completion": "[{\"index\": 0}]"}`, `[{"index": 0}]`, false},
		{"titan", "amazon.titan-text-express-v1", `{"results": [{"outputText": "ok"}]}`, "ok", false},
		{"titan empty", "amazon.titan-text-express-v1", `{"results": []}`, "", true},
		{"generic completion", "meta.llama3", `{"completion": "done"}`, "done", false},
		{"generic output_text", "meta.llama3", `{"output_text": "done"}`, "done", false},
		{"malformed", "anthropic.claude-v2", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client(tt.modelID).extractText([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("extractText succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extractText returned %v", err)
			}
			if got != tt.want {
				t.Errorf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}
