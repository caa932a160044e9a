package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/askgraph/askgraph/internal/observability"
)

// GeminiClient implements Client using the Google generative AI SDK. It also
// serves as the embedder when the embedding provider is "gemini".
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGeminiClient creates a client for the Gemini API.
func NewGeminiClient(cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Provider returns the provider name.
func (c *GeminiClient) Provider() string {
	return "gemini"
}

// Complete sends a chat completion request. The conversation history minus
// the final user turn becomes the chat history; the final turn is the sent
// message.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("completion request has no messages")
	}

	model := c.client.GenerativeModel(c.model)
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(float32(req.Temperature))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	chat := model.StartChat()
	history := req.Messages[:len(req.Messages)-1]
	chat.History = make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Text(req.Messages[len(req.Messages)-1].Content))
	if err != nil {
		classified := classifyGeminiError(err)
		observability.RecordLLMMetrics(c.Provider(), "complete", time.Since(start), 0, classified)
		return nil, classified
	}

	text := collectGeminiText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	observability.RecordLLMMetrics(c.Provider(), "complete", time.Since(start), inputTokens+outputTokens, nil)

	return &CompletionResponse{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// Embed generates an embedding for the given text.
func (c *GeminiClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	embedder := c.client.EmbeddingModel(model)

	start := time.Now()
	resp, err := embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		classified := classifyGeminiError(err)
		observability.RecordLLMMetrics(c.Provider(), "embed", time.Since(start), 0, classified)
		return nil, classified
	}
	observability.RecordLLMMetrics(c.Provider(), "embed", time.Since(start), 0, nil)

	return resp.Embedding.Values, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func collectGeminiText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}

// classifyGeminiError maps Google API errors to tagged kinds.
func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}
	return err
}
