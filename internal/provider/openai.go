package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Embedder and Generator on the OpenAI API. It exists so
// deployments without Gemini access can run the same pipeline; the vector
// dimension must still match the store schema (text-embedding-3-large
// supports 3072 natively).
type OpenAI struct {
	client     *openai.Client
	model      string
	embedModel string
	dim        int
	logger     *slog.Logger
}

// OpenAIConfig holds construction parameters for the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	Model      string // generation model, e.g. "gpt-4o-mini"
	EmbedModel string // embedding model, e.g. "text-embedding-3-large"
	Dimension  int
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAI{
		client:     openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		dim:        cfg.Dimension,
		logger:     logger,
	}, nil
}

// Embed computes one embedding vector for text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(o.embedModel),
		Input:      []string{text},
		Dimensions: o.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Stream opens a streaming chat completion and forwards each delta to
// onDelta in emission order.
func (o *OpenAI) Stream(ctx context.Context, req GenerateRequest, onDelta DeltaFunc) error {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("opening completion stream: %w", err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			o.logger.Debug("closing completion stream", "error", closeErr)
		}
	}()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving completion delta: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(ctx, delta); err != nil {
				return err
			}
		}
	}
}
