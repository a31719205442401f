package provider

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Gemini implements Embedder and Generator on the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	dim        int32
	logger     *slog.Logger
}

// GeminiConfig holds construction parameters for the Gemini provider.
type GeminiConfig struct {
	APIKey     string
	Model      string // generation model, e.g. "gemini-2.5-flash"
	EmbedModel string // embedding model, e.g. "gemini-embedding-001"
	Dimension  int    // requested embedding width
}

// tutoring answers must not be blocked for quoting curriculum material, so
// filtering is left to the product layer.
var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// NewGemini creates a Gemini provider using the Gemini API backend.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:     client,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		dim:        int32(cfg.Dimension), // #nosec G115 -- validated by config
		logger:     logger,
	}, nil
}

// Embed computes one embedding vector for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := g.dim
	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// Stream opens a streaming generation session and forwards each text
// fragment to onDelta in emission order. Context cancellation aborts the
// provider stream.
func (g *Gemini) Stream(ctx context.Context, req GenerateRequest, onDelta DeltaFunc) error {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SafetySettings: geminiSafetySettings,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	for chunk, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return fmt.Errorf("streaming generation: %w", err)
		}
		if text := chunk.Text(); text != "" {
			if err := onDelta(ctx, text); err != nil {
				return err
			}
		}
	}
	return nil
}
