// Package answer drives the streaming generation step: it sends the
// assembled prompt to the model, forwards each fragment to the caller as
// it arrives, and returns the updated conversation.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lernia/lernia/internal/provider"
)

// SystemInstruction frames the model as a curriculum-bound tutor. Declining
// questions outside the supplied material happens here, not in the pipeline.
const SystemInstruction = `You are a patient, encouraging school tutor. ` +
	`You only help with the curriculum material provided in the prompt. ` +
	`If the question is not covered by that material, say so briefly and ` +
	`steer the student back to their coursework instead of answering.`

// Service streams tutoring answers from a generation provider.
type Service struct {
	gen    provider.Generator
	logger *slog.Logger
}

// New creates a Service.
func New(gen provider.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, logger: logger}
}

// Answer streams the model's response for prompt, forwarding every fragment
// to onDelta before accumulating it. On success it returns the complete
// answer text and the conversation extended with this exchange, the user
// turn carrying the original question rather than the assembled prompt.
//
// Cancelling ctx aborts the provider stream; fragments already forwarded
// stay with the caller.
func (s *Service) Answer(ctx context.Context, question, prompt string, history []provider.Turn, onDelta provider.DeltaFunc) (string, []provider.Turn, error) {
	var full strings.Builder

	err := s.gen.Stream(ctx, provider.GenerateRequest{
		Prompt:            prompt,
		SystemInstruction: SystemInstruction,
		History:           history,
	}, func(ctx context.Context, text string) error {
		if err := onDelta(ctx, text); err != nil {
			return err
		}
		full.WriteString(text)
		return nil
	})
	if err != nil {
		return "", history, fmt.Errorf("generating answer: %w", err)
	}

	text := full.String()
	turns := make([]provider.Turn, 0, len(history)+2)
	turns = append(turns, history...)
	turns = append(turns,
		provider.Turn{Role: provider.RoleUser, Text: question},
		provider.Turn{Role: provider.RoleModel, Text: text},
	)

	s.logger.Debug("answer generated", "chars", len(text), "turns", len(turns))
	return text, turns, nil
}
