package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/lernia/lernia/internal/log"
	"github.com/lernia/lernia/internal/provider"
)

type mockGenerator struct {
	fragments []string
	err       error
	lastReq   provider.GenerateRequest
}

func (m *mockGenerator) Stream(ctx context.Context, req provider.GenerateRequest, onDelta provider.DeltaFunc) error {
	m.lastReq = req
	for _, f := range m.fragments {
		if err := onDelta(ctx, f); err != nil {
			return err
		}
	}
	return m.err
}

func collectDeltas(into *[]string) provider.DeltaFunc {
	return func(_ context.Context, text string) error {
		*into = append(*into, text)
		return nil
	}
}

func TestAnswerStreamsAndAccumulates(t *testing.T) {
	gen := &mockGenerator{fragments: []string{"Half ", "of ", "four ", "is two."}}
	svc := New(gen, log.NewNop())

	var deltas []string
	full, turns, err := svc.Answer(context.Background(), "what is half of four?", "prompt", nil, collectDeltas(&deltas))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if full != "Half of four is two." {
		t.Errorf("full answer = %q", full)
	}
	if len(deltas) != 4 {
		t.Errorf("forwarded %d fragments, want 4", len(deltas))
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Role != provider.RoleUser || turns[0].Text != "what is half of four?" {
		t.Errorf("user turn = %+v, want the original question", turns[0])
	}
	if turns[1].Role != provider.RoleModel || turns[1].Text != full {
		t.Errorf("model turn = %+v", turns[1])
	}
}

func TestAnswerExtendsHistory(t *testing.T) {
	gen := &mockGenerator{fragments: []string{"yes"}}
	svc := New(gen, log.NewNop())

	history := []provider.Turn{
		{Role: provider.RoleUser, Text: "earlier question"},
		{Role: provider.RoleModel, Text: "earlier answer"},
	}

	var deltas []string
	_, turns, err := svc.Answer(context.Background(), "follow-up", "prompt", history, collectDeltas(&deltas))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if len(turns) != 4 {
		t.Fatalf("turns = %d, want 4", len(turns))
	}
	if turns[0].Text != "earlier question" {
		t.Errorf("history not preserved: %+v", turns[0])
	}
	if len(gen.lastReq.History) != 2 {
		t.Errorf("generator received %d history turns, want 2", len(gen.lastReq.History))
	}
}

func TestAnswerSetsSystemInstruction(t *testing.T) {
	gen := &mockGenerator{fragments: []string{"x"}}
	svc := New(gen, log.NewNop())

	var deltas []string
	if _, _, err := svc.Answer(context.Background(), "q", "the prompt", nil, collectDeltas(&deltas)); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if gen.lastReq.SystemInstruction != SystemInstruction {
		t.Errorf("system instruction = %q", gen.lastReq.SystemInstruction)
	}
	if gen.lastReq.Prompt != "the prompt" {
		t.Errorf("prompt = %q, want %q", gen.lastReq.Prompt, "the prompt")
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	gen := &mockGenerator{fragments: []string{"partial "}, err: errors.New("model overloaded")}
	svc := New(gen, log.NewNop())

	var deltas []string
	_, turns, err := svc.Answer(context.Background(), "q", "prompt", nil, collectDeltas(&deltas))
	if err == nil {
		t.Fatal("Answer() expected error")
	}
	// Already-forwarded fragments stay with the caller; history is unchanged.
	if len(deltas) != 1 {
		t.Errorf("forwarded %d fragments before failure, want 1", len(deltas))
	}
	if len(turns) != 0 {
		t.Errorf("turns = %d, want 0 on failure", len(turns))
	}
}

func TestAnswerSinkErrorAbortsStream(t *testing.T) {
	gen := &mockGenerator{fragments: []string{"a", "b", "c"}}
	svc := New(gen, log.NewNop())

	sinkErr := errors.New("client gone")
	forwarded := 0
	_, _, err := svc.Answer(context.Background(), "q", "prompt", nil,
		func(_ context.Context, _ string) error {
			forwarded++
			if forwarded == 2 {
				return sinkErr
			}
			return nil
		})
	if !errors.Is(err, sinkErr) {
		t.Errorf("Answer() error = %v, want sink error", err)
	}
	if forwarded != 2 {
		t.Errorf("forwarded = %d fragments, want 2", forwarded)
	}
}
