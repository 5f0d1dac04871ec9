package llm

import (
	"context"
	"errors"
	"testing"
)

func TestMockProviderFIFO(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockProvider(MockResponse{Text: "first"}, MockResponse{Err: boom})
	m.AddResponse(MockResponse{Text: "third"})

	ctx := context.Background()
	resp, err := m.Generate(ctx, UserPrompt("1"))
	if err != nil || resp.Text != "first" {
		t.Fatalf("call 1 = %v, %v", resp, err)
	}
	if _, err := m.Generate(ctx, UserPrompt("2")); !errors.Is(err, boom) {
		t.Fatalf("call 2 error = %v, want boom", err)
	}
	resp, err = m.Generate(ctx, UserPrompt("3"))
	if err != nil || resp.Text != "third" {
		t.Fatalf("call 3 = %v, %v", resp, err)
	}

	_, err = m.Generate(ctx, UserPrompt("4"))
	var pu *ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Fatalf("empty queue should return ErrProviderUnavailable, got %v", err)
	}
	if m.CallCount() != 4 {
		t.Errorf("CallCount = %d, want 4", m.CallCount())
	}
	if m.Calls[2].Messages[0].Content != "3" {
		t.Errorf("recorded prompt = %q", m.Calls[2].Messages[0].Content)
	}
}
