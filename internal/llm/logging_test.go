package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/pdfquiz/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

type memLog struct {
	records []model.LLMRequest
	err     error
}

func (m *memLog) AppendLLMRequest(_ context.Context, r model.LLMRequest) error {
	m.records = append(m.records, r)
	return m.err
}

func TestLoggingProvider(t *testing.T) {
	log := &memLog{}
	mock := NewMockProvider(
		MockResponse{Text: "Score: 9", Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	p := WithLogging(mock, ProviderMock, log)

	ctx := WithPurpose(context.Background(), PurposeEvaluate)
	req := Request{System: "be fair", Messages: []Message{{Role: RoleUser, Content: "grade me"}}}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected error from second call")
	}

	if len(log.records) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(log.records))
	}
	ok, failed := log.records[0], log.records[1]
	if !ok.Success || ok.Purpose != PurposeEvaluate || ok.InputTokens != 12 || ok.ResponseBody != "Score: 9" {
		t.Errorf("success record = %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nbe fair") || !strings.Contains(ok.RequestBody, "[user]\ngrade me") {
		t.Errorf("RequestBody = %q", ok.RequestBody)
	}
	if failed.Success || !strings.Contains(failed.Error, "rate limited") {
		t.Errorf("failure record = %+v", failed)
	}
}

func TestLoggingProviderIgnoresLogFailure(t *testing.T) {
	log := &memLog{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockResponse{Text: "ok"}), ProviderMock, log)
	resp, err := p.Generate(context.Background(), UserPrompt("x"))
	if err != nil || resp.Text != "ok" {
		t.Fatalf("Generate = %v, %v", resp, err)
	}
	if log.records[0].Purpose != "unknown" {
		t.Errorf("Purpose = %q, want unknown", log.records[0].Purpose)
	}
}

func TestMetricsProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := WithMetrics(NewMockProvider(
		MockResponse{Text: "{}", Usage: Usage{InputTokens: 100, OutputTokens: 20}},
		MockResponse{Err: errors.New("down")},
	), m)

	ctx := WithPurpose(context.Background(), PurposeGenerate)
	p.Generate(ctx, UserPrompt("a"))
	p.Generate(ctx, UserPrompt("b"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	counts := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			key := f.GetName()
			for _, l := range metric.GetLabel() {
				key += "," + l.GetName() + "=" + l.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				counts[key] = c.GetValue()
			}
		}
	}

	want := map[string]float64{
		"pdfquiz_llm_requests_total,outcome=success,purpose=generate": 1,
		"pdfquiz_llm_requests_total,outcome=error,purpose=generate":   1,
		"pdfquiz_llm_tokens_total,direction=input":                    100,
		"pdfquiz_llm_tokens_total,direction=output":                   20,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s = %v, want %v", k, counts[k], v)
		}
	}
}
