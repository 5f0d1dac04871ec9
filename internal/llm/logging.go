package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// RequestLog records model calls. *store.Store implements it.
type RequestLog interface {
	AppendLLMRequest(ctx context.Context, r model.LLMRequest) error
}

// LoggingProvider is a decorator that records every request in a RequestLog.
type LoggingProvider struct {
	inner    Provider
	provider string
	log      RequestLog
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, providerName string, log RequestLog) Provider {
	return &LoggingProvider{inner: p, provider: providerName, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	rec := model.LLMRequest{
		Purpose:     PurposeFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
		CreatedAt:   start,
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		rec.ResponseBody = resp.Text
	}
	if err != nil {
		rec.Error = err.Error()
	}

	// The request itself succeeded or failed independently of the log write.
	if logErr := l.log.AppendLLMRequest(context.WithoutCancel(ctx), rec); logErr != nil {
		slog.Warn("failed to record LLM request", "error", logErr)
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}
	return b.String()
}
