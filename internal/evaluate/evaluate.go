// Package evaluate scores a user's answer against the reference answer.
package evaluate

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/llm/prompts"
	"github.com/pavelanni/pdfquiz/internal/model"
)

// Feedback used when the reply lacks a field or the call fails.
const (
	DefaultCorrect     = "Unable to determine specific correct aspects."
	DefaultIncorrect   = "Unable to determine specific incorrect aspects."
	DefaultSuggestions = "Please review the correct answer and compare it with your response."
)

// Score bounds. DefaultScore is used when the reply has no usable score.
const (
	MinScore     = 0
	MaxScore     = 10
	DefaultScore = 5
)

// temperature keeps grading close to deterministic.
const temperature = 0.1

// Labels may be wrapped in Markdown bold. "Correct" must not match inside
// "Incorrect". A value never continues onto the next line.
var (
	scoreRe       = regexp.MustCompile(`(?i)\bScore\**:\**[ \t]*(-?\d+)`)
	correctRe     = regexp.MustCompile(`(?i)(?:^|[^a-z])Correct\**:\**[ \t]*([^\n]*)`)
	incorrectRe   = regexp.MustCompile(`(?i)\bIncorrect\**:\**[ \t]*([^\n]*)`)
	suggestionsRe = regexp.MustCompile(`(?i)\bSuggestions\**:\**[ \t]*([^\n]*)`)
)

// Evaluator grades answers with a model.
type Evaluator struct {
	provider llm.Provider
}

// New creates an Evaluator. A nil provider makes every evaluation fall back.
func New(provider llm.Provider) *Evaluator {
	return &Evaluator{provider: provider}
}

// Fallback is the result used when the model cannot be asked.
func Fallback() model.EvaluationResult {
	return model.EvaluationResult{
		Score: DefaultScore,
		Feedback: model.Feedback{
			Correct:     DefaultCorrect,
			Incorrect:   DefaultIncorrect,
			Suggestions: DefaultSuggestions,
		},
	}
}

// Evaluate asks the model to compare answer with reference. It never fails:
// any error is logged and the fallback result returned.
func (e *Evaluator) Evaluate(ctx context.Context, question, reference string, answer *string) model.EvaluationResult {
	if e.provider == nil {
		slog.Warn("evaluation skipped: no LLM provider configured")
		return Fallback()
	}

	system, err := prompts.EvaluationInstructions()
	if err != nil {
		slog.Error("failed to load evaluation instructions", "error", err)
		return Fallback()
	}
	prompt, err := prompts.BuildEvaluationPrompt(question, reference, answer)
	if err != nil {
		slog.Error("failed to build evaluation prompt", "error", err)
		return Fallback()
	}

	req := llm.UserPrompt(prompt)
	req.System = system
	req.Temperature = temperature
	resp, err := e.provider.Generate(llm.WithPurpose(ctx, llm.PurposeEvaluate), req)
	if err != nil {
		slog.Error("evaluation failed", "error", err)
		return Fallback()
	}
	return ParseReply(resp.Text)
}

// ParseReply extracts the score and the three feedback lines. Each field is
// read independently; a missing or empty one gets its default.
func ParseReply(text string) model.EvaluationResult {
	text = strings.TrimSpace(text)
	res := model.EvaluationResult{
		Score: parseScore(text),
		Feedback: model.Feedback{
			Correct:     field(correctRe, text, DefaultCorrect),
			Incorrect:   field(incorrectRe, text, DefaultIncorrect),
			Suggestions: field(suggestionsRe, text, DefaultSuggestions),
		},
	}
	return res
}

func parseScore(text string) int {
	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return DefaultScore
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultScore
	}
	if n < MinScore || n > MaxScore {
		clamped := min(max(n, MinScore), MaxScore)
		slog.Warn("score out of range, clamping", "score", n, "clamped", clamped)
		return clamped
	}
	return n
}

func field(re *regexp.Regexp, text, def string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	if v == "" {
		return def
	}
	return v
}

// Ready reports whether a provider is configured.
func (e *Evaluator) Ready() bool {
	return e.provider != nil
}
