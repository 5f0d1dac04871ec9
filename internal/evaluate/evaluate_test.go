package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/llm/prompts"
	"github.com/pavelanni/pdfquiz/internal/model"
)

func ptr(s string) *string { return &s }

func TestParseReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  model.EvaluationResult
	}{
		{
			name: "all fields",
			reply: "Score: 8\nCorrect: Named the capital.\n" +
				"Incorrect: Misspelled it.\nSuggestions: Check spelling.",
			want: model.EvaluationResult{Score: 8, Feedback: model.Feedback{
				Correct: "Named the capital.", Incorrect: "Misspelled it.", Suggestions: "Check spelling.",
			}},
		},
		{
			name:  "score only",
			reply: "Score: 7",
			want: model.EvaluationResult{Score: 7, Feedback: model.Feedback{
				Correct: DefaultCorrect, Incorrect: DefaultIncorrect, Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "markdown bold labels",
			reply: "**Score:** 9/10\n**Correct:** Everything.\n**Incorrect:** Nothing.\n**Suggestions:** Keep going.",
			want: model.EvaluationResult{Score: 9, Feedback: model.Feedback{
				Correct: "Everything.", Incorrect: "Nothing.", Suggestions: "Keep going.",
			}},
		},
		{
			name:  "incorrect without correct",
			reply: "Score: 2\nIncorrect: Wrong city.",
			want: model.EvaluationResult{Score: 2, Feedback: model.Feedback{
				Correct: DefaultCorrect, Incorrect: "Wrong city.", Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "no score",
			reply: "Correct: Partly right.",
			want: model.EvaluationResult{Score: DefaultScore, Feedback: model.Feedback{
				Correct: "Partly right.", Incorrect: DefaultIncorrect, Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "non-numeric score",
			reply: "Score: high\nSuggestions: Read chapter 2.",
			want: model.EvaluationResult{Score: DefaultScore, Feedback: model.Feedback{
				Correct: DefaultCorrect, Incorrect: DefaultIncorrect, Suggestions: "Read chapter 2.",
			}},
		},
		{
			name:  "score above range is clamped",
			reply: "Score: 15",
			want:  model.EvaluationResult{Score: MaxScore, Feedback: Fallback().Feedback},
		},
		{
			name:  "negative score is clamped",
			reply: "Score: -2",
			want:  model.EvaluationResult{Score: MinScore, Feedback: Fallback().Feedback},
		},
		{
			name:  "empty reply",
			reply: "",
			want:  Fallback(),
		},
		{
			name:  "empty field does not take the next line",
			reply: "Score: abc\nCorrect:\nIncorrect: b",
			want: model.EvaluationResult{Score: DefaultScore, Feedback: model.Feedback{
				Correct: DefaultCorrect, Incorrect: "b", Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "score on the next line is not read",
			reply: "Score:\n7 apples\nSuggestions:   \nIncorrect: none",
			want: model.EvaluationResult{Score: DefaultScore, Feedback: model.Feedback{
				Correct: DefaultCorrect, Incorrect: "none", Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "tab after colon",
			reply: "Score:\t6\nCorrect:\tgood",
			want: model.EvaluationResult{Score: 6, Feedback: model.Feedback{
				Correct: "good", Incorrect: DefaultIncorrect, Suggestions: DefaultSuggestions,
			}},
		},
		{
			name:  "lowercase labels",
			reply: "score: 4\ncorrect: ok\nincorrect: not ok\nsuggestions: more",
			want: model.EvaluationResult{Score: 4, Feedback: model.Feedback{
				Correct: "ok", Incorrect: "not ok", Suggestions: "more",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReply(tt.reply))
		})
	}
}

func TestEvaluate(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Text: "Score: 10\nCorrect: Exact match.\nIncorrect: None.\nSuggestions: None needed.",
	})
	ev := New(mock)

	got := ev.Evaluate(context.Background(), "Capital of France?", "Paris", ptr("Paris"))

	assert.Equal(t, 10, got.Score)
	assert.Equal(t, "Exact match.", got.Feedback.Correct)
	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	prompt := req.Messages[0].Content
	assert.Contains(t, prompt, "Question: Capital of France?")
	assert.Contains(t, prompt, "Correct Answer: Paris")
	assert.Contains(t, prompt, "User Answer: Paris")
	assert.Nil(t, req.Schema)

	want, err := prompts.EvaluationInstructions()
	require.NoError(t, err)
	assert.Equal(t, want, req.System)
	assert.Contains(t, req.System, "Score: [score]")
	assert.NotContains(t, prompt, "Score: [score]")
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
}

func TestEvaluateMissingAnswer(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "Score: 0\nIncorrect: No answer given."})

	got := New(mock).Evaluate(context.Background(), "Capital of France?", "Paris", nil)

	assert.Equal(t, 0, got.Score)
	require.Equal(t, 1, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "User Answer: "+prompts.NoAnswer)
}

func TestEvaluateFallback(t *testing.T) {
	tests := map[string]*Evaluator{
		"nil provider":   New(nil),
		"provider error": New(llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}})),
		"empty queue":    New(llm.NewMockProvider()),
	}
	for name, ev := range tests {
		t.Run(name, func(t *testing.T) {
			got := ev.Evaluate(context.Background(), "Capital of France?", "Paris", nil)
			assert.Equal(t, Fallback(), got)
			assert.GreaterOrEqual(t, got.Score, MinScore)
			assert.LessOrEqual(t, got.Score, MaxScore)
			for _, s := range []string{got.Feedback.Correct, got.Feedback.Incorrect, got.Feedback.Suggestions} {
				assert.NotEmpty(t, strings.TrimSpace(s))
			}
		})
	}
}
