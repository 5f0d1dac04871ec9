package quizgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/model"
)

// ParseError means a document's reply could not be read as a question set.
type ParseError struct {
	Filename string
	Raw      string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse questions for %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// QuestionSetSchema describes the reply expected for one document. It is
// sent to providers with structured output and used to validate every reply.
// It sticks to keywords every provider accepts; option count and answer
// letters are checked after decoding.
var QuestionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "Multiple-choice and short-answer questions generated from a document",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"mcq", "short_answer"},
		"properties": map[string]any{
			"mcq": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"question", "options", "correct_answer"},
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": `Four options prefixed "A) " to "D) "`,
						},
						"correct_answer": map[string]any{
							"type":        "string",
							"description": "Letter of the correct option, A to D",
						},
					},
				},
			},
			"short_answer": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"question", "answer"},
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"answer":   map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// StripCodeFence removes a Markdown code fence around text: an opening
// fence of three or more backticks with an optional language tag, and a
// closing fence. Text without a fence is returned trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimLeft(s, "`")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// The rest of the opening line is the language tag.
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-+")
	}

	s = strings.TrimSpace(s)
	if end := strings.LastIndex(s, "```"); end != -1 && strings.TrimSpace(strings.TrimRight(s[end:], "`")) == "" {
		s = strings.TrimRight(s[:end], "`")
	}
	return strings.TrimSpace(s)
}

// extractObject narrows text to the outermost JSON object, dropping any
// prose the model put around it.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

// ParseReply reads a model reply into a QuestionSet. Sources are left empty;
// the generator tags them.
func ParseReply(filename, reply string) (model.QuestionSet, error) {
	cleaned := extractObject(StripCodeFence(reply))
	if err := llm.ValidateJSON(QuestionSetSchema, []byte(cleaned)); err != nil {
		return model.QuestionSet{}, &ParseError{Filename: filename, Raw: reply, Err: err}
	}

	var set model.QuestionSet
	if err := json.Unmarshal([]byte(cleaned), &set); err != nil {
		return model.QuestionSet{}, &ParseError{Filename: filename, Raw: reply, Err: err}
	}
	for i := range set.MCQ {
		q := &set.MCQ[i]
		q.CorrectAnswer = normalizeLetter(q.CorrectAnswer)
		if err := checkMCQ(*q); err != nil {
			return model.QuestionSet{}, &ParseError{Filename: filename, Raw: reply, Err: fmt.Errorf("mcq %d: %w", i+1, err)}
		}
	}
	for i, q := range set.ShortAnswer {
		if strings.TrimSpace(q.Question) == "" {
			return model.QuestionSet{}, &ParseError{Filename: filename, Raw: reply, Err: fmt.Errorf("short answer %d: empty question", i+1)}
		}
	}
	if set.MCQ == nil {
		set.MCQ = []model.MCQQuestion{}
	}
	if set.ShortAnswer == nil {
		set.ShortAnswer = []model.ShortAnswerQuestion{}
	}
	return set, nil
}

func checkMCQ(q model.MCQQuestion) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("empty question")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("got %d options, want 4", len(q.Options))
	}
	if !strings.Contains("ABCD", q.CorrectAnswer) || q.CorrectAnswer == "" {
		return fmt.Errorf("correct answer %q is not one of A-D", q.CorrectAnswer)
	}
	return nil
}

// normalizeLetter reduces answers like "b) Paris" to "B".
func normalizeLetter(answer string) string {
	a := strings.TrimSpace(answer)
	if a == "" {
		return a
	}
	return strings.ToUpper(a[:1])
}
