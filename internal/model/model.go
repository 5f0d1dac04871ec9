package model

import (
	"context"
	"fmt"
	"strings"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Difficulty represents the requested question difficulty.
type Difficulty string

const (
	DifficultySimple Difficulty = "Simple"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the accepted difficulty levels in display order.
var Difficulties = []Difficulty{DifficultySimple, DifficultyMedium, DifficultyHard}

// ParseDifficulty maps a case-insensitive name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (want Simple, Medium or Hard)", s)
}

// SourceDocument is the extracted text of one uploaded PDF.
type SourceDocument struct {
	Filename  string
	Text      string
	PageCount int
}

// MCQQuestion is a multiple-choice question with four lettered options.
type MCQQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Source        string   `json:"source"`
}

// ShortAnswerQuestion is a free-text question with a reference answer.
type ShortAnswerQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

// QuestionSet is the unit of persistence: all questions from one generation batch.
type QuestionSet struct {
	MCQ         []MCQQuestion         `json:"mcq"`
	ShortAnswer []ShortAnswerQuestion `json:"short_answer"`
}

// Len returns the total number of questions in the set.
func (qs QuestionSet) Len() int {
	return len(qs.MCQ) + len(qs.ShortAnswer)
}

// Sources returns the distinct source filenames in first-seen order.
func (qs QuestionSet) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, q := range qs.MCQ {
		add(q.Source)
	}
	for _, q := range qs.ShortAnswer {
		add(q.Source)
	}
	return out
}

// QuestionKind distinguishes multiple-choice from short-answer questions.
type QuestionKind string

const (
	KindMCQ         QuestionKind = "mcq"
	KindShortAnswer QuestionKind = "short_answer"
)

// AnswerSubmission is a user's answer to one question of a test session.
// A nil UserAnswer means the question was left unanswered.
type AnswerSubmission struct {
	QuestionIndex int
	UserAnswer    *string
}

// Feedback holds the evaluator's three feedback blocks.
type Feedback struct {
	Correct     string `json:"correct"`
	Incorrect   string `json:"incorrect"`
	Suggestions string `json:"suggestions"`
}

// EvaluationResult is the score (0-10) and feedback for one answer.
type EvaluationResult struct {
	Score    int      `json:"score"`
	Feedback Feedback `json:"feedback"`
}

// AppConfig holds runtime parameters for the HTTP server set via CLI flags.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments (e.g. "/quiz")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	MaxUploadMB   int64  // Request body limit for PDF uploads; 0 disables it
}
