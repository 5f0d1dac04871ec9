// Package views holds the templ components for the HTML pages.
package views

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/pdfquiz/internal/i18n"
	"github.com/pavelanni/pdfquiz/internal/model"
)

const pageStyle = `<style>body{font-family:system-ui,sans-serif;max-width:56rem;margin:0 auto;padding:1rem;color:#1a1a1a}
header{background:linear-gradient(90deg,#3b82f6,#2563eb);color:#fff;padding:1rem 1.5rem;border-radius:12px;margin-bottom:1.5rem}
header h1{margin:0}header p{margin:.4rem 0 0;opacity:.9}
nav a{margin-right:1rem}
.card{border:1px solid #ddd;border-radius:8px;padding:1rem;margin:1rem 0}
.question{border-left:3px solid #3b82f6;padding:.5rem 1rem;margin:1rem 0}
.source{color:#666;font-style:italic}
.error{background:#fee2e2;border:1px solid #ef4444;padding:.75rem;border-radius:8px}
.notice{background:#fef9c3;border:1px solid #eab308;padding:.75rem;border-radius:8px}
.score{font-size:1.4rem;font-weight:600}
button{background:#2563eb;color:#fff;border:0;padding:.6rem 1.5rem;border-radius:8px;font-weight:600;cursor:pointer}
label{display:block;margin:.5rem 0 .2rem}</style>`

// FormValues are the generation settings shown in the form.
type FormValues struct {
	Difficulty string
	MCQ        int
	Short      int
}

// IndexData is everything the start page shows.
type IndexData struct {
	Info          *model.GenerationInfo
	QuestionCount int
	LLMReady      bool
	Form          FormValues
	Errors        []string
}

// Skipped is a document that contributed no questions, with the reason.
type Skipped struct {
	Filename string
	Reason   string
}

// AnswerField is the form field name for the answer to item index.
func AnswerField(index int) string {
	return fmt.Sprintf("answer_%d", index)
}

func optionID(index, option int) string {
	return fmt.Sprintf("%s_%d", AnswerField(index), option)
}

// link prefixes an application path with the deployment base path.
func link(ctx context.Context, path string) templ.SafeURL {
	return templ.SafeURL(model.BasePathFromContext(ctx) + path)
}

func questionNumber(ctx context.Context, n int) string {
	return appI18n.Td(ctx, "QuestionN", map[string]any{"N": n})
}

func kindHeading(ctx context.Context, kind model.QuestionKind) string {
	if kind == model.KindShortAnswer {
		return appI18n.T(ctx, "ShortHeading")
	}
	return appI18n.T(ctx, "MCQHeading")
}

func lastGenerated(ctx context.Context, info *model.GenerationInfo) string {
	return appI18n.Td(ctx, "LastGenerated", map[string]any{
		"MCQ":        info.MCQCount,
		"Short":      info.ShortCount,
		"Difficulty": appI18n.T(ctx, "Difficulty"+string(info.Difficulty)),
		"When":       info.GeneratedAt.Local().Format("2006-01-02 15:04"),
	})
}

func answerText(answers []*string, index int) string {
	if index < 0 || index >= len(answers) || answers[index] == nil {
		return ""
	}
	return *answers[index]
}

func shownAnswer(ctx context.Context, answer *string) string {
	if answer == nil {
		return appI18n.T(ctx, "NotAnswered")
	}
	return *answer
}
