package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/pdfquiz/internal/model"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// NoAnswer replaces an absent or blank user answer in evaluation prompts.
const NoAnswer = "[No answer provided]"

const maxAnswerRunes = 10000

var (
	loadOnce     sync.Once
	loadErr      error
	generateTmpl *template.Template
	evaluateTmpl *template.Template
	evaluateSys  string
)

// GenerationData holds template data for the question generation prompt.
type GenerationData struct {
	DocumentText string
	MCQCount     int
	ShortCount   int
	Difficulty   model.Difficulty
	Source       string
}

// EvaluationData holds template data for the answer evaluation prompt.
type EvaluationData struct {
	Question  string
	Reference string
	Answer    string
}

// Load parses prompt templates from fsys. Only the first call has an effect;
// the Build functions call it with the embedded templates when nothing was
// loaded before.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		generateTmpl, loadErr = parse(fsys, "templates/generate.txt")
		if loadErr != nil {
			return
		}
		evaluateTmpl, loadErr = parse(fsys, "templates/evaluate.txt")
		if loadErr != nil {
			return
		}
		var sys []byte
		sys, loadErr = fs.ReadFile(fsys, "templates/evaluate_system.txt")
		if loadErr != nil {
			loadErr = fmt.Errorf("failed to read prompt file templates/evaluate_system.txt: %w", loadErr)
			return
		}
		evaluateSys = strings.TrimSpace(string(sys))
	})
	return loadErr
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildGenerationPrompt builds the single user message sent for one document:
// the document text followed by the instruction block.
func BuildGenerationPrompt(data GenerationData) (string, error) {
	if err := Load(templatesFS); err != nil {
		return "", err
	}
	if generateTmpl == nil {
		return "", errors.New("generation template not loaded")
	}
	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}
	return buf.String(), nil
}

// EvaluationInstructions returns the system prompt sent with every
// evaluation: the grading rubric and the reply format.
func EvaluationInstructions() (string, error) {
	if err := Load(templatesFS); err != nil {
		return "", err
	}
	if evaluateSys == "" {
		return "", errors.New("evaluation instructions not loaded")
	}
	return evaluateSys, nil
}

// BuildEvaluationPrompt builds the user message for one answer: the
// question, the reference and the answer.
// A nil or blank answer is rendered as NoAnswer.
func BuildEvaluationPrompt(question, reference string, answer *string) (string, error) {
	if err := Load(templatesFS); err != nil {
		return "", err
	}
	if evaluateTmpl == nil {
		return "", errors.New("evaluation template not loaded")
	}

	var a string
	if answer != nil {
		a = *answer
	}
	data := EvaluationData{
		Question:  question,
		Reference: reference,
		Answer:    sanitizeAnswer(a),
	}

	var buf bytes.Buffer
	if err := evaluateTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render evaluation prompt: %w", err)
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return NoAnswer
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
