// Package quizgen generates quiz questions from extracted documents.
package quizgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/llm/prompts"
	"github.com/pavelanni/pdfquiz/internal/model"
)

// ErrNoQuestions is returned when no document produced any question.
var ErrNoQuestions = errors.New("no questions were generated")

// generationMaxTokens leaves room for ten questions of each kind.
const generationMaxTokens = 8192

// QuestionSaver persists the active question set. *store.QuestionFile implements it.
type QuestionSaver interface {
	Save(set model.QuestionSet) error
}

// InfoRecorder stores metadata about a generation. *store.Store implements it.
type InfoRecorder interface {
	SetGenerationInfo(info model.GenerationInfo) error
}

// DocumentFailure is a document that produced no questions.
type DocumentFailure struct {
	Filename string
	Err      error
}

// Result is the outcome of a generation run.
type Result struct {
	Set         model.QuestionSet
	Allocations []Allocation
	Failures    []DocumentFailure
}

// Generator asks the model for questions one document at a time.
type Generator struct {
	provider llm.Provider
	saver    QuestionSaver
	info     InfoRecorder
}

// New creates a Generator. provider may be nil when no API key is configured;
// Generate then fails with llm.ErrMissingCredential. info is optional.
func New(provider llm.Provider, saver QuestionSaver, info InfoRecorder) *Generator {
	return &Generator{provider: provider, saver: saver, info: info}
}

// Generate produces questions for every document and overwrites the stored
// set. A document whose call or reply fails is skipped and listed in
// Result.Failures. When every document fails the stored set is left alone
// and the error wraps ErrNoQuestions.
func (g *Generator) Generate(ctx context.Context, docs []model.SourceDocument, difficulty model.Difficulty, targetMCQ, targetShort int) (*Result, error) {
	if g.provider == nil {
		return nil, llm.ErrMissingCredential
	}
	difficulty, err := model.ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}
	allocs, err := Allocate(docs, targetMCQ, targetShort)
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeGenerate)
	res := &Result{
		Set: model.QuestionSet{
			MCQ:         []model.MCQQuestion{},
			ShortAnswer: []model.ShortAnswerQuestion{},
		},
		Allocations: allocs,
	}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, err := g.generateOne(ctx, doc, allocs[i], difficulty)
		if err != nil {
			slog.Warn("skipping document", "file", doc.Filename, "error", err)
			res.Failures = append(res.Failures, DocumentFailure{Filename: doc.Filename, Err: err})
			continue
		}
		res.Set.MCQ = append(res.Set.MCQ, set.MCQ...)
		res.Set.ShortAnswer = append(res.Set.ShortAnswer, set.ShortAnswer...)
	}

	if res.Set.Len() == 0 {
		errs := []error{ErrNoQuestions}
		for _, f := range res.Failures {
			errs = append(errs, f.Err)
		}
		return res, errors.Join(errs...)
	}

	if err := g.saver.Save(res.Set); err != nil {
		return res, fmt.Errorf("save questions: %w", err)
	}
	if g.info != nil {
		info := model.GenerationInfo{
			GeneratedAt: time.Now().UTC(),
			Difficulty:  difficulty,
			Sources:     res.Set.Sources(),
			MCQCount:    len(res.Set.MCQ),
			ShortCount:  len(res.Set.ShortAnswer),
		}
		if err := g.info.SetGenerationInfo(info); err != nil {
			slog.Warn("failed to record generation info", "error", err)
		}
	}

	slog.Info("generated questions",
		"documents", len(docs),
		"failed", len(res.Failures),
		"mcq", len(res.Set.MCQ),
		"short_answer", len(res.Set.ShortAnswer),
		"difficulty", difficulty,
	)
	return res, nil
}

func (g *Generator) generateOne(ctx context.Context, doc model.SourceDocument, alloc Allocation, difficulty model.Difficulty) (model.QuestionSet, error) {
	prompt, err := prompts.BuildGenerationPrompt(prompts.GenerationData{
		DocumentText: doc.Text,
		MCQCount:     alloc.MCQ,
		ShortCount:   alloc.Short,
		Difficulty:   difficulty,
		Source:       doc.Filename,
	})
	if err != nil {
		return model.QuestionSet{}, err
	}

	req := llm.UserPrompt(prompt)
	req.Schema = QuestionSetSchema
	req.MaxTokens = generationMaxTokens

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return model.QuestionSet{}, fmt.Errorf("generate questions for %s: %w", doc.Filename, err)
	}
	if resp.StopReason == "max_tokens" {
		slog.Warn("generation reply was truncated", "file", doc.Filename)
	}

	set, err := ParseReply(doc.Filename, resp.Text)
	if err != nil {
		return model.QuestionSet{}, err
	}
	for i := range set.MCQ {
		set.MCQ[i].Source = doc.Filename
	}
	for i := range set.ShortAnswer {
		set.ShortAnswer[i].Source = doc.Filename
	}
	return set, nil
}

// Ready reports whether a provider is configured.
func (g *Generator) Ready() bool {
	return g.provider != nil
}
