package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/model"
)

type memSaver struct {
	saved []model.QuestionSet
	err   error
}

func (m *memSaver) Save(set model.QuestionSet) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, set)
	return nil
}

type memInfo struct {
	info *model.GenerationInfo
}

func (m *memInfo) SetGenerationInfo(info model.GenerationInfo) error {
	m.info = &info
	return nil
}

func reply(mcq, short int, tag string) string {
	var m, s []string
	for i := range mcq {
		m = append(m, fmt.Sprintf(`{"question":"%s mcq %d","options":["A) a","B) b","C) c","D) d"],"correct_answer":"A"}`, tag, i))
	}
	for i := range short {
		s = append(s, fmt.Sprintf(`{"question":"%s short %d","answer":"because"}`, tag, i))
	}
	return fmt.Sprintf(`{"mcq":[%s],"short_answer":[%s]}`, strings.Join(m, ","), strings.Join(s, ","))
}

func sourceDocs() []model.SourceDocument {
	return []model.SourceDocument{
		{Filename: "physics.pdf", Text: "Newton's laws", PageCount: 3},
		{Filename: "chemistry.pdf", Text: "Covalent bonds", PageCount: 1},
	}
}

func TestGenerateTagsSources(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "```json\n" + reply(3, 2, "phys") + "\n```"},
		llm.MockResponse{Text: reply(1, 1, "chem")},
	)
	saver := &memSaver{}
	info := &memInfo{}
	g := New(mock, saver, info)

	res, err := g.Generate(context.Background(), sourceDocs(), model.DifficultyMedium, 4, 2)
	require.NoError(t, err)

	assert.Empty(t, res.Failures)
	require.Len(t, res.Set.MCQ, 4)
	require.Len(t, res.Set.ShortAnswer, 3)
	for _, q := range res.Set.MCQ {
		want := "physics.pdf"
		if strings.HasPrefix(q.Question, "chem") {
			want = "chemistry.pdf"
		}
		assert.Equal(t, want, q.Source, q.Question)
	}
	for _, q := range res.Set.ShortAnswer {
		want := "physics.pdf"
		if strings.HasPrefix(q.Question, "chem") {
			want = "chemistry.pdf"
		}
		assert.Equal(t, want, q.Source, q.Question)
	}
	// Document order is kept.
	assert.Equal(t, "phys mcq 0", res.Set.MCQ[0].Question)
	assert.Equal(t, "chem mcq 0", res.Set.MCQ[3].Question)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, res.Set, saver.saved[0])

	require.NotNil(t, info.info)
	assert.Equal(t, []string{"physics.pdf", "chemistry.pdf"}, info.info.Sources)
	assert.Equal(t, model.DifficultyMedium, info.info.Difficulty)
	assert.Equal(t, 4, info.info.MCQCount)

	require.Equal(t, 2, mock.CallCount())
	first := mock.Calls[0]
	assert.Same(t, QuestionSetSchema, first.Schema)
	prompt := first.Messages[0].Content
	assert.True(t, strings.HasPrefix(prompt, "Newton's laws\n"))
	assert.Contains(t, prompt, "- 3 Multiple Choice Questions (MCQs)")
	assert.Contains(t, prompt, "- 2 Short Answer Questions")
	assert.Contains(t, prompt, "All questions should be Medium level.")
	assert.Contains(t, prompt, "Source: physics.pdf")
	assert.Contains(t, mock.Calls[1].Messages[0].Content, "- 1 Multiple Choice Questions (MCQs)")
}

func TestGeneratePartialFailure(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "I'm sorry, I can't produce JSON today."},
		llm.MockResponse{Text: reply(1, 1, "chem")},
	)
	saver := &memSaver{}
	g := New(mock, saver, nil)

	res, err := g.Generate(context.Background(), sourceDocs(), model.DifficultySimple, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Set.Len())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "physics.pdf", res.Failures[0].Filename)
	var pe *ParseError
	assert.True(t, errors.As(res.Failures[0].Err, &pe))
	require.Len(t, saver.saved, 1)
}

func TestGenerateProviderErrorSkipsDocument(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: reply(2, 1, "phys")},
		llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}},
	)
	res, err := New(mock, &memSaver{}, nil).Generate(context.Background(), sourceDocs(), model.DifficultyHard, 2, 1)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "chemistry.pdf", res.Failures[0].Filename)
	var rl *llm.ErrRateLimit
	assert.True(t, errors.As(res.Failures[0].Err, &rl))
}

func TestGenerateAllFailed(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "nope"},
		llm.MockResponse{Text: "still nope"},
	)
	saver := &memSaver{}
	res, err := New(mock, saver, nil).Generate(context.Background(), sourceDocs(), model.DifficultyHard, 2, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoQuestions)
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Len(t, res.Failures, 2)
	assert.Empty(t, saver.saved, "stored set must not be overwritten")
}

func TestGenerateInputErrors(t *testing.T) {
	mock := llm.NewMockProvider()

	_, err := New(nil, &memSaver{}, nil).Generate(context.Background(), sourceDocs(), model.DifficultyHard, 1, 1)
	assert.ErrorIs(t, err, llm.ErrMissingCredential)

	_, err = New(mock, &memSaver{}, nil).Generate(context.Background(), nil, model.DifficultyHard, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = New(mock, &memSaver{}, nil).Generate(context.Background(), sourceDocs(), "Impossible", 1, 1)
	assert.Error(t, err)

	assert.Zero(t, mock.CallCount())
}

func TestGenerateSaveError(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: reply(1, 1, "phys")},
		llm.MockResponse{Text: reply(1, 1, "chem")},
	)
	_, err := New(mock, &memSaver{err: errors.New("read-only")}, nil).
		Generate(context.Background(), sourceDocs(), model.DifficultyHard, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save questions")
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := llm.NewMockProvider(llm.MockResponse{Text: reply(1, 1, "x")})
	_, err := New(mock, &memSaver{}, nil).Generate(ctx, sourceDocs(), model.DifficultyHard, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mock.CallCount())
}
