package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/pdfquiz/internal/evaluate"
	"github.com/pavelanni/pdfquiz/internal/export"
	"github.com/pavelanni/pdfquiz/internal/handler/views"
	appI18n "github.com/pavelanni/pdfquiz/internal/i18n"
	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/model"
	"github.com/pavelanni/pdfquiz/internal/quizgen"
	"github.com/pavelanni/pdfquiz/internal/session"
	"github.com/pavelanni/pdfquiz/internal/store"
)

const testToken = "tok"

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// textExtractor treats the upload bytes as the document text; "bad" fails.
type textExtractor struct{}

func (textExtractor) Extract(filename string, data []byte) (model.SourceDocument, error) {
	if string(data) == "bad" {
		return model.SourceDocument{}, &extractError{filename}
	}
	return model.SourceDocument{Filename: filename, Text: string(data), PageCount: 1}, nil
}

type extractError struct{ name string }

func (e *extractError) Error() string { return "cannot read " + e.name }

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) Render(_ context.Context, set model.QuestionSet, l export.Labels) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + l.Title), nil
}

type testEnv struct {
	router    http.Handler
	questions *store.QuestionFile
	pdf       *fakePDF
	sessions  *session.Manager
}

func newEnv(t *testing.T, provider llm.Provider) *testEnv {
	t.Helper()
	qf := store.NewQuestionFile(filepath.Join(t.TempDir(), "questions.json"))
	sessions := session.NewManager(qf, session.DefaultTTL)
	pdf := &fakePDF{}
	h, err := New(Deps{
		Questions: qf,
		Extractor: textExtractor{},
		Generator: quizgen.New(provider, qf, nil),
		Evaluator: evaluate.New(provider),
		Sessions:  sessions,
		PDF:       pdf,
	}, model.AppConfig{MaxUploadMB: 1})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware)
	h.Routes(r)

	return &testEnv{router: r, questions: qf, pdf: pdf, sessions: sessions}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sampleSet() model.QuestionSet {
	return model.QuestionSet{
		MCQ: []model.MCQQuestion{{
			Question:      "What is Go?",
			Options:       []string{"A) A language", "B) A game", "C) A car", "D) A fruit"},
			CorrectAnswer: "A",
			Source:        "go.pdf",
		}},
		ShortAnswer: []model.ShortAnswerQuestion{{
			Question: "Why goroutines?",
			Answer:   "Cheap concurrency.",
			Source:   "go.pdf",
		}},
	}
}

func uploadRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("pdfs", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField(csrfFieldName, testToken))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testToken})
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	form.Set(csrfFieldName, testToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testToken})
	return req
}

const generationReply = `{"mcq":[{"question":"What is Go?","options":["A) A language","B) A game","C) A car","D) A fruit"],"correct_answer":"A"}],` +
	`"short_answer":[{"question":"Why goroutines?","answer":"Cheap concurrency."}]}`

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{}, model.AppConfig{})
	assert.Error(t, err)
}

func TestIndexIssuesCSRFCookie(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "csrf cookie not set")
	assert.Contains(t, rec.Body.String(), `name="pdfs"`)
}

func TestIndexWarnsWithoutProvider(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key is not configured")
}

func TestGenerateRejectsMissingCSRF(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	req := uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, map[string]string{"a.pdf": "text"})
	req.Header.Del("Cookie")

	rec := env.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGenerateWithoutProvider(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.do(uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, map[string]string{"a.pdf": "text"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"bad difficulty", map[string]string{"difficulty": "Extreme", "mcq": "1", "short": "1"}},
		{"zero mcq", map[string]string{"difficulty": "Simple", "mcq": "0", "short": "1"}},
		{"too many short", map[string]string{"difficulty": "Hard", "mcq": "2", "short": "11"}},
		{"not a number", map[string]string{"difficulty": "Medium", "mcq": "x", "short": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider()
			env := newEnv(t, mock)
			rec := env.do(uploadRequest(t, tt.fields, map[string]string{"a.pdf": "text"}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Invalid")
			assert.Zero(t, mock.CallCount())
		})
	}
}

func TestGenerateNoFiles(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	rec := env.do(uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateUnreadableFiles(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	rec := env.do(uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, map[string]string{"a.pdf": "bad"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "a.pdf")
}

func TestGenerateSuccess(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: generationReply})
	env := newEnv(t, mock)

	rec := env.do(uploadRequest(t,
		map[string]string{"difficulty": "medium", "mcq": "1", "short": "1"},
		map[string]string{"go.pdf": "Go is a language.", "broken.pdf": "bad"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "What is Go?")
	assert.Contains(t, body, "broken.pdf")
	assert.Equal(t, 1, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Go is a language.")

	set, err := env.questions.Load()
	require.NoError(t, err)
	assert.Len(t, set.MCQ, 1)
	assert.Len(t, set.ShortAnswer, 1)
	assert.Equal(t, "go.pdf", set.MCQ[0].Source)
}

func TestGenerateAllDocumentsFail(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "not json"})
	env := newEnv(t, mock)
	require.NoError(t, env.questions.Save(sampleSet()))

	rec := env.do(uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, map[string]string{"a.pdf": "text"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	set, err := env.questions.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleSet(), set, "stored set must survive a failed generation")
}

func TestQuestionsPage(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/questions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, env.questions.Save(sampleSet()))
	rec = env.do(httptest.NewRequest(http.MethodGet, "/questions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Why goroutines?")
}

func TestExportHTML(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	require.NoError(t, env.questions.Save(sampleSet()))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/export.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "(Source: go.pdf)")
}

func TestExportPDF(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/export.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, env.pdf.calls)

	require.NoError(t, env.questions.Save(sampleSet()))
	rec = env.do(httptest.NewRequest(http.MethodGet, "/export.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	env.pdf.err = errors.New("no browser")
	rec = env.do(httptest.NewRequest(http.MethodGet, "/export.pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartTestWithoutQuestions(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, env.sessions.Len())
}

func TestUnknownSession(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/test/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(formRequest("/test/nope/submit", url.Values{}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTakeTest(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "Score: 9\nCorrect: right language\nIncorrect: nothing\nSuggestions: none"},
		llm.MockResponse{Text: "Score: 4\nCorrect: mentions concurrency\nIncorrect: vague\nSuggestions: be specific"},
	)
	env := newEnv(t, mock)
	require.NoError(t, env.questions.Save(sampleSet()))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/test/"))

	rec = env.do(httptest.NewRequest(http.MethodGet, loc, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="A) A language"`)

	form := url.Values{}
	form.Set(views.AnswerField(0), "A) A language")
	form.Set(views.AnswerField(1), "They are cheap.")
	rec = env.do(formRequest(loc+"/submit", form))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "13/20")
	assert.Contains(t, body, "be specific")
	require.Equal(t, 2, mock.CallCount())
	assert.Contains(t, mock.Calls[1].Messages[0].Content, "They are cheap.")

	// The session is closed once graded.
	assert.Zero(t, env.sessions.Len())
	rec = env.do(httptest.NewRequest(http.MethodGet, loc, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitUnansweredStillEvaluates(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "Score: 0"},
		llm.MockResponse{Text: "Score: 0"},
	)
	env := newEnv(t, mock)
	require.NoError(t, env.questions.Save(sampleSet()))

	s, err := env.sessions.Start()
	require.NoError(t, err)

	rec := env.do(formRequest("/test/"+s.ID+"/submit", url.Values{}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "[No answer provided]")
}

func TestUploadTooLarge(t *testing.T) {
	env := newEnv(t, llm.NewMockProvider())
	big := strings.Repeat("x", 2<<20)
	rec := env.do(uploadRequest(t, map[string]string{"difficulty": "Simple", "mcq": "1", "short": "1"}, map[string]string{"big.pdf": big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMultipartTempFilesRemoved(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	saved := multipartMemory
	multipartMemory = 1
	t.Cleanup(func() { multipartMemory = saved })

	countTemp := func() int {
		entries, err := os.ReadDir(tmp)
		require.NoError(t, err)
		return len(entries)
	}

	h := &Handler{config: model.AppConfig{MaxUploadMB: 1}}
	var spilled int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, r.MultipartForm)
		require.Len(t, r.MultipartForm.File["pdfs"], 1)
		spilled = countTemp()
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := uploadRequest(t, map[string]string{"difficulty": "Simple"},
		map[string]string{"a.pdf": strings.Repeat("page text ", 100)})
	h.csrfMiddleware(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Positive(t, spilled, "upload should have been written to disk")
	assert.Zero(t, countTemp(), "temporary upload files are removed after the request")
}
