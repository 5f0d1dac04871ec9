package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/pdfquiz/internal/evaluate"
	"github.com/pavelanni/pdfquiz/internal/export"
	"github.com/pavelanni/pdfquiz/internal/extract"
	"github.com/pavelanni/pdfquiz/internal/handler/views"
	appI18n "github.com/pavelanni/pdfquiz/internal/i18n"
	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/model"
	"github.com/pavelanni/pdfquiz/internal/quizgen"
	"github.com/pavelanni/pdfquiz/internal/session"
	"github.com/pavelanni/pdfquiz/internal/store"
)

// QuestionLoader reads the active question set.
type QuestionLoader interface {
	Load() (model.QuestionSet, error)
}

// InfoStore reads metadata about the active question set.
type InfoStore interface {
	GetGenerationInfo() (*model.GenerationInfo, error)
}

// PDFRenderer prints a question set to PDF.
type PDFRenderer interface {
	Render(ctx context.Context, set model.QuestionSet, l export.Labels) ([]byte, error)
}

// Deps are the services the handlers use. Info and PDF are optional.
type Deps struct {
	Questions QuestionLoader
	Info      InfoStore
	Extractor extract.Extractor
	Generator *quizgen.Generator
	Evaluator *evaluate.Evaluator
	Sessions  *session.Manager
	PDF       PDFRenderer
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	questions QuestionLoader
	info      InfoStore
	extractor extract.Extractor
	generator *quizgen.Generator
	evaluator *evaluate.Evaluator
	sessions  *session.Manager
	pdf       PDFRenderer
	config    model.AppConfig
	validate  *validator.Validate
}

// New creates a new Handler.
func New(d Deps, cfg model.AppConfig) (*Handler, error) {
	if d.Questions == nil || d.Extractor == nil || d.Generator == nil || d.Evaluator == nil || d.Sessions == nil {
		return nil, errors.New("handler: questions, extractor, generator, evaluator and sessions are required")
	}
	return &Handler{
		questions: d.Questions,
		info:      d.Info,
		extractor: d.Extractor,
		generator: d.Generator,
		evaluator: d.Evaluator,
		sessions:  d.Sessions,
		pdf:       d.PDF,
		config:    cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/generate", h.handleGenerate)
		r.Get("/questions", h.handleQuestions)
		r.Get("/test", h.handleStartTest)
		r.Get("/test/{sessionID}", h.handleTestPage)
		r.Post("/test/{sessionID}/submit", h.handleSubmit)
	})
	r.Get("/export.html", h.handleExportHTML)
	r.Get("/export.pdf", h.handleExportPDF)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) indexData(ctx context.Context) views.IndexData {
	d := views.IndexData{
		LLMReady: h.generator.Ready(),
		Form:     views.FormValues{Difficulty: string(model.DifficultySimple), MCQ: 1, Short: 1},
	}
	set, err := h.questions.Load()
	switch {
	case err == nil:
		d.QuestionCount = set.Len()
	case !errors.Is(err, store.ErrNoQuestions):
		slog.Error("failed to load questions", "error", err)
	}
	if h.info != nil && d.QuestionCount > 0 {
		info, err := h.info.GetGenerationInfo()
		if err != nil {
			slog.Error("failed to load generation info", "error", err)
		}
		d.Info = info
	}
	return d
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.IndexPage(h.indexData(r.Context())))
}

// generateForm is the validated generation request.
type generateForm struct {
	Difficulty string `validate:"required,oneof=Simple Medium Hard"`
	MCQ        int    `validate:"min=1,max=10"`
	Short      int    `validate:"min=1,max=10"`
}

func (h *Handler) parseGenerateForm(r *http.Request) (generateForm, []string) {
	form := generateForm{Difficulty: r.FormValue("difficulty")}
	if d, err := model.ParseDifficulty(form.Difficulty); err == nil {
		form.Difficulty = string(d)
	}
	form.MCQ, _ = strconv.Atoi(strings.TrimSpace(r.FormValue("mcq")))
	form.Short, _ = strconv.Atoi(strings.TrimSpace(r.FormValue("short")))

	err := h.validate.Struct(form)
	if err == nil {
		return form, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return form, []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	prefix := appI18n.T(r.Context(), "InvalidForm")
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s (%s=%s)", prefix, fe.Field(), fe.Tag(), fe.Param()))
	}
	return form, msgs
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.generator.Ready() {
		h.render(w, r, http.StatusServiceUnavailable, views.MessagePage("NavHome", "APIKeyMissing"))
		return
	}

	form, formErrs := h.parseGenerateForm(r)
	data := h.indexData(ctx)
	data.Form = views.FormValues{Difficulty: form.Difficulty, MCQ: form.MCQ, Short: form.Short}
	if formErrs != nil {
		data.Errors = formErrs
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["pdfs"]
	}
	if len(files) == 0 {
		data.Errors = []string{appI18n.T(ctx, "NoFiles")}
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}

	docs, skipped := h.extractUploads(files)
	if len(docs) == 0 {
		data.Errors = append([]string{appI18n.T(ctx, "NoReadableFiles")}, skippedMessages(skipped)...)
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}

	res, err := h.generator.Generate(ctx, docs, model.Difficulty(form.Difficulty), form.MCQ, form.Short)
	if res != nil {
		for _, f := range res.Failures {
			skipped = append(skipped, views.Skipped{Filename: f.Filename, Reason: f.Err.Error()})
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrMissingCredential):
		h.render(w, r, http.StatusServiceUnavailable, views.MessagePage("NavHome", "APIKeyMissing"))
		return
	case errors.Is(err, quizgen.ErrEmptyInput):
		data.Errors = append([]string{appI18n.T(ctx, "NoReadableFiles")}, skippedMessages(skipped)...)
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	case errors.Is(err, quizgen.ErrNoQuestions):
		slog.Warn("generation produced no questions", "error", err)
		data.Errors = append([]string{appI18n.T(ctx, "GenerationFailed")}, skippedMessages(skipped)...)
		h.render(w, r, http.StatusBadGateway, views.IndexPage(data))
		return
	default:
		slog.Error("generation failed", "error", err)
		http.Error(w, "generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.render(w, r, http.StatusOK, views.QuestionsPage(res.Set, skipped))
}

func (h *Handler) extractUploads(files []*multipart.FileHeader) ([]model.SourceDocument, []views.Skipped) {
	var (
		docs    []model.SourceDocument
		skipped []views.Skipped
	)
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		data, err := readUpload(fh)
		if err != nil {
			skipped = append(skipped, views.Skipped{Filename: name, Reason: err.Error()})
			continue
		}
		doc, err := h.extractor.Extract(name, data)
		if err != nil {
			slog.Warn("skipping unreadable upload", "file", name, "error", err)
			skipped = append(skipped, views.Skipped{Filename: name, Reason: err.Error()})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func skippedMessages(skipped []views.Skipped) []string {
	out := make([]string, len(skipped))
	for i, s := range skipped {
		out[i] = s.Filename + ": " + s.Reason
	}
	return out
}

// loadSet loads the active set, rendering the "no questions" page when
// nothing was generated yet. ok is false when a response was written.
func (h *Handler) loadSet(w http.ResponseWriter, r *http.Request, titleID string) (model.QuestionSet, bool) {
	set, err := h.questions.Load()
	if errors.Is(err, store.ErrNoQuestions) {
		h.render(w, r, http.StatusNotFound, views.MessagePage(titleID, "NoQuestions"))
		return set, false
	}
	if err != nil {
		slog.Error("failed to load questions", "error", err)
		http.Error(w, "failed to load questions", http.StatusInternalServerError)
		return set, false
	}
	return set, true
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadSet(w, r, "NavQuestions")
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, views.QuestionsPage(set, nil))
}

func exportLabels(ctx context.Context) export.Labels {
	return export.Labels{
		Title:        appI18n.T(ctx, "GeneratedQuestions"),
		MCQ:          appI18n.T(ctx, "MCQHeading"),
		ShortAnswer:  appI18n.T(ctx, "ShortHeading"),
		SourcePrefix: appI18n.T(ctx, "Source"),
	}
}

func (h *Handler) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadSet(w, r, "NavQuestions")
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, export.Document(set, exportLabels(r.Context())))
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadSet(w, r, "NavQuestions")
	if !ok {
		return
	}
	if h.pdf == nil {
		h.render(w, r, http.StatusServiceUnavailable, views.MessagePage("NavQuestions", "PDFUnavailable"))
		return
	}
	pdf, err := h.pdf.Render(r.Context(), set, exportLabels(r.Context()))
	if err != nil {
		slog.Error("PDF export failed", "error", err)
		h.render(w, r, http.StatusServiceUnavailable, views.MessagePage("NavQuestions", "PDFUnavailable"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="generated_questions.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	if _, err := w.Write(pdf); err != nil {
		slog.Error("write PDF", "error", err)
	}
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Start()
	if errors.Is(err, store.ErrNoQuestions) {
		h.render(w, r, http.StatusNotFound, views.MessagePage("NavTest", "NoQuestions"))
		return
	}
	if err != nil {
		slog.Error("failed to start test", "error", err)
		http.Error(w, "failed to start test", http.StatusInternalServerError)
		return
	}
	slog.Info("started test session", "session_id", s.ID, "questions", len(s.Items()))
	http.Redirect(w, r, h.path("/test/"+s.ID), http.StatusSeeOther)
}

func (h *Handler) handleTestPage(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.render(w, r, http.StatusNotFound, views.MessagePage("NavTest", "SessionNotFound"))
		return
	}
	h.render(w, r, http.StatusOK, views.TestPage(s.Snapshot()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.evaluator.Ready() {
		h.render(w, r, http.StatusServiceUnavailable, views.MessagePage("TestResults", "APIKeyMissing"))
		return
	}

	id := chi.URLParam(r, "sessionID")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.render(w, r, http.StatusNotFound, views.MessagePage("NavTest", "SessionNotFound"))
		return
	}

	var subs []model.AnswerSubmission
	for _, it := range s.Items() {
		sub := model.AnswerSubmission{QuestionIndex: it.Index}
		if vals, ok := r.PostForm[views.AnswerField(it.Index)]; ok && len(vals) > 0 {
			v := vals[0]
			sub.UserAnswer = &v
		}
		subs = append(subs, sub)
	}

	res, err := h.sessions.Submit(r.Context(), id, subs, h.evaluator)
	if errors.Is(err, session.ErrNotFound) {
		h.render(w, r, http.StatusNotFound, views.MessagePage("NavTest", "SessionNotFound"))
		return
	}
	if err != nil {
		slog.Error("failed to submit test", "session_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("graded test session", "session_id", id, "score", res.TotalScore, "max", res.MaxScore)
	h.render(w, r, http.StatusOK, views.ResultsPage(res))
}
