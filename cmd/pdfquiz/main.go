package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/pdfquiz/internal/evaluate"
	"github.com/pavelanni/pdfquiz/internal/export"
	"github.com/pavelanni/pdfquiz/internal/extract"
	"github.com/pavelanni/pdfquiz/internal/handler"
	appI18n "github.com/pavelanni/pdfquiz/internal/i18n"
	"github.com/pavelanni/pdfquiz/internal/llm"
	"github.com/pavelanni/pdfquiz/internal/model"
	"github.com/pavelanni/pdfquiz/internal/quizgen"
	"github.com/pavelanni/pdfquiz/internal/session"
	"github.com/pavelanni/pdfquiz/internal/store"
)

//go:generate templ generate -path ../../internal

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfquiz",
		Short: "Generate quizzes from PDF documents and grade answers with an LLM",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), exportCmd(), requestsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `pdfquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("provider", llm.ProviderGemini, "LLM provider (gemini, openai, anthropic, mock)")
	f.String("model", "", "Model name or alias (empty = provider default)")
	f.String("api-key", "", "Provider API key (or PDFQUIZ_API_KEY, or the provider's own variable)")
	f.String("llm-url", "", "Base URL for OpenAI-compatible APIs")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("questions-file", "generated_questions.json", "Path of the stored question set")
	f.String("db", "pdfquiz.db", "SQLite database path for the LLM request log")
	addLLMFlags(f)
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /quiz)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.Int64("max-upload-mb", 64, "Maximum upload size in MB (0 = unlimited)")
	f.String("chrome-path", "", "Chrome/Chromium binary for PDF export (empty = auto-detect)")
	f.Duration("session-ttl", session.DefaultTTL, "How long an unsubmitted test session is kept (0 = until submitted)")
	addLogFlags(f)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [flags] FILE.pdf...",
		Short: "Generate questions from local PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("questions-file", "generated_questions.json", "Path of the stored question set")
	f.String("db", "pdfquiz.db", "SQLite database path for the LLM request log")
	addLLMFlags(f)
	f.StringP("difficulty", "d", string(model.DifficultySimple), "Question difficulty (Simple, Medium, Hard)")
	f.Int("mcq", 5, "Total number of multiple-choice questions")
	f.Int("short", 3, "Total number of short-answer questions")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored question set as PDF or HTML",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("questions-file", "generated_questions.json", "Path of the stored question set")
	f.StringP("output", "o", "generated_questions.pdf", "Output file path (- for stdout)")
	f.String("format", "", "Output format (pdf, html); default from the output extension")
	f.StringP("lang", "l", "en", "Language of the document headings (en, ru)")
	f.String("chrome-path", "", "Chrome/Chromium binary for PDF export (empty = auto-detect)")
	addLogFlags(f)
	return cmd
}

func requestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Export the LLM request log as JSON",
		RunE:  runRequests,
	}
	f := cmd.Flags()
	f.String("db", "pdfquiz.db", "SQLite database path")
	f.Int("limit", 100, "Maximum number of requests, newest first (0 = all)")
	f.Bool("bodies", false, "Include prompt and reply bodies")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PDFQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pdfquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pdfquiz")
	v.AddConfigPath("/etc/pdfquiz")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func llmConfig(v *viper.Viper) llm.Config {
	return llm.Config{
		Provider: v.GetString("provider"),
		APIKey:   v.GetString("api-key"),
		Model:    v.GetString("model"),
		BaseURL:  v.GetString("llm-url"),
	}.Normalize()
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	metrics := llm.NewMetrics(prometheus.DefaultRegisterer)
	cfg := llmConfig(v)
	provider, err := llm.NewProvider(context.Background(), cfg, db, metrics)
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		// The UI stays up and explains the missing key on every LLM action.
		slog.Warn("LLM provider not configured", "error", err)
		provider = nil
	case err != nil:
		return fmt.Errorf("create LLM provider: %w", err)
	}

	questions := store.NewQuestionFile(v.GetString("questions-file"))

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		MaxUploadMB:   v.GetInt64("max-upload-mb"),
	}

	h, err := handler.New(handler.Deps{
		Questions: questions,
		Info:      db,
		Extractor: extract.NewPDF(),
		Generator: quizgen.New(provider, questions, db),
		Evaluator: evaluate.New(provider),
		Sessions:  session.NewManager(questions, v.GetDuration("session-ttl")),
		PDF:       export.NewPDFRenderer(v.GetString("chrome-path")),
	}, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)
	r.Handle("/metrics", promhttp.Handler())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"llm_ready", provider != nil,
		"questions_file", questions.Path(),
		"lang", lang,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	opts, err := parseGenerateOptions(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	provider, err := llm.NewProvider(cmd.Context(), llmConfig(v), db, nil)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	docs, errs := extract.Files(extract.NewPDF(), args)
	for _, e := range errs {
		slog.Warn("skipping file", "error", e)
	}

	questions := store.NewQuestionFile(v.GetString("questions-file"))
	res, err := quizgen.New(provider, questions, db).Generate(cmd.Context(), docs, opts.Difficulty, opts.MCQ, opts.Short)
	if err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, a := range res.Allocations {
		fmt.Fprintf(out, "%s: %d pages, %d MCQ, %d short answer requested\n", a.Filename, a.Pages, a.MCQ, a.Short)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "%s: skipped: %v\n", f.Filename, f.Err)
	}
	fmt.Fprintf(out, "Saved %d multiple-choice and %d short-answer questions to %s\n",
		len(res.Set.MCQ), len(res.Set.ShortAnswer), questions.Path())
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	set, err := store.NewQuestionFile(v.GetString("questions-file")).Load()
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	outPath := v.GetString("output")
	format, err := exportFormat(v.GetString("format"), outPath)
	if err != nil {
		return err
	}

	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(v.GetString("lang")))
	labels := export.Labels{
		Title:        appI18n.T(ctx, "GeneratedQuestions"),
		MCQ:          appI18n.T(ctx, "MCQHeading"),
		ShortAnswer:  appI18n.T(ctx, "ShortHeading"),
		SourcePrefix: appI18n.T(ctx, "Source"),
	}

	var data []byte
	switch format {
	case "pdf":
		data, err = export.NewPDFRenderer(v.GetString("chrome-path")).Render(ctx, set, labels)
		if err != nil {
			return fmt.Errorf("render PDF: %w", err)
		}
	case "html":
		var b strings.Builder
		if err := export.RenderHTML(ctx, &b, set, labels); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		data = []byte(b.String())
	}

	if err := writeOutput(cmd, outPath, data); err != nil {
		return err
	}
	slog.Info("exported questions", "format", format, "output", outPath, "questions", set.Len())
	return nil
}

// exportFormat picks the explicit format or infers it from the file name.
func exportFormat(format, outPath string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "pdf"
		if strings.HasSuffix(strings.ToLower(outPath), ".html") || strings.HasSuffix(strings.ToLower(outPath), ".htm") {
			format = "html"
		}
	}
	if format != "pdf" && format != "html" {
		return "", fmt.Errorf("unknown export format %q (want pdf or html)", format)
	}
	return format, nil
}

func runRequests(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exp, err := db.ExportRequests(v.GetInt("limit"), v.GetBool("bodies"))
	if err != nil {
		return fmt.Errorf("export requests: %w", err)
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(cmd, v.GetString("output"), append(data, '\n'))
}

func writeOutput(cmd *cobra.Command, outPath string, data []byte) error {
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
