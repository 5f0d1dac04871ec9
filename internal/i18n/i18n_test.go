package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang string
		id   string
		want string
	}{
		{"en", "AppTitle", "PDF Quiz"},
		{"en", "MCQHeading", "Multiple Choice Questions"},
		{"ru", "AppTitle", "PDF-викторина"},
		{"ru", "SubmitTest", "Отправить ответы"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.id); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	if got := Tp(ctx, "QuestionsAvailable", 1); got != "1 question available." {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsAvailable", 5); got != "5 questions available." {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q", got)
	}

	ctx = initLang(t, "ru")
	if got := Tp(ctx, "QuestionsAvailable", 5); got != "Доступно 5 вопросов." {
		t.Errorf("Tp(QuestionsAvailable, 5) ru = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	got := Td(ctx, "TotalScore", map[string]any{"Score": 17, "Max": 30})
	if got != "Total Score: 17/30" {
		t.Errorf("Td(TotalScore) = %q, want 'Total Score: 17/30'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")
	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestInitUnsupported(t *testing.T) {
	if err := Init("de"); err == nil {
		t.Fatal("Init(de) should fail: no German locale")
	}
	if err := Init("not a tag!"); err == nil {
		t.Fatal("Init should reject an unparsable tag")
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "NavTest")
	}))

	tests := []struct {
		name   string
		target string
		header string
		cookie string
		want   string
	}{
		{"default", "/", "", "", "Take Test"},
		{"query", "/?lang=ru", "", "", "Пройти тест"},
		{"accept-language", "/", "ru-RU,ru;q=0.9,en;q=0.5", "", "Пройти тест"},
		{"cookie beats header", "/", "ru", "en", "Take Test"},
		{"unknown query falls through", "/?lang=xx", "", "", "Take Test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: langCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
