package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NotApplicable"); got != "not applicable" {
		t.Errorf("T(NotApplicable) = %q, want 'not applicable'", got)
	}
	if got := T(ctx, "ColStudent"); got != "Student" {
		t.Errorf("T(ColStudent) = %q, want 'Student'", got)
	}
}

func TestTranslatePortuguese(t *testing.T) {
	ctx := initLang(t, "pt")

	if got := T(ctx, "NotApplicable"); got != "não se aplica" {
		t.Errorf("T(NotApplicable) = %q, want 'não se aplica'", got)
	}
	if got := T(ctx, "ErrAlreadySubmitted"); got != "Este aluno já enviou a prova." {
		t.Errorf("T(ErrAlreadySubmitted) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsCount", 1); got != "1 question" {
		t.Errorf("Tp(QuestionsCount, 1) = %q, want '1 question'", got)
	}
	if got := Tp(ctx, "QuestionsCount", 5); got != "5 questions" {
		t.Errorf("Tp(QuestionsCount, 5) = %q, want '5 questions'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "pt")

	got := Td(ctx, "ResultSummary", map[string]any{"Percentage": 67, "Correct": 2, "Total": 3})
	if got != "67% (2 de 3)" {
		t.Errorf("Td(ResultSummary) = %q, want '67%% (2 de 3)'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestContextWithoutLocalizerUsesDefault(t *testing.T) {
	initLang(t, "pt")

	if got := T(context.Background(), "ColStudent"); got != "Aluno" {
		t.Errorf("T(ColStudent) = %q, want 'Aluno'", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")

	got := Languages()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "en" || got[1] != "pt" {
		t.Errorf("Languages() = %v, want [en pt]", got)
	}
}

func TestMiddlewareNegotiates(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ColStudent")
	}))

	tests := []struct {
		accept string
		want   string
	}{
		{"", "Student"},
		{"pt-BR,pt;q=0.9", "Aluno"},
		{"fr", "Student"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept-Language", tt.accept)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("Accept-Language %q: got %q, want %q", tt.accept, got, tt.want)
		}
	}
}
