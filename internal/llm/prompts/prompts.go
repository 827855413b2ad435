package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/seice/seice/internal/model"
)

// Templates holds the built-in essay review prompts.
//
//go:embed templates/*.txt
var Templates embed.FS

const maxAnswerRunes = 10000

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// PromptVariant represents an essay review prompt variant.
type PromptVariant string

const (
	// PromptStrict deducts for imprecision and missing key points.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default review variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient rewards the main idea over form.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce        sync.Once
	loadErr         error
	reviewTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// ReviewData holds template data for essay review prompts.
type ReviewData struct {
	QuestionText string
	Subject      string
	MaxScore     float64
	Answer       string
}

// Load parses the review templates from fsys. Only the first call has an
// effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		reviewTemplates = make(map[PromptVariant]*template.Template)
		for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
			file := "templates/review_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			reviewTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildReviewPrompt renders the review prompt of the given variant for an
// essay answer.
func BuildReviewPrompt(variant PromptVariant, question model.Question, answer string, maxScore float64) (string, error) {
	if reviewTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := reviewTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ReviewData{
		QuestionText: question.Prompt,
		Subject:      strings.TrimSpace(question.Subject),
		MaxScore:     maxScore,
		Answer:       sanitizeAnswer(answer),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeAnswer strips tags that could break out of the answer block and
// caps the answer length.
func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
