package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/seice/seice/internal/model"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
	optionsTag  = "options"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	validate.RegisterStructValidation(questionStructValidation, questionRequest{})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, optionsTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomErrs)
	}
}

func translateCustomErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case optionsTag:
		return "single choice questions need options and a correct option within them"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// questionStructValidation checks that a single choice question has options
// and that the correct option is one of them.
func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(questionRequest)
	if !ok || model.QuestionKind(q.Kind) == model.KindEssay {
		return
	}
	if len(q.Options) == 0 || q.CorrectOptionIndex >= len(q.Options) {
		sl.ReportError(q.Options, "options", "Options", optionsTag, "")
	}
}
