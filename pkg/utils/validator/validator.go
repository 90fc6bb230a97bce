// Package validator wraps go-playground/validator with json field names,
// en/zh translations and the voicedesk-specific rules (tenantid).
package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// TenantIDPattern is the accepted shape of a tenant id. Tenant ids become
// part of Redis keys, SCAN patterns and RediSearch TAG filters, so glob and
// query metacharacters must never appear in them.
var TenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Validator wraps go-playground/validator with translations.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
	mu       sync.RWMutex
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the process-wide validator.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a new Validator instance with default configuration.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
		trans:    make(map[string]ut.Translator),
	}

	// 错误信息中使用 json tag 作为字段名
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := v.uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := v.uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	_ = v.RegisterValidationWithTranslation("tenantid", func(fl validator.FieldLevel) bool {
		return TenantIDPattern.MatchString(fl.Field().String())
	}, map[string]string{
		LangEN: "{0} must be 1-64 letters, digits, '-' or '_'",
		LangZH: "{0} 只能包含 1-64 个字母、数字、'-' 或 '_'",
	})

	return v
}

// Validate validates a struct and returns translated validation errors,
// or nil when s is valid.
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateWithLang(s, LangEN)
}

// ValidateWithLang validates a struct and returns translated validation errors.
func (v *Validator) ValidateWithLang(s interface{}, lang string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{Errors: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	trans := v.translator(lang)
	out := &ValidationErrors{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// Var validates a single variable against tag.
func (v *Validator) Var(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// RegisterValidationWithTranslation registers a custom validation with translation.
func (v *Validator) RegisterValidationWithTranslation(tag string, fn validator.Func, translations map[string]string) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return err
	}

	for lang, message := range translations {
		trans := v.translator(lang)
		msg := message
		_ = v.validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, msg, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			},
		)
	}
	return nil
}

func (v *Validator) translator(lang string) ut.Translator {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if t, ok := v.trans[lang]; ok {
		return t
	}
	return v.trans[LangEN]
}

// Struct validates s with the global validator.
func Struct(s interface{}) error {
	return Global().Validate(s)
}

// IsTenantID reports whether id is an acceptable tenant id.
func IsTenantID(id string) bool {
	return TenantIDPattern.MatchString(id)
}
