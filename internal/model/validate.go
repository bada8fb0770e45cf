package model

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(validateMedia, Media{})
		validate.RegisterStructValidation(validateAd, Ad{})
		validate.RegisterStructValidation(validateWelcome, WelcomeItem{})
	})
	return validate
}

// Validate checks struct tags and the media rules.
func Validate(v any) error {
	return validatorInstance().Struct(v)
}

func validateMedia(sl validator.StructLevel) {
	m := sl.Current().Interface().(Media)
	switch m.Kind {
	case "":
		if m.FileID != "" || m.Text != "" || m.MessageID != 0 {
			sl.ReportError(m.Kind, "Kind", "kind", "required_with_content", "")
		}
	case MediaText:
		if m.Text == "" {
			sl.ReportError(m.Text, "Text", "text", "required", "")
		}
	case MediaCopy:
		if m.FromChatID == 0 || m.MessageID == 0 {
			sl.ReportError(m.MessageID, "MessageID", "message_id", "required", "")
		}
	default:
		if m.FileID == "" {
			sl.ReportError(m.FileID, "FileID", "file_id", "required", "")
		}
		if len([]rune(m.Text)) > 1024 {
			sl.ReportError(m.Text, "Text", "text", "max", "1024")
		}
	}
}

// ads and welcome items are sent as-is, so they need content
func validateAd(sl validator.StructLevel) {
	if a := sl.Current().Interface().(Ad); a.Media.IsZero() {
		sl.ReportError(a.Media, "Media", "media", "required", "")
	}
}

func validateWelcome(sl validator.StructLevel) {
	if w := sl.Current().Interface().(WelcomeItem); w.Media.IsZero() {
		sl.ReportError(w.Media, "Media", "media", "required", "")
	}
}
