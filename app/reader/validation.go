package reader

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// IsValidURL reports whether text is an absolute http(s) URL with a host.
func IsValidURL(text string) bool {
	return validate.Var(text, "required,http_url") == nil
}

// IsDuplicate compares without normalization.
func IsDuplicate(text string, feeds []Feed) bool {
	for _, feed := range feeds {
		if feed.SourceURL == text {
			return true
		}
	}
	return false
}

// Classify maps the current input to a form phase and error. The first
// matching rule wins.
func Classify(text string, feeds []Feed) (FormPhase, *ErrorKind) {
	switch {
	case text == "":
		return PhaseEmpty, nil
	case !IsValidURL(text):
		return PhaseInvalid, ErrInvalidURL()
	case IsDuplicate(text, feeds):
		return PhaseInvalid, ErrDuplicateURL()
	default:
		return PhaseValid, nil
	}
}
