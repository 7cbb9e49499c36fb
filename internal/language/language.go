// Package language names and validates transcription language codes.
package language

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoDetect is the config value that lets the provider pick the language.
const AutoDetect = "multi"

type Language struct {
	Code       string // BCP 47 tag, e.g. "en", "pt-BR"
	Name       string // English name
	NativeName string
}

// Auto represents auto-detection; "" and "multi" both map to it.
var Auto = Language{Code: AutoDetect, Name: "Auto-detect"}

// common are the codes offered as suggestions in the configure wizard.
var common = []string{
	"en", "es", "fr", "de", "it", "pt", "pt-BR", "nl", "pl", "ru", "uk",
	"tr", "ar", "hi", "ja", "ko", "zh", "sv", "da", "no", "fi", "cs",
}

// FromCode describes code. Unparseable codes and the auto-detect values return Auto.
func FromCode(code string) Language {
	if code == "" || code == AutoDetect {
		return Auto
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Auto
	}
	lang := Language{
		Code:       tag.String(),
		Name:       display.English.Tags().Name(tag),
		NativeName: display.Self.Name(tag),
	}
	if lang.Name == "" {
		lang.Name = lang.Code
	}
	return lang
}

// Codes returns the suggested language codes (excluding auto-detect).
func Codes() []string {
	out := make([]string, len(common))
	copy(out, common)
	return out
}

// IsValidCode reports whether code is auto-detect or a well-formed BCP 47 tag.
func IsValidCode(code string) bool {
	if code == "" || code == AutoDetect {
		return true
	}
	_, err := language.Parse(code)
	return err == nil
}
