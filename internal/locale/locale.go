package locale

import "strings"

// Default is the language every unsupported code resolves to.
const Default = "en"

// Language describes one supported application language.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	LocaleTag  string `json:"recognition_code"`
}

var supported = []Language{
	{Code: "en", Name: "English", NativeName: "English", LocaleTag: "en-US"},
	{Code: "hi", Name: "Hindi", NativeName: "हिंदी", LocaleTag: "hi-IN"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்", LocaleTag: "ta-IN"},
	{Code: "bn", Name: "Bengali", NativeName: "বাংলা", LocaleTag: "bn-IN"},
	{Code: "te", Name: "Telugu", NativeName: "తెలుగు", LocaleTag: "te-IN"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी", LocaleTag: "mr-IN"},
	{Code: "gu", Name: "Gujarati", NativeName: "ગુજરાતી", LocaleTag: "gu-IN"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ", LocaleTag: "kn-IN"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		m[l.Code] = l
	}
	return m
}()

// Normalize returns the supported code for code, or Default when code is
// empty or unknown.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := byCode[code]; ok {
		return code
	}
	return Default
}

// Lookup returns the Language for code, falling back to English.
func Lookup(code string) Language {
	return byCode[Normalize(code)]
}

// IsSupported reports whether code is one of the fixed language codes.
func IsSupported(code string) bool {
	_, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// All returns the supported languages in display order.
func All() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Codes returns the supported language codes in display order.
func Codes() []string {
	codes := make([]string, len(supported))
	for i, l := range supported {
		codes[i] = l.Code
	}
	return codes
}
