package domain

// LanguageCode is a short language tag understood by the remote service.
type LanguageCode string

const (
	LanguageHausa   LanguageCode = "ha"
	LanguagePidgin  LanguageCode = "pcm"
	LanguageYoruba  LanguageCode = "yo"
	LanguageEnglish LanguageCode = "en"
)

// LanguageInfo describes a supported language for display.
type LanguageInfo struct {
	Code       LanguageCode
	Name       string
	NativeName string
	Flag       string
}

var supportedLanguages = []LanguageInfo{
	{Code: LanguageEnglish, Name: "English", NativeName: "English", Flag: "🇬🇧"},
	{Code: LanguageHausa, Name: "Hausa", NativeName: "Hausa", Flag: "🇳🇬"},
	{Code: LanguageYoruba, Name: "Yoruba", NativeName: "Yorùbá", Flag: "🇳🇬"},
	{Code: LanguagePidgin, Name: "Nigerian Pidgin", NativeName: "Naija", Flag: "🇳🇬"},
}

// SupportedLanguages returns the languages the assistant can answer in.
func SupportedLanguages() []LanguageInfo {
	out := make([]LanguageInfo, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// IsSupported reports whether code is in the supported table.
func IsSupported(code LanguageCode) bool {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// LookupLanguage returns display info for code, falling back to English for
// unknown codes.
func LookupLanguage(code LanguageCode) LanguageInfo {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l
		}
	}
	return supportedLanguages[0]
}
