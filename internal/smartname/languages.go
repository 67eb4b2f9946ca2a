package smartname

// Language is an ISO short code used as a descriptor key.
type Language = string

// Languages is the fixed set of language keys a descriptor may carry.
var Languages = []Language{"en", "de", "ru", "pt", "nl", "fr", "it", "es", "pl", "uk", "zh-cn"}

// DefaultLanguage is always written alongside the active language when a
// legacy string is normalized.
const DefaultLanguage Language = "en"

var languageSet = func() map[string]bool {
	m := make(map[string]bool, len(Languages))
	for _, l := range Languages {
		m[l] = true
	}
	return m
}()

// IsLanguage reports whether key is one of the known language keys.
func IsLanguage(key string) bool {
	return languageSet[key]
}
