package pipeline

import "strings"

// Language carries the metadata the ingestion and synthesis prompts need to
// decode and transcreate vernacular queries.
type Language struct {
	Tag    string
	Native string
	Script string
	Family string
}

// languageTable covers the supported vernacular tags plus english.
// Unknown tags fall back to english rather than failing the request.
var languageTable = map[string]Language{
	"english":   {Tag: "english", Native: "English", Script: "Latin", Family: "Indo-European"},
	"hindi":     {Tag: "hindi", Native: "हिन्दी", Script: "Devanagari", Family: "Indo-Aryan"},
	"bengali":   {Tag: "bengali", Native: "বাংলা", Script: "Bengali", Family: "Indo-Aryan"},
	"tamil":     {Tag: "tamil", Native: "தமிழ்", Script: "Tamil", Family: "Dravidian"},
	"telugu":    {Tag: "telugu", Native: "తెలుగు", Script: "Telugu", Family: "Dravidian"},
	"marathi":   {Tag: "marathi", Native: "मराठी", Script: "Devanagari", Family: "Indo-Aryan"},
	"gujarati":  {Tag: "gujarati", Native: "ગુજરાતી", Script: "Gujarati", Family: "Indo-Aryan"},
	"kannada":   {Tag: "kannada", Native: "ಕನ್ನಡ", Script: "Kannada", Family: "Dravidian"},
	"malayalam": {Tag: "malayalam", Native: "മലയാളം", Script: "Malayalam", Family: "Dravidian"},
	"punjabi":   {Tag: "punjabi", Native: "ਪੰਜਾਬੀ", Script: "Gurmukhi", Family: "Indo-Aryan"},
	"odia":      {Tag: "odia", Native: "ଓଡ଼ିଆ", Script: "Odia", Family: "Indo-Aryan"},
	"urdu":      {Tag: "urdu", Native: "اردو", Script: "Perso-Arabic", Family: "Indo-Aryan"},
	"assamese":  {Tag: "assamese", Native: "অসমীয়া", Script: "Bengali-Assamese", Family: "Indo-Aryan"},
}

// resolveLanguage maps a tag to its metadata, falling back to english.
// The second return reports whether the tag was recognized.
func resolveLanguage(tag string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(tag))
	if key == "" {
		return languageTable["english"], true
	}
	if l, ok := languageTable[key]; ok {
		return l, true
	}
	return languageTable["english"], false
}
