package language

import (
	"slices"
	"strings"
)

// Auto asks the provider to detect the spoken language
const Auto = ""

type Language struct {
	Code       string // ISO 639-1
	Name       string
	NativeName string
}

// Whisper's language set, keyed by code
var names = map[string][2]string{
	"af": {"Afrikaans", "Afrikaans"},
	"ar": {"Arabic", "العربية"},
	"az": {"Azerbaijani", "Azərbaycan"},
	"be": {"Belarusian", "Беларуская"},
	"bg": {"Bulgarian", "Български"},
	"bs": {"Bosnian", "Bosanski"},
	"ca": {"Catalan", "Català"},
	"cs": {"Czech", "Čeština"},
	"cy": {"Welsh", "Cymraeg"},
	"da": {"Danish", "Dansk"},
	"de": {"German", "Deutsch"},
	"el": {"Greek", "Ελληνικά"},
	"en": {"English", "English"},
	"es": {"Spanish", "Español"},
	"et": {"Estonian", "Eesti"},
	"fa": {"Persian", "فارسی"},
	"fi": {"Finnish", "Suomi"},
	"fr": {"French", "Français"},
	"gl": {"Galician", "Galego"},
	"he": {"Hebrew", "עברית"},
	"hi": {"Hindi", "हिन्दी"},
	"hr": {"Croatian", "Hrvatski"},
	"hu": {"Hungarian", "Magyar"},
	"hy": {"Armenian", "Հայերեն"},
	"id": {"Indonesian", "Bahasa Indonesia"},
	"is": {"Icelandic", "Íslenska"},
	"it": {"Italian", "Italiano"},
	"ja": {"Japanese", "日本語"},
	"kk": {"Kazakh", "Қазақ"},
	"kn": {"Kannada", "ಕನ್ನಡ"},
	"ko": {"Korean", "한국어"},
	"lt": {"Lithuanian", "Lietuvių"},
	"lv": {"Latvian", "Latviešu"},
	"mi": {"Maori", "Māori"},
	"mk": {"Macedonian", "Македонски"},
	"mr": {"Marathi", "मराठी"},
	"ms": {"Malay", "Bahasa Melayu"},
	"ne": {"Nepali", "नेपाली"},
	"nl": {"Dutch", "Nederlands"},
	"no": {"Norwegian", "Norsk"},
	"pl": {"Polish", "Polski"},
	"pt": {"Portuguese", "Português"},
	"ro": {"Romanian", "Română"},
	"ru": {"Russian", "Русский"},
	"sk": {"Slovak", "Slovenčina"},
	"sl": {"Slovenian", "Slovenščina"},
	"sr": {"Serbian", "Српски"},
	"sv": {"Swedish", "Svenska"},
	"sw": {"Swahili", "Kiswahili"},
	"ta": {"Tamil", "தமிழ்"},
	"th": {"Thai", "ไทย"},
	"tl": {"Tagalog", "Tagalog"},
	"tr": {"Turkish", "Türkçe"},
	"uk": {"Ukrainian", "Українська"},
	"ur": {"Urdu", "اردو"},
	"vi": {"Vietnamese", "Tiếng Việt"},
	"zh": {"Chinese", "中文"},
}

// Normalize lowercases a code and maps the "auto" spelling to Auto
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "auto" {
		return Auto
	}
	return code
}

// Lookup returns the language for a code. Auto is not a language.
func Lookup(code string) (Language, bool) {
	n, ok := names[Normalize(code)]
	if !ok {
		return Language{}, false
	}
	return Language{Code: Normalize(code), Name: n[0], NativeName: n[1]}, true
}

// Valid reports whether code is a known language or Auto
func Valid(code string) bool {
	if Normalize(code) == Auto {
		return true
	}
	_, ok := Lookup(code)
	return ok
}

// Label is the display form used in menus and status output
func Label(code string) string {
	if Normalize(code) == Auto {
		return "Auto-detect"
	}
	lang, ok := Lookup(code)
	if !ok {
		return code
	}
	if lang.NativeName == lang.Name {
		return lang.Name
	}
	return lang.Name + " (" + lang.NativeName + ")"
}

// List returns every language sorted by English name
func List() []Language {
	out := make([]Language, 0, len(names))
	for code, n := range names {
		out = append(out, Language{Code: code, Name: n[0], NativeName: n[1]})
	}
	slices.SortFunc(out, func(a, b Language) int { return strings.Compare(a.Name, b.Name) })
	return out
}
