package language

import (
	"strings"

	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms, including common native spellings
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "español", "espanol", "castellano"}},
	{"fr", "fra", "fre", "French", []string{"french", "français", "francais"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian", "italiano"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese", "português", "portugues"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin", "cantonese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch", "nederlands", "flemish"}},
	{"pl", "pol", "", "Polish", []string{"polish", "polski"}},
	{"sv", "swe", "", "Swedish", []string{"swedish", "svenska"}},
	{"da", "dan", "", "Danish", []string{"danish", "dansk"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian", "norsk"}},
	{"fi", "fin", "", "Finnish", []string{"finnish", "suomi"}},
	{"cs", "ces", "cze", "Czech", []string{"czech", "čeština", "cestina"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian", "magyar"}},
	{"tr", "tur", "", "Turkish", []string{"turkish", "türkçe", "turkce"}},
	{"hr", "hrv", "", "Croatian", []string{"croatian", "hrvatski"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry

	titler = cases.Title(textlang.Und)
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize maps any recognized language code or name to its canonical
// lowercase English name ("de", "deu", "ger" and "deutsch" all become
// "german"). When the input carries a parenthetical qualifier such as
// "English (US)" the part before the parenthesis is retried. Unrecognized
// values come back trimmed and lowercased so callers can still compare them
// exactly; matching is never fuzzy.
func Normalize(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	if e := lookup(value); e != nil {
		return strings.ToLower(e.display)
	}
	if idx := strings.Index(value, "("); idx > 0 {
		if e := lookup(value[:idx]); e != nil {
			return strings.ToLower(e.display)
		}
	}
	return value
}

// Display returns a human-readable label for a canonical language name.
// Returns "Unknown" for empty input; unrecognized names are title-cased.
func Display(canonical string) string {
	if strings.TrimSpace(canonical) == "" {
		return "Unknown"
	}
	if e := lookup(canonical); e != nil {
		return e.display
	}
	return titler.String(strings.ToLower(strings.TrimSpace(canonical)))
}

// NormalizeList deduplicates and normalizes a list of language codes or
// names to canonical names, preserving first-seen order.
func NormalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		name := Normalize(value)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return normalized
}

// NormalizeSet normalizes a list of language codes or names into a
// membership set of canonical names, dropping blanks.
func NormalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if name := Normalize(value); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// ParseAudioLanguages extracts the set of canonical audio languages from a
// slash-separated media info string such as "English / German". Empty
// segments are skipped. When the string yields nothing the fallback names
// are normalized instead; media info wins whenever both are present.
func ParseAudioLanguages(mediaInfo string, fallback []string) map[string]struct{} {
	detected := make(map[string]struct{})
	for _, segment := range strings.Split(mediaInfo, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		detected[Normalize(segment)] = struct{}{}
	}
	if len(detected) > 0 {
		return detected
	}
	for _, name := range fallback {
		if n := Normalize(name); n != "" {
			detected[n] = struct{}{}
		}
	}
	return detected
}
