package service

import (
	"strings"
	"unicode/utf8"

	"github.com/tieubaoca/sikoma-be/types"
)

const (
	LanguageIndonesian = "id"
	LanguageEnglish    = "en"
	LanguageUnknown    = "unknown"

	maxTitleRunes   = 120
	maxSummaryWords = 120
)

var indonesianStopwords = map[string]struct{}{
	"yang": {}, "dan": {}, "di": {}, "ke": {}, "dari": {}, "untuk": {}, "dengan": {},
	"pada": {}, "ini": {}, "itu": {}, "dalam": {}, "adalah": {}, "tidak": {}, "akan": {},
	"oleh": {}, "sebagai": {}, "atau": {}, "juga": {}, "kami": {}, "bapak": {}, "ibu": {},
	"surat": {}, "tersebut": {}, "tentang": {}, "agar": {}, "dapat": {},
}

var englishStopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "is": {}, "for": {}, "that": {},
	"with": {}, "on": {}, "this": {}, "are": {}, "be": {}, "as": {}, "by": {}, "from": {},
	"it": {}, "at": {}, "we": {}, "will": {}, "not": {}, "or": {}, "have": {}, "please": {},
}

// DetectLanguage tags text as Indonesian or English by counting stopwords.
func DetectLanguage(text string) string {
	var id, en int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if _, ok := indonesianStopwords[w]; ok {
			id++
		}
		if _, ok := englishStopwords[w]; ok {
			en++
		}
	}
	switch {
	case id == 0 && en == 0:
		return LanguageUnknown
	case id >= en:
		return LanguageIndonesian
	default:
		return LanguageEnglish
	}
}

// BuildAutoMeta derives title, language and size counters from extracted text.
func BuildAutoMeta(text string) types.AutoMeta {
	meta := types.AutoMeta{
		Language:  DetectLanguage(text),
		WordCount: len(strings.Fields(text)),
		CharCount: utf8.RuneCountInString(text),
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		meta.Title = truncateRunes(line, maxTitleRunes)
		break
	}
	return meta
}

// NormalizeSummary collapses text into one paragraph of at most maxSummaryWords words.
func NormalizeSummary(text string) string {
	words := strings.Fields(text)
	if len(words) > maxSummaryWords {
		words = words[:maxSummaryWords]
	}
	return strings.Join(words, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
