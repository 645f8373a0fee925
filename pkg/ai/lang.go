package ai

import "unicode"

// Language is the coarse script classification used for budget heuristics
// and prompt selection.
type Language string

const (
	LanguageLatin Language = "latin"
	LanguageCJK   Language = "cjk"
)

// cjkDominanceThreshold is the CJK letter share above which a document is
// treated as CJK for budgeting.
const cjkDominanceThreshold = 0.3

// DetectLanguage classifies text by its share of CJK letters. Texts with at
// least 30% CJK letters budget at the denser chars-per-token rate.
func DetectLanguage(text string) Language {
	if CJKShare(text) >= cjkDominanceThreshold {
		return LanguageCJK
	}
	return LanguageLatin
}

// CJKShare returns the fraction of letters in text that are Han, Hangul,
// Hiragana or Katakana. Non-letter runes are ignored.
func CJKShare(text string) float64 {
	letters := 0
	cjk := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isCJK(r) {
			cjk++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cjk) / float64(letters)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
