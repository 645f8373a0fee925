package analyzer

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// Keyword is one extracted keyword with its relevance score.
type Keyword struct {
	Term     string  `json:"keyword"`
	Score    float64 `json:"score"`
	Category string  `json:"category,omitempty"`
}

type llmKeyword struct {
	Keyword  string  `json:"keyword" jsonschema_description:"The keyword exactly as it appears in the text"`
	Score    float64 `json:"score" jsonschema_description:"Relevance between 0 and 1, higher means more central to the text"`
	Category string  `json:"category" jsonschema_description:"Short category label such as technology, person or process"`
}

type keywordsResponse struct {
	Keywords []llmKeyword `json:"keywords" jsonschema_description:"Extracted keywords ordered by descending score"`
}

func (a *Analyzer) llmKeywords(ctx context.Context, chunk chunker.Chunk, lang ai.Language, domain string) (kws []Keyword, result *ai.Result, err error) {
	name := prompts.NameForLanguage(lang)
	params := prompts.Params{
		"Text":        chunk.Content,
		"Language":    string(lang),
		"Domain":      domain,
		"MaxKeywords": a.maxKeywords,
	}
	prompt, err := a.registry.Render(prompts.CategoryKeywords, name, params)
	if err != nil {
		return nil, nil, err
	}
	defer func() { a.emit(chunk.ID, prompts.CategoryKeywords, name, prompt, params, result, err) }()

	var resp keywordsResponse
	result, err = a.gateway.GenerateObject(ctx, "keywords",
		"Keywords extracted from one document chunk", prompt, &resp)
	if err != nil {
		return nil, result, err
	}

	out := make([]Keyword, 0, len(resp.Keywords))
	for _, k := range resp.Keywords {
		term := strings.TrimSpace(k.Keyword)
		if term == "" {
			continue
		}
		out = append(out, Keyword{
			Term:     term,
			Score:    clampScore(k.Score),
			Category: strings.TrimSpace(k.Category),
		})
		if len(out) == a.maxKeywords {
			break
		}
	}
	if len(out) == 0 {
		return nil, result, errors.New("model returned no keywords")
	}
	return out, result, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// tokenPattern matches Latin runs of at least three characters and CJK runs
// of at least two runes, in document order.
var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]{2,}|[\p{Han}\p{Hangul}\p{Hiragana}\p{Katakana}]{2,}`)

var latinStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "are": true, "was": true, "were": true,
	"have": true, "has": true, "had": true, "not": true, "but": true,
	"its": true, "can": true, "will": true, "into": true, "than": true,
	"then": true, "when": true, "where": true, "which": true, "while": true,
	"about": true, "after": true, "before": true, "between": true,
	"through": true, "during": true, "each": true, "other": true,
	"some": true, "such": true, "only": true, "over": true, "under": true,
	"very": true, "more": true, "most": true, "also": true, "been": true,
	"being": true, "both": true, "does": true, "did": true, "how": true,
	"who": true, "why": true, "what": true, "all": true, "any": true,
	"our": true, "out": true, "their": true, "them": true, "they": true,
	"there": true, "these": true, "those": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"upon": true, "per": true, "via": true, "you": true, "your": true,
}

var cjkStopwords = map[string]bool{
	"그리고": true, "그러나": true, "하지만": true, "또한": true, "있는": true,
	"있다": true, "한다": true, "했다": true, "위한": true, "대한": true,
	"경우": true, "통해": true, "따라": true, "때문": true, "이다": true,
	"것이": true, "수있": true,
}

// koreanParticles are trailing case markers stripped from fallback tokens.
var koreanParticles = map[rune]bool{
	'은': true, '는': true, '이': true, '가': true, '을': true, '를': true,
	'의': true, '에': true, '로': true, '와': true, '과': true, '도': true,
	'만': true,
}

// fallbackKeywords tokenizes content with script-aware patterns, ranks by
// frequency with a first-seen tie-break and assigns descending synthetic
// scores. It is fully deterministic.
func fallbackKeywords(content string, max int) []Keyword {
	type count struct {
		term  string
		n     int
		first int
	}
	counts := map[string]*count{}
	order := 0

	for _, tok := range tokenPattern.FindAllString(content, -1) {
		r, _ := utf8.DecodeRuneInString(tok)
		if r < utf8.RuneSelf {
			tok = strings.ToLower(tok)
			if latinStopwords[tok] {
				continue
			}
		} else {
			tok = stripParticle(tok)
			if cjkStopwords[tok] {
				continue
			}
		}

		if c := counts[tok]; c != nil {
			c.n++
			continue
		}
		counts[tok] = &count{term: tok, n: 1, first: order}
		order++
	}

	ranked := make([]*count, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].first < ranked[j].first
	})

	if max <= 0 {
		max = DefaultMaxKeywords
	}
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]Keyword, len(ranked))
	for i, c := range ranked {
		out[i] = Keyword{Term: c.term, Score: fallbackScore(i)}
	}
	return out
}

// fallbackScore yields 0.95 for the top keyword and steps down by 0.05 per
// rank, never below 0.05.
func fallbackScore(rank int) float64 {
	score := 0.95 - 0.05*float64(rank)
	if score < 0.05 {
		return 0.05
	}
	return score
}

// stripParticle drops one trailing Korean case marker from tokens of three
// runes or more, so "시스템은" and "시스템" count as the same term.
func stripParticle(token string) string {
	runes := []rune(token)
	if len(runes) >= 3 && koreanParticles[runes[len(runes)-1]] {
		return string(runes[:len(runes)-1])
	}
	return token
}
