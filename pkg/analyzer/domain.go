package analyzer

import (
	"regexp"
	"strings"
)

// Domain labels assigned by the rule-based classifier. They double as
// knowledge-graph template variant names.
const (
	DomainGeneral   = "general"
	DomainTechnical = "technical"
	DomainAcademic  = "academic"
	DomainBusiness  = "business"
	DomainLegal     = "legal"
)

// minDomainScore is the least number of rule hits before a chunk leaves the
// general domain.
const minDomainScore = 3

type domainRule struct {
	name    string
	pattern *regexp.Regexp
	terms   []string
}

// domainRules score vocabulary hits per domain. Rule order breaks ties: the
// first rule reaching the top score wins.
var domainRules = []domainRule{
	{
		name:    DomainTechnical,
		pattern: regexp.MustCompile(`\b(api|server|database|deployment|latency|protocol|kubernetes|docker|endpoint|backend|frontend|cache|runtime|compiler|algorithm|encryption|bandwidth|microservice)s?\b`),
		terms:   []string{"시스템", "서버", "데이터베이스", "배포", "프로토콜", "알고리즘", "아키텍처"},
	},
	{
		name:    DomainAcademic,
		pattern: regexp.MustCompile(`\b(research|study|hypothesis|experiment|dataset|methodology|literature|citation|abstract|findings|peer[- ]reviewed|statistical)s?\b`),
		terms:   []string{"연구", "논문", "실험", "가설", "선행연구", "방법론"},
	},
	{
		name:    DomainBusiness,
		pattern: regexp.MustCompile(`\b(revenue|market|customer|strategy|quarterly|investment|stakeholder|profit|sales|acquisition|forecast|roi)s?\b`),
		terms:   []string{"매출", "시장", "고객", "전략", "투자", "영업이익"},
	},
	{
		name:    DomainLegal,
		pattern: regexp.MustCompile(`\b(contract|clause|liability|pursuant|plaintiff|defendant|jurisdiction|statute|indemnity|arbitration|warranty|herein)s?\b`),
		terms:   []string{"계약", "법률", "조항", "책임", "당사자", "법원"},
	},
}

// classifyDomain scores every domain's vocabulary against the text and
// returns the best label, or general when nothing reaches minDomainScore.
func classifyDomain(content string) string {
	lower := strings.ToLower(content)
	best, bestScore := DomainGeneral, 0
	for _, rule := range domainRules {
		score := len(rule.pattern.FindAllString(lower, -1))
		for _, term := range rule.terms {
			score += strings.Count(content, term)
		}
		if score > bestScore {
			best, bestScore = rule.name, score
		}
	}
	if bestScore < minDomainScore {
		return DomainGeneral
	}
	return best
}
