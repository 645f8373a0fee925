package prompts

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

// Category groups templates by the analysis kind they serve.
type Category string

const (
	CategoryKeywords       Category = "keywords"
	CategorySummary        Category = "summary"
	CategoryKnowledgeGraph Category = "knowledge_graph"
)

// DefaultName is the template variant used when no specialized one matches.
const DefaultName = "default"

// Params carries the values substituted into a template. Referencing a key
// that is not present fails the render instead of leaking "<no value>" into
// a prompt.
type Params map[string]any

// Registry resolves parameterized prompt templates by category and name.
// Render falls back to the category's default variant for unknown names, so
// callers can pass domain or language names without guarding.
type Registry interface {
	Render(category Category, name string, params Params) (string, error)
	Names(category Category) []string
}

// Static is a Registry backed by an in-memory template table. NewStatic
// returns one preloaded with the built-in templates; Register adds or
// replaces variants on top.
type Static struct {
	templates map[Category]map[string]*template.Template
}

// NewStatic builds the registry with all built-in templates compiled.
func NewStatic() *Static {
	s := &Static{}
	for _, b := range builtins {
		if err := s.Register(b.category, b.name, b.text); err != nil {
			panic(err)
		}
	}
	return s
}

// Register compiles text and stores it under category/name, replacing any
// existing variant with the same name.
func (s *Static) Register(category Category, name, text string) error {
	tmpl, err := template.New(string(category) + "/" + name).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s/%s: %w", category, name, err)
	}

	if s.templates == nil {
		s.templates = map[Category]map[string]*template.Template{}
	}
	byName := s.templates[category]
	if byName == nil {
		byName = map[string]*template.Template{}
		s.templates[category] = byName
	}
	byName[name] = tmpl
	return nil
}

// Render resolves category/name and substitutes params. An unknown name
// falls back to the category default; an unknown category is an error.
func (s *Static) Render(category Category, name string, params Params) (string, error) {
	tmpl := s.lookup(category, name)
	if tmpl == nil {
		tmpl = s.lookup(category, DefaultName)
	}
	if tmpl == nil {
		return "", fmt.Errorf("no %s template named %q", category, name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, params); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", category, name, err)
	}
	return b.String(), nil
}

// Names lists the registered variants of a category, sorted.
func (s *Static) Names(category Category) []string {
	byName := s.templates[category]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Static) lookup(category Category, name string) *template.Template {
	byName := s.templates[category]
	if byName == nil {
		return nil
	}
	return byName[name]
}

// NameForLanguage maps a detected document language to the template variant
// serving it. Languages without a dedicated variant resolve to the default.
func NameForLanguage(lang ai.Language) string {
	if lang == ai.LanguageCJK {
		return "cjk"
	}
	return DefaultName
}
