package kg

import (
	"strings"
	"unicode"
)

// Graph represents the knowledge extracted from one or more text chunks.
// Entities are nodes identified by a normalized ID, relationships are
// directional edges referencing entity IDs.
type Graph struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// Entity is a node in the knowledge graph. Properties hold the flat
// attribute map stated by the source text. Sources lists the chunk IDs the
// entity was extracted from.
type Entity struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
}

// Relationship is a directional edge between two entities, referenced by
// their IDs. Two relationships are considered the same when source, target
// and type all match.
type Relationship struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Sources     []string `json:"sources,omitempty"`
}

// NormalizeEntityID derives a stable entity ID from a display name:
// lowercased, whitespace runs collapsed to single underscores, punctuation
// dropped. Letters and digits of any script survive, so CJK names keep
// their characters.
func NormalizeEntityID(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

// AddSource appends a chunk ID to the entity's source list unless already
// present.
func (e *Entity) AddSource(chunkID string) {
	for _, s := range e.Sources {
		if s == chunkID {
			return
		}
	}
	e.Sources = append(e.Sources, chunkID)
}

// AddSource appends a chunk ID to the relationship's source list unless
// already present.
func (r *Relationship) AddSource(chunkID string) {
	for _, s := range r.Sources {
		if s == chunkID {
			return
		}
	}
	r.Sources = append(r.Sources, chunkID)
}

// Signature identifies a relationship for deduplication.
func (r Relationship) Signature() string {
	return r.Source + "\x00" + r.Target + "\x00" + r.Type
}
