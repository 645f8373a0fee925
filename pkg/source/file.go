package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileSource reads documents from the local filesystem. Text is cached per
// ref; concurrent fetches of the same ref collapse into one read.
type FileSource struct {
	base   string
	parser Parser

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewFileSourceParams configures a FileSource. Base restricts refs to one
// directory; when empty, refs are used as given. Parser handles non-text
// formats and may be nil.
type NewFileSourceParams struct {
	Base   string
	Parser Parser
}

// NewFileSource creates a filesystem-backed text source.
func NewFileSource(params NewFileSourceParams) *FileSource {
	return &FileSource{
		base:   params.Base,
		parser: params.Parser,
		cache:  make(map[string]string),
	}
}

// Name implements TextSource.
func (s *FileSource) Name() string { return "file" }

// FetchText reads and decodes one document.
func (s *FileSource) FetchText(ctx context.Context, ref string) (string, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[ref]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(ref, func() (any, error) {
		s.cacheMu.RLock()
		if cached, ok := s.cache[ref]; ok {
			s.cacheMu.RUnlock()
			return cached, nil
		}
		s.cacheMu.RUnlock()

		full, err := s.resolve(ref)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		text, err := decode(ctx, s.parser, ref, data)
		if err != nil {
			return nil, err
		}

		s.cacheMu.Lock()
		s.cache[ref] = text
		s.cacheMu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// resolve joins ref onto the base directory and rejects path escapes.
func (s *FileSource) resolve(ref string) (string, error) {
	if s.base == "" {
		return ref, nil
	}
	full := filepath.Join(s.base, ref)
	rel, err := filepath.Rel(s.base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source ref %q escapes the base directory", ref)
	}
	return full, nil
}
