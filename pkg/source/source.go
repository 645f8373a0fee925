// Package source resolves analysis job inputs to document text. Sources
// fetch bytes from a backend (filesystem, S3) and hand non-text formats to
// an external Parser collaborator; extraction itself is out of scope here.
package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
)

// TextSource resolves a document reference (a path or object key) to its
// text content.
type TextSource interface {
	Name() string
	FetchText(ctx context.Context, ref string) (string, error)
}

// Parser is the binary-to-text collaborator. Implementations select the
// best extraction for a format; this package only routes to it.
type Parser interface {
	ParseText(ctx context.Context, name string, data []byte) (string, error)
}

// textExtensions lists formats consumed directly without a Parser.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
	".log":      true,
}

func isTextRef(ref string) bool {
	ext := strings.ToLower(path.Ext(ref))
	return ext == "" || textExtensions[ext]
}

// decode turns fetched bytes into document text, routing binary formats
// through the parser when one is configured.
func decode(ctx context.Context, parser Parser, ref string, data []byte) (string, error) {
	if isTextRef(ref) {
		return util.SanitizeText(string(data)), nil
	}
	if parser == nil {
		return "", fmt.Errorf("no parser configured for %q", ref)
	}
	text, err := parser.ParseText(ctx, path.Base(ref), data)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", ref, err)
	}
	return util.SanitizeText(text), nil
}
