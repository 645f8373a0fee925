package analyzer

import (
	"context"
	"errors"
	"strings"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
	"github.com/selmo/Tagdstiller-sub001/pkg/chunker"
	"github.com/selmo/Tagdstiller-sub001/pkg/prompts"
)

// fallbackTopicCount bounds the topics a fallback summary borrows from the
// keyword list.
const fallbackTopicCount = 5

// Summary is the structured summary of one chunk.
type Summary struct {
	Intro      string   `json:"intro,omitempty"`
	Conclusion string   `json:"conclusion,omitempty"`
	Core       string   `json:"core"`
	Topics     []string `json:"topics,omitempty"`
	Tone       string   `json:"tone,omitempty"`
}

type summaryResponse struct {
	Intro      string   `json:"intro" jsonschema_description:"One sentence on how the text opens"`
	Conclusion string   `json:"conclusion" jsonschema_description:"One sentence on how the text closes"`
	Core       string   `json:"core" jsonschema_description:"The central statement of the text in two or three sentences"`
	Topics     []string `json:"topics" jsonschema_description:"Main topics covered, most prominent first"`
	Tone       string   `json:"tone" jsonschema_description:"Overall tone such as neutral, formal or promotional"`
}

func (a *Analyzer) llmSummary(ctx context.Context, chunk chunker.Chunk, lang ai.Language) (sum *Summary, result *ai.Result, err error) {
	name := prompts.NameForLanguage(lang)
	params := prompts.Params{
		"Text":     chunk.Content,
		"Language": string(lang),
		"Title":    chunk.Title,
	}
	prompt, err := a.registry.Render(prompts.CategorySummary, name, params)
	if err != nil {
		return nil, nil, err
	}
	defer func() { a.emit(chunk.ID, prompts.CategorySummary, name, prompt, params, result, err) }()

	var resp summaryResponse
	result, err = a.gateway.GenerateObject(ctx, "summary",
		"Structured summary of one document chunk", prompt, &resp)
	if err != nil {
		return nil, result, err
	}
	if strings.TrimSpace(resp.Core) == "" {
		return nil, result, errors.New("model returned an empty summary core")
	}

	topics := make([]string, 0, len(resp.Topics))
	for _, topic := range resp.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return &Summary{
		Intro:      strings.TrimSpace(resp.Intro),
		Conclusion: strings.TrimSpace(resp.Conclusion),
		Core:       strings.TrimSpace(resp.Core),
		Topics:     topics,
		Tone:       strings.TrimSpace(resp.Tone),
	}, result, nil
}

// fallbackSummary frames the chunk with its first and last non-empty lines
// and borrows the top keywords as topics.
func fallbackSummary(content string, keywords []Keyword) *Summary {
	first, last := firstAndLastLine(content)
	core := first
	if last != "" && last != first {
		core = first + " " + last
	}

	topics := make([]string, 0, fallbackTopicCount)
	for _, k := range keywords {
		topics = append(topics, k.Term)
		if len(topics) == fallbackTopicCount {
			break
		}
	}

	return &Summary{
		Intro:      first,
		Conclusion: last,
		Core:       core,
		Topics:     topics,
		Tone:       "neutral",
	}
}

// firstAndLastLine returns the first and last non-empty lines of content
// with leading heading markers removed.
func firstAndLastLine(content string) (string, string) {
	first, last := "", ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		last = line
	}
	return first, last
}
