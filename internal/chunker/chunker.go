package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"document-chat/internal/models"
)

const (
	StrategyWindow    = "window"
	StrategyRecursive = "recursive"

	sourceKey = "source"
)

// WindowSplitter cuts text into fixed-size rune windows. Each window starts
// ChunkSize-ChunkOverlap runes after the previous one, so consecutive windows
// share exactly ChunkOverlap runes; only the last window may be shorter.
type WindowSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

var _ textsplitter.TextSplitter = WindowSplitter{}

func (s WindowSplitter) SplitText(text string) ([]string, error) {
	if s.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := s.ChunkSize - s.ChunkOverlap
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+s.ChunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// New returns the splitter for strategy. The recursive strategy prefers
// paragraph, line and word boundaries and therefore does not guarantee an
// exact overlap.
func New(strategy string, size, overlap int) (textsplitter.TextSplitter, error) {
	switch strategy {
	case StrategyWindow, "":
		return WindowSplitter{ChunkSize: size, ChunkOverlap: overlap}, nil
	case StrategyRecursive:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		), nil
	default:
		return nil, fmt.Errorf("unknown splitter strategy: %s", strategy)
	}
}

// Split chunks text from source and numbers the chunks from 1.
func Split(splitter textsplitter.TextSplitter, text, source string) ([]models.Chunk, error) {
	docs, err := textsplitter.SplitDocuments(splitter, []schema.Document{{
		PageContent: text,
		Metadata:    map[string]any{sourceKey: source},
	}})
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", source, err)
	}

	chunks := make([]models.Chunk, 0, len(docs))
	for i, doc := range docs {
		src, _ := doc.Metadata[sourceKey].(string)
		chunks = append(chunks, models.Chunk{
			ID:      fmt.Sprintf("%s-%d", src, i+1),
			Source:  src,
			Index:   i + 1,
			Content: doc.PageContent,
		})
	}
	return chunks, nil
}
