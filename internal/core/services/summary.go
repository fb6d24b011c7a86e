package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

func summaryPrompt(level domain.DetailLevel, text string) string {
	return fmt.Sprintf("Summarize the following document in a %s manner:\n\n%s", level, text)
}

// joinChunks rebuilds document text from chunks in index order, skipping the
// overlap each chunk shares with its predecessor, up to limit characters.
func joinChunks(chunks []domain.Chunk, limit int) string {
	var sb strings.Builder
	written, end := 0, 0
	for _, c := range chunks {
		runes := []rune(c.Content)
		if skip := end - c.StartOffset; skip > 0 {
			if skip >= len(runes) {
				continue
			}
			runes = runes[skip:]
		}
		if written+len(runes) > limit {
			runes = runes[:limit-written]
		}
		sb.WriteString(string(runes))
		written += len(runes)
		end = c.EndOffset
		if written >= limit {
			break
		}
	}
	return sb.String()
}

// extractiveSummary keeps the first n sentences of text. The result ends
// in a full stop unless its last sentence already has terminal punctuation.
func extractiveSummary(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	sentences := strings.Split(text, ". ")
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	out := strings.Join(sentences, ". ")
	if strings.HasSuffix(out, ".") || strings.HasSuffix(out, "!") || strings.HasSuffix(out, "?") {
		return out
	}
	return out + "."
}
