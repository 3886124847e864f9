package services

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is the longest text body a chat reply may carry.
const MaxMessageRunes = 4000

type TextChuncker interface {
	ChunkText(text string, maxChunkSize int) []string
}

type textChunker struct{}

func NewTextChunker() TextChuncker {
	return &textChunker{}
}

// ChunkText implements TextChuncker. Paragraphs are kept whole where they fit,
// then lines, then the text is cut at maxChunkSize runes. No chunk is empty
// and none exceeds maxChunkSize runes.
func (tc *textChunker) ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = MaxMessageRunes
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	add := func(piece, sep string) {
		pieceLen := utf8.RuneCountInString(piece)
		sepLen := utf8.RuneCountInString(sep)
		if currentLen > 0 && currentLen+sepLen+pieceLen > maxChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += sepLen
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= maxChunkSize {
			add(para, "\n\n")
			continue
		}

		// Paragraph too long: fall back to lines, then to hard cuts.
		for i, line := range strings.Split(para, "\n") {
			sep := "\n"
			if i == 0 {
				sep = "\n\n"
			}
			for _, piece := range splitRunes(line, maxChunkSize) {
				add(piece, sep)
				sep = ""
			}
		}
	}
	flush()

	return chunks
}

func splitRunes(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}

	var parts []string
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
