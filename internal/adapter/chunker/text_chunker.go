package chunker

import (
	"strings"
	"unicode"
)

// TextChunker splits text into overlapping windows of at most size runes,
// preferring to cut after sentence punctuation and then at spaces.
type TextChunker struct {
	size    int
	overlap int
}

// Span is a half-open rune range [Start, End) of the chunked text.
type Span struct {
	Start int
	End   int
}

func NewTextChunker(size, overlap int) *TextChunker {
	if overlap < 0 {
		overlap = 0
	}
	return &TextChunker{
		size:    size,
		overlap: overlap,
	}
}

// Chunk returns the trimmed, non-empty chunks of text. The result depends
// only on text and the chunker's parameters.
func (c *TextChunker) Chunk(text string) []string {
	runes := []rune(text)
	spans := c.spans(runes)

	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunk := strings.TrimSpace(string(runes[s.Start:s.End]))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Spans returns the raw windows Chunk cuts text into, before trimming.
func (c *TextChunker) Spans(text string) []Span {
	return c.spans([]rune(text))
}

func (c *TextChunker) spans(text []rune) []Span {
	n := len(text)
	if n == 0 {
		return nil
	}
	if c.size <= 0 || n <= c.size {
		return []Span{{Start: 0, End: n}}
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + c.size
		if end > n {
			end = n
		}
		if end < n && !unicode.IsSpace(text[end]) {
			end = backoff(text, start, end)
		}

		spans = append(spans, Span{Start: start, End: end})

		// end > start always holds, so start strictly increases.
		if next := end - c.overlap; next > start {
			start = next
		} else {
			start = end
		}
	}
	return spans
}

// backoff moves a window edge that splits a word back to the last sentence
// end or space after start. It returns end unchanged when neither exists.
func backoff(text []rune, start, end int) int {
	if i := lastSentenceEnd(text, start, end); i > start {
		return i + 1
	}
	for i := end - 1; i > start; i-- {
		if text[i] == ' ' {
			return i
		}
	}
	return end
}

// lastSentenceEnd finds the last '.', '?' or '!' in [start, end) that is
// followed by a space inside the same range, or -1.
func lastSentenceEnd(text []rune, start, end int) int {
	for i := end - 2; i >= start; i-- {
		switch text[i] {
		case '.', '?', '!':
			if text[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}
