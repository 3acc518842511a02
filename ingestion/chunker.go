package ingestion

import "unicode/utf8"

// DefaultChunkSize is the chunk size in bytes used when none is given.
const DefaultChunkSize = 500

// TextChunk is one contiguous slice of a document.
type TextChunk struct {
	Text  string
	Index int
	Total int
}

// Chunk splits text into contiguous slices of at most size bytes.
// Concatenating the Text of every chunk in order reproduces text exactly.
// Cuts are moved back to the nearest rune boundary, so a chunk may be
// slightly shorter than size but a multi-byte rune is never split. A size
// smaller than one rune still makes progress by taking that whole rune.
// Empty text yields no chunks; size <= 0 means DefaultChunkSize.
func Chunk(text string, size int) []TextChunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	chunks := make([]TextChunk, 0, (len(text)+size-1)/size)
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				_, width := utf8.DecodeRuneInString(text[start:])
				end = start + width
			}
		}
		chunks = append(chunks, TextChunk{Text: text[start:end], Index: len(chunks)})
		start = end
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}
