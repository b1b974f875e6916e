// Package chunker splits source documents into overlapping, bounded
// chunks suitable for embedding and later citation. Chunks are contiguous
// rune spans of the original document: concatenating all chunks with the
// overlap stripped reconstructs the source exactly, so no content is ever
// silently dropped by ingestion.
//
// Sizes and overlap are counted in runes, not bytes — the knowledge base
// is bilingual (English and Arabic) and byte-based splitting would cut
// multi-byte UTF-8 sequences in half.
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/voara-ai/voara-rag/internal/rag"
)

// heading records a markdown heading line and where it starts.
type heading struct {
	// offset is the rune offset of the heading line's first character.
	offset int
	// text is the heading with markers stripped.
	text string
}

// Chunk splits text into overlapping chunks of at most size runes.
// Consecutive chunks overlap by exactly overlap runes, except at the
// document end. Chunk boundaries prefer paragraph breaks, then line
// breaks, then word breaks within the back half of the window, falling
// back to a hard cut for unbroken runs.
//
// Each chunk carries the most recent markdown heading preceding its
// start, the source identifier, its ordinal position, and a stable id
// derived from source and position.
//
// Returns an error wrapping rag.ErrChunking when size is not positive,
// overlap is negative, or overlap >= size (which could never terminate).
func Chunk(text, source string, size, overlap int) ([]rag.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d: %w", size, rag.ErrChunking)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: chunk overlap must not be negative, got %d: %w", overlap, rag.ErrChunking)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunker: chunk overlap %d must be smaller than chunk size %d: %w", overlap, size, rag.ErrChunking)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	headings := scanHeadings(runes)

	var chunks []rag.Chunk
	start := 0
	for position := 0; ; position++ {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end, overlap)
		}

		chunks = append(chunks, rag.Chunk{
			ID:       ChunkID(source, position),
			Text:     string(runes[start:end]),
			Source:   source,
			Header:   headerAt(headings, start),
			Position: position,
		})

		if end == len(runes) {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// ChunkID derives the stable point id for a chunk of source at the given
// position. Qdrant point ids must be UUIDs, so the id is a name-based
// UUID over the source and position — re-ingesting a document produces
// the same ids and replaces the previous points.
func ChunkID(source string, position int) string {
	name := fmt.Sprintf("voara-kb://%s#%d", source, position)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// breakPoint moves the tentative chunk end backward to the nearest
// natural boundary, searching only the back half of the window so chunks
// never shrink below half the target size. The floor also stays above
// start+overlap so the next window always advances.
func breakPoint(runes []rune, start, end, overlap int) int {
	floor := start + (end-start)/2
	if min := start + overlap + 1; floor < min {
		floor = min
	}

	// Paragraph break: cut after the blank line.
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Line break.
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// Word break.
	for i := end - 1; i >= floor; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return end
}

// scanHeadings collects markdown heading lines ("# ...") with their rune
// offsets, in document order.
func scanHeadings(runes []rune) []heading {
	var headings []heading
	lineStart := 0
	for i := 0; i <= len(runes); i++ {
		if i != len(runes) && runes[i] != '\n' {
			continue
		}
		line := string(runes[lineStart:i])
		if strings.HasPrefix(line, "#") {
			headings = append(headings, heading{
				offset: lineStart,
				text:   strings.TrimSpace(strings.TrimLeft(line, "#")),
			})
		}
		lineStart = i + 1
	}
	return headings
}

// headerAt returns the text of the last heading at or before the given
// rune offset, or empty when none precedes it.
func headerAt(headings []heading, offset int) string {
	header := ""
	for _, h := range headings {
		if h.offset > offset {
			break
		}
		header = h.text
	}
	return header
}
