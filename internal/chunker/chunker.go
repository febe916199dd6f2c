// Package chunker splits content units into fixed-size overlapping text
// chunks. Splitting is deterministic and rune-based so multibyte Japanese
// text is never cut mid-character.
package chunker

import (
	"strings"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

const (
	DefaultChunkSize    = 1000 // runes
	DefaultChunkOverlap = 200  // runes
)

// Splitter produces chunks of at most chunkSize runes where adjacent chunks
// from the same unit share at least overlap runes.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter, clamping nonsensical parameters to usable values.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split chunks every unit in order. Units with empty text produce no chunks.
func (s *Splitter) Split(units []models.ContentUnit) []models.Chunk {
	var chunks []models.Chunk
	for _, u := range units {
		chunks = append(chunks, s.splitUnit(u)...)
	}
	return chunks
}

func (s *Splitter) splitUnit(u models.ContentUnit) []models.Chunk {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	var out []models.Chunk
	id := 1

	if n <= s.chunkSize {
		return []models.Chunk{s.chunk(u, text, id)}
	}

	start := 0
	for start < n {
		end := start + s.chunkSize
		if end > n {
			end = n
		}

		// prefer a clean break near the end of the chunk
		if end < n {
			lookBack := s.chunkSize / 10
			if lookBack > end-start {
				lookBack = end - start
			}
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if isBreak(runes[i]) {
					end = i + 1
					break
				}
			}
			// the break point must not eat forward progress
			if end-s.overlap <= start {
				end = start + s.chunkSize
				if end > n {
					end = n
				}
			}
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			out = append(out, s.chunk(u, piece, id))
			id++
		}

		if end >= n {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func (s *Splitter) chunk(u models.ContentUnit, text string, id int) models.Chunk {
	c := models.Chunk{
		Content:    text,
		Source:     u.Source,
		PageNumber: u.Page,
		ChunkID:    id,
	}
	if len(u.Extra) > 0 {
		c.Extra = make(map[string]string, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

func isBreak(r rune) bool {
	switch r {
	case ' ', '\n', '\t', '.', '。':
		return true
	}
	return false
}
