// Package chunk splits extracted document text into overlapping, ordered
// segments sized for embedding and retrieval.
package chunk

import "strings"

// Piece is one split segment together with its rune offset in the source
// text. Output order equals source order; the positional index later becomes
// part of the storage document id, so it must be stable.
type Piece struct {
	Text  string
	Start int
	Index int
}

// Chunk is a Piece tagged with the identifiers of the job that produced it.
type Chunk struct {
	Text        string   `json:"text"`
	Source      string   `json:"source"`
	Visuals     []string `json:"visuals,omitempty"`
	UserID      string   `json:"user_id"`
	JobID       string   `json:"job_id"`
	Index       int      `json:"index"`
	StartOffset int      `json:"start_offset"`
}

// Split cuts text into pieces of at most size runes, each overlapping the
// previous by up to overlap runes. Cuts prefer paragraph breaks, then line
// breaks, then sentence-ending periods, then spaces, then arbitrary rune
// boundaries.
func Split(text string, size, overlap int) []Piece {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	out := make([]Piece, 0)
	i, idx := 0, 0
	for i < len(runes) {
		end := i + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, i, end)
		}
		part := string(runes[i:end])
		if strings.TrimSpace(part) != "" {
			out = append(out, Piece{Text: part, Start: i, Index: idx})
			idx++
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

// breakPoint picks the cut position in (start, limit] closest to limit that
// lands on the highest-priority boundary. Cuts in the first half of the
// window are rejected so pieces do not degenerate.
func breakPoint(runes []rune, start, limit int) int {
	floor := start + (limit-start)/2
	for j := limit; j > floor; j-- {
		if j >= 2 && runes[j-1] == '\n' && runes[j-2] == '\n' {
			return j
		}
	}
	for j := limit; j > floor; j-- {
		if runes[j-1] == '\n' {
			return j
		}
	}
	for j := limit; j > floor; j-- {
		if runes[j-1] == '.' {
			return j
		}
	}
	for j := limit; j > floor; j-- {
		if runes[j-1] == ' ' {
			return j
		}
	}
	return limit
}

// Chunks wraps Split output with the source metadata the rest of the
// pipeline carries per chunk.
func Chunks(text, source string, visuals []string, userID, jobID string, size, overlap int) []Chunk {
	pieces := Split(text, size, overlap)
	out := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, Chunk{
			Text:        p.Text,
			Source:      source,
			Visuals:     visuals,
			UserID:      userID,
			JobID:       jobID,
			Index:       p.Index,
			StartOffset: p.Start,
		})
	}
	return out
}

// Texts projects chunks to their plain strings, preserving order.
func Texts(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Text)
	}
	return out
}
