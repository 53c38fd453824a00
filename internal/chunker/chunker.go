// Package chunker splits corpus text into overlapping chunks by recursively
// trying a prioritized list of separators.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators in priority order: paragraph breaks first, then line
// breaks, CJK and Latin sentence ends, clause breaks, word breaks, and a
// character-level fallback.
var DefaultSeparators = []string{"\n\n", "\n", "。", ".", "!", "?", ";", ",", " ", ""}

// Split cuts text into chunks of at most chunkSize runes. Adjacent chunks
// share up to overlap runes. Whitespace-only pieces are dropped, so the
// result never contains an empty chunk.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	pieces := split(text, chunkSize, overlap, DefaultSeparators)

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func split(text string, size, overlap int, seps []string) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	// First separator actually present in the text wins. The empty string
	// matches everything and cuts at rune boundaries.
	sep := ""
	var rest []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return splitRunes(text, size, overlap)
	}

	// SplitAfter keeps the separator attached to the preceding piece, so
	// merged chunks concatenate back without losing characters.
	parts := strings.SplitAfter(text, sep)

	var out []string
	var pending []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= size {
			pending = append(pending, part)
			continue
		}
		if len(pending) > 0 {
			out = append(out, merge(pending, size, overlap)...)
			pending = nil
		}
		out = append(out, split(part, size, overlap, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, merge(pending, size, overlap)...)
	}
	return out
}

// merge packs consecutive small pieces into chunks of at most size runes,
// carrying a tail of up to overlap runes into the next chunk.
func merge(parts []string, size, overlap int) []string {
	var out []string
	var window []string
	total := 0

	for _, part := range parts {
		n := utf8.RuneCountInString(part)
		if total+n > size && total > 0 {
			out = append(out, strings.Join(window, ""))
			for total > overlap || (total+n > size && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		total += n
	}
	if len(window) > 0 {
		out = append(out, strings.Join(window, ""))
	}
	return out
}

// splitRunes hard-cuts text into windows of size runes stepping by
// size-overlap, the last resort when no separator applies.
func splitRunes(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = 1
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
