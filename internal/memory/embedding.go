package memory

import (
	"context"
	"regexp"
	"strings"
)

// Embedder is the external embedding backend (spec.md §6): turns text into
// a fixed-length vector, or raises a typed error. The store never treats a
// failure as a zero vector (spec.md §4.2.1).
type Embedder interface {
	// Embed turns a single chunk of text (already within TokenLimit) into a
	// fixed-length vector.
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimension is the fixed length of vectors this backend returns.
	Dimension() int
	// TokenLimit is the hard per-call token limit L this backend enforces.
	TokenLimit() int
}

// charsPerToken is the conservative (i.e. an underestimate of real token
// density, so we chunk earlier rather than later) ratio used to convert a
// backend's token limit into a character budget, per spec.md §4.2.1.
const charsPerToken = 3.2

// chunkOverlapFraction is the fractional overlap between consecutive
// chunks (spec.md §4.2.1: "25% overlap").
const chunkOverlapFraction = 0.25

// chunkSizeFraction shrinks the raw character budget so that sentence/word
// boundary snapping never pushes a chunk over the true token limit (spec.md
// §4.2.1: "chunks of size ≈ 0.9·L·chars_per_token").
const chunkSizeFraction = 0.9

var sentenceEnd = regexp.MustCompile(`[.!?](\s+|$)`)

// splitSentences breaks text at sentence boundaries (primary strategy),
// keeping the terminating punctuation attached to each sentence.
func splitSentences(text string) []string {
	idxs := sentenceEnd.FindAllStringIndex(text, -1)
	if len(idxs) == 0 {
		return nil
	}
	var out []string
	start := 0
	for _, loc := range idxs {
		end := loc[0] + 1 // include the punctuation, drop the trailing whitespace
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// splitParagraphs breaks text at blank lines (secondary strategy, used when
// a single "sentence" is itself too long — e.g. unpunctuated text).
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chunkText splits text into overlapping chunks no longer than maxChars,
// trying sentence boundaries first and falling back to paragraph
// boundaries for any unit that is itself still too long. Units that remain
// too long even as single paragraphs are hard-split as a last resort.
func chunkText(text string, maxChars int) []string {
	units := splitSentences(text)
	if len(units) <= 1 {
		units = splitParagraphs(text)
	}
	if len(units) == 0 {
		units = []string{text}
	}

	var normalized []string
	for _, u := range units {
		if len(u) <= maxChars {
			normalized = append(normalized, u)
			continue
		}
		// A unit still too long falls back to paragraph boundaries; a
		// paragraph still too long is hard split on whitespace-respecting
		// boundaries.
		for _, p := range splitParagraphs(u) {
			if len(p) <= maxChars {
				normalized = append(normalized, p)
				continue
			}
			normalized = append(normalized, hardSplit(p, maxChars)...)
		}
	}

	overlap := int(float64(maxChars) * chunkOverlapFraction)
	var chunks []string
	var cur strings.Builder
	for _, u := range normalized {
		if cur.Len()+len(u)+1 > maxChars && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			tail := cur.String()
			if len(tail) > overlap {
				tail = tail[len(tail)-overlap:]
			}
			// Shorten the overlap further when needed so the next chunk
			// still fits within maxChars.
			if room := maxChars - len(u) - 1; len(tail) > room {
				if room <= 0 {
					tail = ""
				} else {
					tail = tail[len(tail)-room:]
				}
			}
			cur.Reset()
			cur.WriteString(tail)
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(u)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// hardSplit breaks a single overlong unit on word boundaries into pieces no
// longer than maxChars, as a last resort before giving up.
func hardSplit(text string, maxChars int) []string {
	words := strings.Fields(text)
	var out []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len()+len(w)+1 > maxChars && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// averageVectors returns the element-wise mean of vecs. Callers must ensure
// every vector has the same dimension.
func averageVectors(vecs [][]float64) []float64 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	out := make([]float64, dim)
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(vecs))
	}
	return out
}
