package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"ragchat/internal/domain"
)

// Splitter cuts documents into overlapping character windows. Break points
// are chosen at paragraph boundaries first, then sentence boundaries, then
// arbitrary character offsets, so a chunk never exceeds chunkSize unless a
// single sentence is itself longer than chunkSize (kept whole rather than
// cut mid-word).
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	sentenceRe   *regexp.Regexp
}

// NewSplitter creates a splitter. The overlap must be smaller than the size.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d",
			domain.ErrInvalidChunkConfig, chunkSize, chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		sentenceRe:   regexp.MustCompile(`(?m)(?U)([^.!?।]+[.!?।])`),
	}, nil
}

// fragment is an atomic piece of text plus its offset in the document.
type fragment struct {
	text   string
	offset int
}

// Chunk splits one document into overlapping retrieval units.
func (s *Splitter) Chunk(document domain.Document) ([]domain.Chunk, error) {
	frags := s.fragments(document.Content)
	if len(frags) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	var window []fragment
	length := 0
	flush := func() {
		if len(window) == 0 {
			return
		}
		texts := make([]string, len(window))
		for i, f := range window {
			texts[i] = f.text
		}
		chunks = append(chunks, domain.Chunk{
			Text:   strings.Join(texts, " "),
			Source: document.Source,
			Page:   document.Page,
			Offset: window[0].offset,
		})
	}
	for _, f := range frags {
		grown := length + len(f.text)
		if len(window) > 0 {
			grown++ // joining space
		}
		if len(window) > 0 && grown > s.chunkSize {
			flush()
			window, length = s.carryOver(window)
		}
		window = append(window, f)
		if length > 0 {
			length++
		}
		length += len(f.text)
	}
	flush()
	return chunks, nil
}

// carryOver keeps the trailing fragments of the previous window, up to
// chunkOverlap characters, so consecutive chunks share context.
func (s *Splitter) carryOver(window []fragment) ([]fragment, int) {
	var kept []fragment
	length := 0
	for i := len(window) - 1; i >= 0; i-- {
		f := window[i]
		grown := length + len(f.text)
		if length > 0 {
			grown++
		}
		if grown > s.chunkOverlap {
			break
		}
		kept = append([]fragment{f}, kept...)
		length = grown
	}
	return kept, length
}

// fragments breaks the text into atoms no longer than chunkSize where
// possible: paragraphs, then sentences, then raw slices. A single sentence
// longer than chunkSize stays whole.
func (s *Splitter) fragments(text string) []fragment {
	var out []fragment
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			start := offset + strings.Index(para, trimmed)
			if len(trimmed) <= s.chunkSize {
				out = append(out, fragment{text: trimmed, offset: start})
			} else {
				out = append(out, s.sentences(trimmed, start)...)
			}
		}
		offset += len(para) + len("\n\n")
	}
	return out
}

func (s *Splitter) sentences(text string, base int) []fragment {
	locs := s.sentenceRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return s.hardSplit(text, base)
	}
	var out []fragment
	end := 0
	add := func(piece string, start int, isSentence bool) {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			return
		}
		start += strings.Index(piece, trimmed)
		if !isSentence && len(trimmed) > s.chunkSize {
			out = append(out, s.hardSplit(trimmed, base+start)...)
			return
		}
		// An oversized sentence stays whole rather than being cut mid-word.
		out = append(out, fragment{text: trimmed, offset: base + start})
	}
	for _, loc := range locs {
		if loc[0] > end {
			add(text[end:loc[0]], end, false)
		}
		add(text[loc[0]:loc[1]], loc[0], true)
		end = loc[1]
	}
	if end < len(text) {
		add(text[end:], end, false)
	}
	return out
}

// hardSplit cuts punctuation-less text at raw chunkSize offsets.
func (s *Splitter) hardSplit(text string, base int) []fragment {
	var out []fragment
	for start := 0; start < len(text); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece == "" {
			continue
		}
		out = append(out, fragment{text: piece, offset: base + start})
	}
	return out
}
