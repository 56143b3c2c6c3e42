// Package sentence regroups subtitle segments into whole sentences for
// translation and spreads the translated sentences back over the original
// segments.
//
// Each Sentence records the share of its words contributed by every segment.
// Those shares are computed from the source text and reused for the
// translation, so languages with very different clause lengths can leave a
// segment short or empty. That approximation is intentional.
package sentence

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"scribe/internal/subtitles"
)

// Sentence is one translation unit.
type Sentence struct {
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	// SegmentPercentage maps a segment counter to its share of the words,
	// rounded to two decimals.
	SegmentPercentage map[string]float64 `json:"segment_percentage"`
}

type word struct {
	text    string
	counter string
}

// Build splits the text of segments into sentences. A sentence ends on a word
// with terminal punctuation or at the last word of the input.
func Build(segments []subtitles.Segment) []Sentence {
	var words []word
	for _, seg := range segments {
		for _, w := range strings.Fields(seg.Text) {
			words = append(words, word{text: w, counter: seg.Counter})
		}
	}

	sentences := make([]Sentence, 0)
	var current []string
	var order []string
	tally := make(map[string]int)

	for i, w := range words {
		current = append(current, w.text)
		if _, seen := tally[w.counter]; !seen {
			order = append(order, w.counter)
		}
		tally[w.counter]++

		if !endsSentence(w.text) && i != len(words)-1 {
			continue
		}
		total := len(current)
		percentages := make(map[string]float64, len(order))
		for _, counter := range order {
			percentages[counter] = round2(float64(tally[counter]) / float64(total))
		}
		sentences = append(sentences, Sentence{
			Text:              strings.Join(current, " "),
			SegmentPercentage: percentages,
		})
		current = nil
		order = nil
		tally = make(map[string]int)
	}
	return sentences
}

// Reassemble rewrites the text of segments from the translated sentences.
// Each segment takes round(words * share) words, halves rounding to even,
// from the front of every sentence it contributed to, in order. A sentence with no translation is
// redistributed from its source text.
func Reassemble(segments []subtitles.Segment, sentences []Sentence) {
	remaining := make([][]string, len(sentences))
	totals := make([]int, len(sentences))
	for i, s := range sentences {
		text := s.Translation
		if strings.TrimSpace(text) == "" {
			text = s.Text
		}
		remaining[i] = strings.Fields(text)
		totals[i] = len(remaining[i])
	}

	for idx := range segments {
		counter := segments[idx].Counter
		var parts []string
		for i, s := range sentences {
			share, ok := s.SegmentPercentage[counter]
			if !ok {
				continue
			}
			n := int(math.RoundToEven(float64(totals[i]) * share))
			if n > len(remaining[i]) {
				n = len(remaining[i])
			}
			if n <= 0 {
				continue
			}
			parts = append(parts, remaining[i][:n]...)
			remaining[i] = remaining[i][n:]
		}
		segments[idx].Text = strings.Join(parts, " ")
	}
}

// round2 rounds to two decimals with ties to even on the decimal value, so
// 1/8 becomes 0.12 and 7/8 becomes 0.88.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return math.RoundToEven(v*100) / 100
	}
	return r
}

// closers may trail terminal punctuation, as in `"Stop!"` or `(really?)`.
const closers = `"'”’»)]}`

func endsSentence(w string) bool {
	w = strings.TrimRight(w, closers)
	if w == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(w)
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	default:
		return false
	}
}
