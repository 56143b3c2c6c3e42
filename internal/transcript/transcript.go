// Package transcript holds the recognizer's output model.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Segment is one time-aligned span of recognized speech. Start and End are
// seconds from the beginning of the input.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek,omitempty"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	AvgLogProb       float64 `json:"avg_logprob,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty"`
}

// Result is the full transcription of one input file.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Decode parses whisper's JSON output format.
func Decode(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("parse transcript json: %w", err)
	}
	result.normalize()
	return result, nil
}

// Load reads and decodes a whisper JSON file.
func Load(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read transcript: %w", err)
	}
	return Decode(data)
}

// normalize trims the leading space whisper puts in front of every segment
// and rebuilds Text when the recognizer left it empty.
func (r *Result) normalize() {
	for i := range r.Segments {
		r.Segments[i].Text = strings.TrimSpace(r.Segments[i].Text)
		if r.Segments[i].End < r.Segments[i].Start {
			r.Segments[i].End = r.Segments[i].Start
		}
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" && len(r.Segments) > 0 {
		parts := make([]string, 0, len(r.Segments))
		for _, seg := range r.Segments {
			if seg.Text != "" {
				parts = append(parts, seg.Text)
			}
		}
		r.Text = strings.Join(parts, " ")
	}
}

// Duration returns the end time of the last segment.
func (r Result) Duration() float64 {
	var last float64
	for _, seg := range r.Segments {
		if seg.End > last {
			last = seg.End
		}
	}
	return last
}
