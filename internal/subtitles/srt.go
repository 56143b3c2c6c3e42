package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Segment is one subtitle cue.
type Segment struct {
	Counter   string  `json:"counter"`
	TimeRange string  `json:"time_range"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}

// FromTranscript builds one cue per recognized segment, numbered from 1.
func FromTranscript(result transcript.Result) []Segment {
	segments := make([]Segment, 0, len(result.Segments))
	for i, seg := range result.Segments {
		segments = append(segments, Segment{
			Counter:   strconv.Itoa(i + 1),
			TimeRange: FormatTimeRange(seg.Start, seg.End),
			Start:     seg.Start,
			End:       seg.End,
			Text:      strings.TrimSpace(seg.Text),
		})
	}
	return segments
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	millis := total % 1000
	total /= 1000
	secs := total % 60
	total /= 60
	minutes := total % 60
	hours := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// FormatTimeRange renders the "start --> end" line of a cue.
func FormatTimeRange(start, end float64) string {
	return FormatTimestamp(start) + " --> " + FormatTimestamp(end)
}

// FormatSRT renders segments as an SRT document.
func FormatSRT(segments []Segment) string {
	blocks := make([]string, 0, len(segments))
	for i, seg := range segments {
		counter := seg.Counter
		if counter == "" {
			counter = strconv.Itoa(i + 1)
		}
		timeRange := seg.TimeRange
		if timeRange == "" {
			timeRange = FormatTimeRange(seg.Start, seg.End)
		}
		blocks = append(blocks, fmt.Sprintf("%s\n%s\n%s\n", counter, timeRange, seg.Text))
	}
	return strings.Join(blocks, "\n")
}

// ParseSRT reads an SRT document. Multi-line cue text is kept with its line
// breaks.
func ParseSRT(content string) ([]Segment, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	var segments []Segment
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, malformed(fmt.Sprintf("cue %q has no time range", lines[0]))
		}
		counter := strings.TrimSpace(lines[0])
		timeLine := strings.TrimSpace(lines[1])
		parts := strings.Split(timeLine, "-->")
		if len(parts) != 2 {
			return nil, malformed(fmt.Sprintf("cue %s: invalid time range %q", counter, timeLine))
		}
		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			return nil, malformed(fmt.Sprintf("cue %s: %v", counter, err))
		}
		end, err := parseSRTTimestamp(parts[1])
		if err != nil {
			return nil, malformed(fmt.Sprintf("cue %s: %v", counter, err))
		}
		text := make([]string, 0, len(lines)-2)
		for _, line := range lines[2:] {
			text = append(text, strings.TrimSpace(line))
		}
		segments = append(segments, Segment{
			Counter:   counter,
			TimeRange: FormatTimeRange(start, end),
			Start:     start,
			End:       end,
			Text:      strings.Join(text, "\n"),
		})
	}
	return segments, nil
}

func splitBlocks(content string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func malformed(message string) error {
	return services.Wrap(services.ErrValidation, "subtitles", "parse srt", message, nil)
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Some writers use a period before the milliseconds.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
