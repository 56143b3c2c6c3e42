package sentence

import (
	"reflect"
	"testing"

	"scribe/internal/subtitles"
)

func exampleSegments() []subtitles.Segment {
	return []subtitles.Segment{
		{Counter: "1", Text: "The quick brown"},
		{Counter: "2", Text: "fox jumps over the lazy dog. The"},
		{Counter: "3", Text: "dog is very lazy."},
	}
}

func TestBuildSplitsOnTerminalPunctuation(t *testing.T) {
	got := Build(exampleSegments())
	want := []Sentence{
		{Text: "The quick brown fox jumps over the lazy dog.", SegmentPercentage: map[string]float64{"1": 0.33, "2": 0.67}},
		{Text: "The dog is very lazy.", SegmentPercentage: map[string]float64{"2": 0.2, "3": 0.8}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Build mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestIdentityTranslationRestoresSegments(t *testing.T) {
	segments := exampleSegments()
	sentences := Build(segments)
	for i := range sentences {
		sentences[i].Translation = sentences[i].Text
	}
	Reassemble(segments, sentences)
	if !reflect.DeepEqual(segments, exampleSegments()) {
		t.Fatalf("identity round trip changed segments: %+v", segments)
	}
}

func TestBuildForcesCloseWithoutPunctuation(t *testing.T) {
	segments := []subtitles.Segment{
		{Counter: "1", Text: "no punctuation"},
		{Counter: "2", Text: "at all here"},
	}
	got := Build(segments)
	if len(got) != 1 {
		t.Fatalf("expected exactly one sentence, got %d", len(got))
	}
	if got[0].Text != "no punctuation at all here" {
		t.Fatalf("trailing words dropped: %q", got[0].Text)
	}
	if got[0].SegmentPercentage["1"] != 0.4 || got[0].SegmentPercentage["2"] != 0.6 {
		t.Fatalf("unexpected percentages %v", got[0].SegmentPercentage)
	}
}

func TestBuildClosesOnLastPositionNotRepeatedWord(t *testing.T) {
	segments := []subtitles.Segment{{Counter: "1", Text: "go on and go"}}
	got := Build(segments)
	if len(got) != 1 || got[0].Text != "go on and go" {
		t.Fatalf("sentence closed early on a repeat of the last word: %+v", got)
	}
}

func TestBuildRecognisesOtherTerminators(t *testing.T) {
	segments := []subtitles.Segment{{Counter: "1", Text: `Really? "Yes!" Fine… 好。 done`}}
	got := Build(segments)
	texts := make([]string, len(got))
	for i, s := range got {
		texts[i] = s.Text
	}
	want := []string{"Really?", `"Yes!"`, "Fine…", "好。", "done"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("got %q, want %q", texts, want)
	}
}

func TestEmptyInput(t *testing.T) {
	if got := Build(nil); got == nil || len(got) != 0 {
		t.Fatalf("Build(nil) = %#v, want empty list", got)
	}
	if got := Build([]subtitles.Segment{{Counter: "1", Text: "   "}}); len(got) != 0 {
		t.Fatalf("blank segments should yield no sentences, got %+v", got)
	}
	Reassemble(nil, nil)
}

func TestReassembleDistributesTranslation(t *testing.T) {
	segments := exampleSegments()
	sentences := Build(segments)
	sentences[0].Translation = "Le rapide renard brun saute par-dessus le chien paresseux."
	sentences[1].Translation = "Le chien est très paresseux."
	Reassemble(segments, sentences)

	want := []string{
		"Le rapide renard",
		"brun saute par-dessus le chien paresseux. Le",
		"chien est très paresseux.",
	}
	for i, seg := range segments {
		if seg.Text != want[i] {
			t.Fatalf("segment %s = %q, want %q", seg.Counter, seg.Text, want[i])
		}
	}
}

func TestReassembleCanLeaveSegmentEmpty(t *testing.T) {
	segments := []subtitles.Segment{
		{Counter: "1", Text: "a"},
		{Counter: "2", Text: "b c d e f g h i j."},
	}
	sentences := Build(segments)
	if sentences[0].SegmentPercentage["1"] != 0.1 {
		t.Fatalf("unexpected share %v", sentences[0].SegmentPercentage)
	}
	sentences[0].Translation = "Kurz."
	Reassemble(segments, sentences)
	if segments[0].Text != "" || segments[1].Text != "Kurz." {
		t.Fatalf("unexpected distribution %+v", segments)
	}
}

func TestReassembleFallsBackToSourceText(t *testing.T) {
	segments := exampleSegments()
	sentences := Build(segments)
	sentences[1].Translation = "Le chien est très paresseux."
	Reassemble(segments, sentences)
	if segments[0].Text != "The quick brown" {
		t.Fatalf("untranslated sentence should keep its source words, got %q", segments[0].Text)
	}
}

func TestBuildRoundsHalfSharesToEven(t *testing.T) {
	segments := []subtitles.Segment{
		{Counter: "1", Text: "a"},
		{Counter: "2", Text: "b c d e f g h."},
	}
	got := Build(segments)
	want := map[string]float64{"1": 0.12, "2": 0.88}
	if len(got) != 1 || !reflect.DeepEqual(got[0].SegmentPercentage, want) {
		t.Fatalf("shares = %+v, want %v", got, want)
	}
}

func TestReassembleRoundsHalfWordCountsToEven(t *testing.T) {
	segments := []subtitles.Segment{
		{Counter: "1", Text: "a b"},
		{Counter: "2", Text: "c d."},
	}
	sentences := Build(segments)
	if sentences[0].SegmentPercentage["1"] != 0.5 {
		t.Fatalf("unexpected shares %v", sentences[0].SegmentPercentage)
	}
	sentences[0].Translation = "v w x y z"
	Reassemble(segments, sentences)
	if segments[0].Text != "v w" {
		t.Fatalf("segment 1 = %q, want %q", segments[0].Text, "v w")
	}
	// 2.5 rounds to 2 again, so the last word is left over.
	if segments[1].Text != "x y" {
		t.Fatalf("segment 2 = %q, want %q", segments[1].Text, "x y")
	}
}
