package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func teiTags() *TagMap {
	return NewTagMap(map[string]string{
		"PERSON":   "persName",
		"LOCATION": "placeName",
	})
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "<persName>Ada</persName>", Wrap("Ada", "persName"))
	assert.Equal(t, "<x></x>", Wrap("", "x"))
	// No escaping of either argument.
	assert.Equal(t, "<a b>1 < 2</a b>", Wrap("1 < 2", "a b"))
}

func TestTagMap(t *testing.T) {
	tm := teiTags()

	assert.Equal(t, "persName", tm.Resolve("PERSON"))
	assert.Equal(t, "MISC", tm.Resolve("MISC"))
	assert.True(t, tm.Allowed("persName"))
	assert.False(t, tm.Allowed("PERSON"), "keys are not allow-listed, values are")
	assert.Equal(t, 2, tm.Len())

	entries := tm.Entries()
	entries["PERSON"] = "changed"
	assert.Equal(t, "persName", tm.Resolve("PERSON"), "Entries must return a copy")
}

func TestTagMapNil(t *testing.T) {
	var tm *TagMap
	assert.Equal(t, "PERSON", tm.Resolve("PERSON"))
	assert.False(t, tm.Allowed("PERSON"))
	assert.Equal(t, 0, tm.Len())
	assert.Empty(t, tm.Entries())
}

func TestTagMapSourceIsCopied(t *testing.T) {
	src := map[string]string{"PERSON": "persName"}
	tm := NewTagMap(src)
	src["PERSON"] = "other"
	assert.Equal(t, "persName", tm.Resolve("PERSON"))
}

func TestReconcileScenarios(t *testing.T) {
	const text = "Barack Obama visited Paris."

	tests := []struct {
		name     string
		text     string
		mentions []Mention
		want     string
	}{
		{
			name: "both entities wrapped",
			text: " " + text,
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Barack Obama"},
				{Tag: "LOCATION", Phrase: "Paris"},
			},
			want: " <persName>Barack Obama</persName> visited <placeName>Paris</placeName>.",
		},
		{
			name:     "unmapped tag passes through bare",
			text:     text,
			mentions: []Mention{{Tag: "MISC", Phrase: "Paris"}},
			want:     text,
		},
		{
			name:     "absent phrase is skipped",
			text:     text,
			mentions: []Mention{{Tag: "PERSON", Phrase: "Nowhere"}},
			want:     text,
		},
		{
			name:     "match at index zero is skipped",
			text:     text,
			mentions: []Mention{{Tag: "PERSON", Phrase: "Barack Obama"}},
			want:     text,
		},
		{
			name: "index zero skip does not block later mentions",
			text: text,
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Barack Obama"},
				{Tag: "LOCATION", Phrase: "Paris"},
			},
			want: "Barack Obama visited <placeName>Paris</placeName>.",
		},
		{
			name:     "later occurrence of an index zero phrase is found",
			text:     "Paris and Paris",
			mentions: []Mention{{Tag: "LOCATION", Phrase: "Paris"}},
			want:     "Paris and <placeName>Paris</placeName>",
		},
		{
			name: "out of order mention is dropped",
			text: "We met Ada and then Grace.",
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Grace"},
				{Tag: "PERSON", Phrase: "Ada"},
			},
			want: "We met Ada and then <persName>Grace</persName>.",
		},
		{
			name: "repeated phrase advances to the next occurrence",
			text: "x Ada, Ada and Ada",
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Ada"},
				{Tag: "PERSON", Phrase: "Ada"},
			},
			want: "x <persName>Ada</persName>, <persName>Ada</persName> and Ada",
		},
		{
			name: "empty phrase is skipped",
			text: "x Ada",
			mentions: []Mention{
				{Tag: "PERSON", Phrase: ""},
				{Tag: "PERSON", Phrase: "Ada"},
			},
			want: "x <persName>Ada</persName>",
		},
		{
			name: "entity at end of text",
			text: "Meet Ada",
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Ada"},
			},
			want: "Meet <persName>Ada</persName>",
		},
		{
			name: "multibyte text",
			text: "Встреча: Иван Иванов в Москве",
			mentions: []Mention{
				{Tag: "PERSON", Phrase: "Иван Иванов"},
				{Tag: "LOCATION", Phrase: "Москве"},
			},
			want: "Встреча: <persName>Иван Иванов</persName> в <placeName>Москве</placeName>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.text, tt.mentions, teiTags()))
		})
	}
}

func TestReconcileLeading(t *testing.T) {
	text := "Barack Obama visited Paris."
	mentions := []Mention{
		{Tag: "PERSON", Phrase: "Barack Obama"},
		{Tag: "LOCATION", Phrase: "Paris"},
	}

	assert.Equal(t,
		"<persName>Barack Obama</persName> visited <placeName>Paris</placeName>.",
		ReconcileLeading(text, mentions, teiTags()))
	assert.Equal(t,
		"Barack Obama visited <placeName>Paris</placeName>.",
		Reconcile(text, mentions, teiTags()))

	// The overlap rule still applies with leading matches accepted.
	assert.Equal(t, "<persName>ab</persName>ba",
		ReconcileLeading("abba", []Mention{{Tag: "PERSON", Phrase: "ab"}, {Tag: "PERSON", Phrase: "bb"}}, teiTags()))
}

func TestReconcileAllowListUsesMappedValues(t *testing.T) {
	// MISC maps to "name", which is a value, so it is rendered.
	tags := NewTagMap(map[string]string{
		"MISC":   "name",
		"NAME":   "name",
		"PERSON": "persName",
	})
	out := Reconcile("I saw Ada in Rome.", []Mention{
		{Tag: "MISC", Phrase: "Ada"},
		{Tag: "persName", Phrase: "Rome"},
	}, tags)
	// "persName" is not a key, so it stays raw; it is a value, so it is allowed.
	assert.Equal(t, "I saw <name>Ada</name> in <persName>Rome</persName>.", out)
}

func TestReconcileRejectsUnapprovedTags(t *testing.T) {
	out := Reconcile("I saw Ada in Rome.", []Mention{
		{Tag: "PERSON", Phrase: "Ada"},
		{Tag: "GPE", Phrase: "Rome"},
	}, teiTags())
	assert.Equal(t, "I saw <persName>Ada</persName> in Rome.", out)
	assert.NotContains(t, out, "<GPE>")
}

func TestReconcileSearchBoundOverlap(t *testing.T) {
	// The second phrase starts on the last character of the first one. The
	// search starts at that character, finds the overlapping occurrence and
	// drops the mention rather than emitting the shared character twice.
	text := "say abba"
	out, placed := reconcile(text, []Mention{
		{Tag: "PERSON", Phrase: "ab"},
		{Tag: "PERSON", Phrase: "bb"},
	}, teiTags(), false)
	assert.Equal(t, "say <persName>ab</persName>ba", out)
	assert.Equal(t, 1, placed)

	// A phrase starting immediately after the previous one is placed.
	out, placed = reconcile(text, []Mention{
		{Tag: "PERSON", Phrase: "ab"},
		{Tag: "LOCATION", Phrase: "ba"},
	}, teiTags(), false)
	assert.Equal(t, "say <persName>ab</persName><placeName>ba</placeName>", out)
	assert.Equal(t, 2, placed)
}

func TestReconcileIdentityWithoutMentions(t *testing.T) {
	for _, text := range []string{"", "a", "Barack Obama visited Paris.", "日本語\n\ttext"} {
		assert.Equal(t, text, Reconcile(text, nil, teiTags()))
		assert.Equal(t, text, Reconcile(text, []Mention{}, nil))
	}
}

func TestReconcileIdempotentSkip(t *testing.T) {
	text := "Nothing to see here."
	mentions := []Mention{
		{Tag: "PERSON", Phrase: "Ada"},
		{Tag: "LOCATION", Phrase: "Rome"},
		{Tag: "PERSON", Phrase: "Nothing"}, // index 0
	}
	first := Reconcile(text, mentions, teiTags())
	second := Reconcile(first, mentions, teiTags())
	assert.Equal(t, text, first)
	assert.Equal(t, text, second)
}

// stripTags removes any "<tag>" / "</tag>" produced by Wrap for the known tags.
func stripTags(s string, tags *TagMap) string {
	for _, v := range tags.Entries() {
		s = strings.ReplaceAll(s, "<"+v+">", "")
		s = strings.ReplaceAll(s, "</"+v+">", "")
	}
	return s
}

func TestReconcileCoverageAndMonotonicity(t *testing.T) {
	text := "On Monday Ada met Grace in Rome, then Ada flew to Paris and Rome again."
	tags := teiTags()

	mentionSets := [][]Mention{
		{
			{Tag: "PERSON", Phrase: "Ada"},
			{Tag: "PERSON", Phrase: "Grace"},
			{Tag: "LOCATION", Phrase: "Rome"},
			{Tag: "PERSON", Phrase: "Ada"},
			{Tag: "LOCATION", Phrase: "Paris"},
			{Tag: "LOCATION", Phrase: "Rome"},
		},
		// out of order and overlapping
		{
			{Tag: "LOCATION", Phrase: "Paris"},
			{Tag: "PERSON", Phrase: "Ada"},
			{Tag: "LOCATION", Phrase: "Paris and Rome"},
			{Tag: "LOCATION", Phrase: "Rome again"},
			{Tag: "LOCATION", Phrase: "ome"},
		},
		{
			{Tag: "MISC", Phrase: "Monday"},
			{Tag: "PERSON", Phrase: "Ada met"},
			{Tag: "PERSON", Phrase: "met Grace"},
			{Tag: "LOCATION", Phrase: "Nowhere"},
			{Tag: "LOCATION", Phrase: "."},
		},
	}

	for i, mentions := range mentionSets {
		out := Reconcile(text, mentions, tags)
		assert.GreaterOrEqual(t, len(out), len(text), "set %d", i)
		assert.Equal(t, text, stripTags(out, tags), "set %d: every character exactly once", i)

		// Replay the placement to check each placed mention ends after the
		// previous one.
		lastEnd := -1
		lastPos := -1
		for _, m := range mentions {
			pos := indexFrom(text, m.Phrase, lastPos)
			if pos <= 0 || pos <= lastPos || m.Phrase == "" {
				continue
			}
			end := pos + len(m.Phrase) - 1
			assert.Greater(t, end, lastEnd, "set %d", i)
			lastEnd, lastPos = end, end
		}
	}
}

func TestIndexFrom(t *testing.T) {
	assert.Equal(t, 0, indexFrom("abc", "a", -1))
	assert.Equal(t, 2, indexFrom("abcab", "c", 2))
	assert.Equal(t, 3, indexFrom("abcab", "a", 1))
	assert.Equal(t, -1, indexFrom("abc", "a", 1))
	assert.Equal(t, -1, indexFrom("abc", "a", 10))
}
