// Package markup renders text annotated with named-entity mentions into
// TEI-style markup. Annotators report mentions as (tag, phrase) pairs without
// offsets, so Reconcile locates each phrase in the original text itself,
// copies everything between entities verbatim and wraps only the entity
// phrases whose tag is allow-listed.
//
// Usage:
//
//	tags := markup.NewTagMap(map[string]string{"PERSON": "persName"})
//	c := markup.New(annotator, tags)
//	out, err := c.Classify(ctx, text)
package markup

import (
	"fmt"
	"strings"
)

// Mention is one entity reported by an Annotator.
type Mention struct {
	Tag    string `json:"tag"`    // raw label, e.g. "PERSON"
	Phrase string `json:"phrase"` // surface text the annotator claims to span
}

// TagMap maps raw annotator labels to output tag names. Its values double as
// the allow-list: a resolved tag is only rendered as markup when it is one of
// the map's values. A TagMap is immutable once built and safe to share.
type TagMap struct {
	tags    map[string]string
	allowed map[string]struct{}
}

// NewTagMap copies m into a new TagMap.
func NewTagMap(m map[string]string) *TagMap {
	tm := &TagMap{
		tags:    make(map[string]string, len(m)),
		allowed: make(map[string]struct{}, len(m)),
	}
	for raw, out := range m {
		tm.tags[raw] = out
		tm.allowed[out] = struct{}{}
	}
	return tm
}

// Resolve returns the mapped tag for raw, or raw itself when it has no entry.
func (tm *TagMap) Resolve(raw string) string {
	if tm == nil {
		return raw
	}
	if out, ok := tm.tags[raw]; ok {
		return out
	}
	return raw
}

// Allowed reports whether tag is one of the map's values.
func (tm *TagMap) Allowed(tag string) bool {
	if tm == nil {
		return false
	}
	_, ok := tm.allowed[tag]
	return ok
}

// Len returns the number of entries.
func (tm *TagMap) Len() int {
	if tm == nil {
		return 0
	}
	return len(tm.tags)
}

// Entries returns a copy of the raw → output mapping.
func (tm *TagMap) Entries() map[string]string {
	out := make(map[string]string, tm.Len())
	if tm == nil {
		return out
	}
	for k, v := range tm.tags {
		out[k] = v
	}
	return out
}

// Wrap returns content enclosed in <tag>...</tag>. Nothing is escaped.
func Wrap(content, tag string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, content, tag)
}

// Reconcile walks mentions in order, locating each phrase in text no earlier
// than the last character already emitted, and returns text with every placed
// allow-listed phrase wrapped in its resolved tag.
//
// A mention is dropped without trace when its phrase cannot be found, when it
// is found at index 0, or when the only occurrence would overlap text already
// emitted. Reconcile never fails.
func Reconcile(text string, mentions []Mention, tags *TagMap) string {
	out, _ := reconcile(text, mentions, tags, false)
	return out
}

// ReconcileLeading is Reconcile except that a phrase found at index 0 is
// placed like any other.
func ReconcileLeading(text string, mentions []Mention, tags *TagMap) string {
	out, _ := reconcile(text, mentions, tags, true)
	return out
}

// reconcile reports how many mentions were placed alongside the output.
func reconcile(text string, mentions []Mention, tags *TagMap, acceptLeading bool) (string, int) {
	var b strings.Builder
	b.Grow(len(text))

	// lastPos is the byte index of the last character written to b.
	lastPos := -1
	placed := 0

	for _, m := range mentions {
		tag := tags.Resolve(m.Tag)

		nextPos := indexFrom(text, m.Phrase, lastPos)

		// Annotators sometimes report phrases that are not in the text, or
		// not where we are looking.
		if nextPos < 0 || nextPos <= lastPos || m.Phrase == "" {
			continue
		}
		if nextPos == 0 && !acceptLeading {
			continue
		}

		b.WriteString(text[lastPos+1 : nextPos])
		lastPos = nextPos + len(m.Phrase) - 1

		if tags.Allowed(tag) {
			b.WriteString(Wrap(m.Phrase, tag))
		} else {
			b.WriteString(m.Phrase)
		}
		placed++
	}

	b.WriteString(text[lastPos+1:])
	return b.String(), placed
}

// indexFrom returns the index of the first occurrence of sub in s at or after
// from, or -1. A negative from searches the whole string.
func indexFrom(s, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		return -1
	}
	idx := strings.Index(s[from:], sub)
	if idx < 0 {
		return -1
	}
	return from + idx
}
