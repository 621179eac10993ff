// Package gazetteer provides a dictionary Annotator: it reports every listed
// phrase found in the text, leftmost-longest and without overlaps. It needs no
// model or network and is deterministic, which makes it the annotator of
// choice for offline runs and fixtures.
package gazetteer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-yaml"

	"github.com/gonkalabs/neam-go/internal/markup"
)

// File is the on-disk YAML layout.
//
//	word_boundaries: true
//	entries:
//	  PERSON: [Barack Obama, Ada Lovelace]
//	  LOCATION: [Paris]
type File struct {
	WordBoundaries *bool               `yaml:"word_boundaries"`
	Entries        map[string][]string `yaml:"entries"`
}

type entry struct {
	tag    string
	phrase string
}

// Gazetteer is safe for concurrent use.
type Gazetteer struct {
	entries        []entry
	wordBoundaries bool
}

var _ markup.Annotator = (*Gazetteer)(nil)

// New builds a Gazetteer from tag → phrases. With wordBoundaries set a match
// must not be preceded or followed by a letter or digit.
func New(entries map[string][]string, wordBoundaries bool) *Gazetteer {
	g := &Gazetteer{wordBoundaries: wordBoundaries}

	tags := make([]string, 0, len(entries))
	for tag := range entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	seen := make(map[string]bool)
	for _, tag := range tags {
		for _, phrase := range entries[tag] {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" || seen[phrase] {
				continue
			}
			seen[phrase] = true
			g.entries = append(g.entries, entry{tag: tag, phrase: phrase})
		}
	}
	return g
}

// Parse reads a Gazetteer from YAML.
func Parse(data []byte) (*Gazetteer, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("gazetteer: parse: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("gazetteer: no entries")
	}
	wb := true
	if f.WordBoundaries != nil {
		wb = *f.WordBoundaries
	}
	return New(f.Entries, wb), nil
}

// Load reads a Gazetteer from a YAML file.
func Load(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: %w", err)
	}
	return Parse(data)
}

// Len returns the number of distinct phrases.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

type match struct {
	start, end int
	tag        string
}

// Annotate returns the listed phrases found in text, in document order.
func (g *Gazetteer) Annotate(_ context.Context, text string) ([]markup.Mention, error) {
	var matches []match
	for _, e := range g.entries {
		for from := 0; from < len(text); {
			idx := strings.Index(text[from:], e.phrase)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(e.phrase)
			if !g.wordBoundaries || atBoundary(text, start, end) {
				matches = append(matches, match{start: start, end: end, tag: e.tag})
			}
			_, size := utf8.DecodeRuneInString(text[start:])
			from = start + size
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	mentions := make([]markup.Mention, 0, len(matches))
	lastEnd := 0
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		mentions = append(mentions, markup.Mention{Tag: m.tag, Phrase: text[m.start:m.end]})
		lastEnd = m.end
	}
	return mentions, nil
}

// atBoundary reports whether text[start:end] is not glued to a surrounding
// letter or digit.
func atBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
