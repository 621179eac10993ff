package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCharMap folds typographic quotes to ASCII and drops byte-order marks.
// A negative value removes the rune.
var DefaultCharMap = map[rune]rune{
	'\u2018': '\'',
	'\u2019': '\'',
	'\u201c': '"',
	'\u201d': '"',
	'\ufeff': -1,
}

// ASCIIifier composes text to NFC and then replaces or removes runes per its
// map.
type ASCIIifier struct {
	t transform.Transformer
}

// NewASCIIifier creates an ASCIIifier. A nil map uses DefaultCharMap.
func NewASCIIifier(charMap map[rune]rune) *ASCIIifier {
	if charMap == nil {
		charMap = DefaultCharMap
	}
	m := make(map[rune]rune, len(charMap))
	for k, v := range charMap {
		m[k] = v
	}

	drop := runes.Predicate(func(r rune) bool {
		v, ok := m[r]
		return ok && v < 0
	})
	replace := func(r rune) rune {
		if v, ok := m[r]; ok && v >= 0 {
			return v
		}
		return r
	}
	return &ASCIIifier{t: transform.Chain(norm.NFC, runes.Remove(drop), runes.Map(replace))}
}

// Process implements Processor. On a transform error the text is returned
// unchanged.
func (a *ASCIIifier) Process(text string) string {
	out, _, err := transform.String(a.t, text)
	if err != nil {
		return text
	}
	return out
}

var pageRe = regexp.MustCompile(`(?i)page (\d+)`)

// PageReplacer turns "page 12" into a TEI page break <pb n="12"/>.
type PageReplacer struct{}

// Process implements Processor.
func (PageReplacer) Process(text string) string {
	return pageRe.ReplaceAllString(text, `<pb n="${1}"/>`)
}

var sicRe = regexp.MustCompile(`\[sic; (\S+)\]`)

// SicReplacer turns "[sic; word]" into <sic>word</sic>.
type SicReplacer struct{}

// Process implements Processor.
func (SicReplacer) Process(text string) string {
	return sicRe.ReplaceAllString(text, `<sic>${1}</sic>`)
}

var (
	afterOpenTagRe   = regexp.MustCompile(`(<[^/>]*>) +`)
	beforeCloseTagRe = regexp.MustCompile(` +</`)
	spaceRunRe       = regexp.MustCompile(` {2,}`)
)

// SpaceNormalizer joins lines, strips spaces just inside elements and
// collapses runs of spaces.
type SpaceNormalizer struct{}

// Process implements Processor.
func (SpaceNormalizer) Process(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = afterOpenTagRe.ReplaceAllString(text, "${1}")
	text = beforeCloseTagRe.ReplaceAllString(text, "</")
	return spaceRunRe.ReplaceAllString(text, " ")
}

var (
	possessiveSRe = regexp.MustCompile(`(<[^/>]+>[^<]+)(<[^>]+>)'s`)
	possessiveRe  = regexp.MustCompile(`(<[^/>]+>[^<]*s)(<[^>]+>)'`)
)

// PossessionFixer moves a possessive marker that follows an element inside
// it: <persName>Ada</persName>'s becomes <persName>Ada's</persName>, and
// <persName>James</persName>' becomes <persName>James'</persName>.
type PossessionFixer struct{}

// Process implements Processor.
func (PossessionFixer) Process(text string) string {
	text = possessiveSRe.ReplaceAllString(text, "${1}'s${2}")

	// An element directly preceded by a quote is quoted, not possessive.
	var b strings.Builder
	last := 0
	for _, loc := range possessiveRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && text[start-1] == '\'' {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(text[loc[2]:loc[3]])
		b.WriteByte('\'')
		b.WriteString(text[loc[4]:loc[5]])
		last = end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// DefaultTitleWords are the honorifics TagExpander pulls into a name.
var DefaultTitleWords = []string{"Mr.", "Mrs.", "Ms.", "Miss", "Dr.", "Rev.", "Capt.", "Gen.", "Col.", "Sir", "Lady", "Lord"}

// DefaultExpandTags are the elements TagExpander extends.
var DefaultExpandTags = []string{"persName"}

var spaceRe = regexp.MustCompile(` +`)

// TagExpander moves words that directly precede an element into it, so
// "Dr. <persName>Watson</persName>" becomes "<persName>Dr. Watson</persName>".
// Words are matched case-insensitively.
type TagExpander struct {
	re *regexp.Regexp
}

// NewTagExpander creates a TagExpander for the given element names and words.
func NewTagExpander(tags, words []string) *TagExpander {
	quote := func(in []string) string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = regexp.QuoteMeta(s)
		}
		return strings.Join(out, "|")
	}
	re := regexp.MustCompile(`(?i)((?:(?:` + quote(words) + `)\s+)+)<(` + quote(tags) + `)>`)
	return &TagExpander{re: re}
}

// Process implements Processor.
func (e *TagExpander) Process(text string) string {
	return e.re.ReplaceAllStringFunc(text, func(match string) string {
		groups := e.re.FindStringSubmatch(match)
		words := spaceRe.ReplaceAllString(strings.TrimSpace(groups[1]), " ")
		return "<" + groups[2] + ">" + words + " "
	})
}
