package textproc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	titleOpen  = "<title>"
	titleClose = "</title>"
)

var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// entryDateRe finds "month day[ordinal] [year]" in a lower-cased title, e.g.
// "tues. march 3d 1857" or "jan. 12th".
var entryDateRe = regexp.MustCompile(`(` + strings.Join(months, "|") + `)(?:\.|[a-z]+)? +(\d+)(?:st|d|nd|rd|th)?\.?(?: +(\d+)\.?)?`)

// JournalShaper shapes a journal marked up with <title> elements into TEI
// entries:
//
//	<body><div xml:id="AUTHOR18570303" type="Entry"><p><title>...</title></p><p>...</p></div>...</body>
//
// Each entry id is the author id followed by the entry date. Titles rarely
// carry every date component, so the shaper tracks the current date across
// entries (and across calls): a day earlier than the previous one moves to
// the next month, a month earlier than the previous one moves to the next
// year. JournalShaper is not safe for concurrent use.
type JournalShaper struct {
	author string
	year   int
	month  int
	day    int
}

// NewJournalShaper creates a JournalShaper starting at the given date.
// Month and day default to 1.
func NewJournalShaper(author string, year, month, day int) *JournalShaper {
	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 {
		day = 1
	}
	return &JournalShaper{author: author, year: year, month: month, day: day}
}

// Process implements Processor.
func (j *JournalShaper) Process(text string) string {
	var b strings.Builder
	b.WriteString("<body>")

	var starts []int
	for from := 0; ; {
		idx := strings.Index(text[from:], titleOpen)
		if idx < 0 {
			break
		}
		starts = append(starts, from+idx)
		from += idx + len(titleOpen)
	}

	if len(starts) == 0 {
		b.WriteString(text)
	} else {
		b.WriteString(text[:starts[0]])
		for i, start := range starts {
			end := len(text)
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			b.WriteString(j.entry(text[start:end]))
		}
	}

	b.WriteString("</body>")
	return b.String()
}

// entry shapes one "<title>...</title>body" segment. A segment without a
// closing title tag is returned unchanged.
func (j *JournalShaper) entry(segment string) string {
	rest := segment[len(titleOpen):]
	closeIdx := strings.Index(rest, titleClose)
	if closeIdx < 0 {
		return segment
	}
	title := rest[:closeIdx]
	body := rest[closeIdx+len(titleClose):]

	return `<div xml:id="` + j.code(title) + `" type="Entry"><p>` +
		titleOpen + title + titleClose + `</p><p>` + body + `</p></div>`
}

// code advances the tracked date using whatever the title provides and
// returns the entry id.
func (j *JournalShaper) code(title string) string {
	if m := entryDateRe.FindStringSubmatch(strings.ToLower(title)); m != nil {
		if day, err := strconv.Atoi(m[2]); err == nil {
			if day < j.day {
				j.nextMonth()
			}
			j.day = day
		}

		for i, name := range months {
			if m[1] == name {
				month := i + 1
				if month < j.month {
					j.year++
				}
				j.month = month
				break
			}
		}

		if m[3] != "" {
			if year, err := strconv.Atoi(m[3]); err == nil {
				j.year = year
			}
		}
	}

	return fmt.Sprintf("%s%d%02d%02d", j.author, j.year, j.month, j.day)
}

func (j *JournalShaper) nextMonth() {
	j.month++
	if j.month > 12 {
		j.month = 1
		j.year++
	}
}
