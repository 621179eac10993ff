// Package textproc holds the text clean-up steps that run before and after
// markup: character folding, TEI shortcuts for page breaks and [sic]
// notes, whitespace and possessive fixes, and journal shaping.
//
// Processors are chained in a Pipeline; each receives the previous one's
// output.
package textproc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProcessor is returned by Build for a name it does not know.
var ErrUnknownProcessor = errors.New("textproc: unknown processor")

// Processor transforms text.
type Processor interface {
	Process(text string) string
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(text string) string

// Process calls f(text).
func (f ProcessorFunc) Process(text string) string {
	return f(text)
}

// Pipeline runs processors in order. Processors may keep state between
// calls (JournalShaper does), so a Pipeline is not safe for concurrent use
// unless all of its processors are.
type Pipeline struct {
	processors []Processor
}

// NewPipeline creates a Pipeline from processors.
func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Add appends a processor to the end of the pipeline.
func (p *Pipeline) Add(proc Processor) {
	p.processors = append(p.processors, proc)
}

// Len returns the number of processors.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.processors)
}

// Run passes text through every processor. A nil Pipeline returns text.
func (p *Pipeline) Run(text string) string {
	if p == nil {
		return text
	}
	for _, proc := range p.processors {
		text = proc.Process(text)
	}
	return text
}

// Options parameterises the processors Build creates.
type Options struct {
	// JournalShaper
	Author string
	Year   int
	Month  int
	Day    int

	// TagExpander. Empty slices use DefaultTitleWords / DefaultExpandTags.
	TitleWords []string
	ExpandTags []string
}

// Names lists the processor names Build accepts.
var Names = []string{"ascii", "page", "sic", "space", "possession", "expand", "journal"}

// Build creates a Pipeline from processor names, in order.
func Build(names []string, opts Options) (*Pipeline, error) {
	p := NewPipeline()
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "ascii":
			p.Add(NewASCIIifier(nil))
		case "page":
			p.Add(PageReplacer{})
		case "sic":
			p.Add(SicReplacer{})
		case "space":
			p.Add(SpaceNormalizer{})
		case "possession":
			p.Add(PossessionFixer{})
		case "expand":
			words, tags := opts.TitleWords, opts.ExpandTags
			if len(words) == 0 {
				words = DefaultTitleWords
			}
			if len(tags) == 0 {
				tags = DefaultExpandTags
			}
			p.Add(NewTagExpander(tags, words))
		case "journal":
			p.Add(NewJournalShaper(opts.Author, opts.Year, opts.Month, opts.Day))
		default:
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownProcessor, raw, strings.Join(Names, ", "))
		}
	}
	return p, nil
}
