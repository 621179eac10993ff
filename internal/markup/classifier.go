package markup

import (
	"context"
	"fmt"
	"log/slog"
)

// Annotator finds named-entity mentions in a text. Mentions are returned in
// the order the annotator believes they occur. Implementations document
// whether they are safe for concurrent use.
type Annotator interface {
	Annotate(ctx context.Context, text string) ([]Mention, error)
}

// Document is a text together with the mentions already found in it.
type Document struct {
	Text     string    `json:"text"`
	Mentions []Mention `json:"mentions"`
}

// Classifier annotates text and renders the result as markup.
// It holds no mutable state; it is safe for concurrent use whenever its
// Annotator is.
type Classifier struct {
	annotator     Annotator
	tags          *TagMap
	acceptLeading bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLeadingMatches makes the Classifier place mentions found at the very
// start of the text. By default they are dropped.
func WithLeadingMatches() Option {
	return func(c *Classifier) { c.acceptLeading = true }
}

// New creates a Classifier that uses annotator to find mentions and tags to
// resolve and allow-list their labels.
func New(annotator Annotator, tags *TagMap, opts ...Option) *Classifier {
	c := &Classifier{annotator: annotator, tags: tags}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tags returns the classifier's tag map.
func (c *Classifier) Tags() *TagMap {
	return c.tags
}

// Annotate runs the annotator once over text.
func (c *Classifier) Annotate(ctx context.Context, text string) (Document, error) {
	mentions, err := c.annotator.Annotate(ctx, text)
	if err != nil {
		return Document{}, fmt.Errorf("markup: annotate: %w", err)
	}
	return Document{Text: text, Mentions: mentions}, nil
}

// Classify annotates text and returns it marked up. Annotator errors are
// returned unchanged apart from wrapping; there is no retry.
func (c *Classifier) Classify(ctx context.Context, text string) (string, error) {
	doc, err := c.Annotate(ctx, text)
	if err != nil {
		return "", err
	}
	return c.ClassifyDocument(doc), nil
}

// ClassifyDocument renders an already annotated document.
func (c *Classifier) ClassifyDocument(doc Document) string {
	out, placed := reconcile(doc.Text, doc.Mentions, c.tags, c.acceptLeading)
	if skipped := len(doc.Mentions) - placed; skipped > 0 {
		slog.Debug("markup: mentions not located", "placed", placed, "skipped", skipped)
	}
	return out
}
