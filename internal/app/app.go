// Package app assembles the markup service from configuration: tag map,
// annotation source, cache, text pipelines and the optional signer.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gonkalabs/neam-go/internal/attest"
	"github.com/gonkalabs/neam-go/internal/config"
	"github.com/gonkalabs/neam-go/internal/markup"
	"github.com/gonkalabs/neam-go/internal/markup/gazetteer"
	"github.com/gonkalabs/neam-go/internal/markup/gemini"
	"github.com/gonkalabs/neam-go/internal/markup/llmannotator"
	"github.com/gonkalabs/neam-go/internal/markup/ner"
	"github.com/gonkalabs/neam-go/internal/tagmap"
	"github.com/gonkalabs/neam-go/internal/textproc"
)

// App renders text to markup.
type App struct {
	classifier *markup.Classifier
	pre        []string
	post       []string
	procOpts   textproc.Options
	signer     *attest.Signer // nil when signing is disabled
}

// New creates an App. pre runs on the text before annotation, post on the
// markup. Both are processor names as accepted by textproc.Build and are
// validated here.
func New(classifier *markup.Classifier, pre, post []string, opts textproc.Options, signer *attest.Signer) (*App, error) {
	for _, names := range [][]string{pre, post} {
		if _, err := textproc.Build(names, opts); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return &App{
		classifier: classifier,
		pre:        pre,
		post:       post,
		procOpts:   opts,
		signer:     signer,
	}, nil
}

// Build wires an App from cfg.
func Build(ctx context.Context, cfg *config.Cfg) (*App, error) {
	tags := tagmap.Default()
	if cfg.Tags != "" {
		var err error
		if tags, err = tagmap.Load(cfg.Tags); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Info("markup: tag map loaded", "path", cfg.Tags, "entries", tags.Len())
	}

	annotator, err := newAnnotator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		annotator = markup.NewCachedAnnotator(annotator, cfg.CacheSize)
		slog.Info("markup: annotation cache enabled", "size", cfg.CacheSize)
	}

	var opts []markup.Option
	if cfg.AcceptLeading {
		opts = append(opts, markup.WithLeadingMatches())
	}
	classifier := markup.New(annotator, tags, opts...)

	var signer *attest.Signer
	if cfg.SigningKey != "" {
		if signer, err = attest.New(cfg.SigningKey); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Info("attest: signing enabled", "address", signer.Address())
	}

	procOpts := textproc.Options{
		Author: cfg.JournalAuthor,
		Year:   cfg.JournalYear,
		Month:  cfg.JournalMonth,
		Day:    cfg.JournalDay,
	}
	return New(classifier, cfg.PrePipeline, cfg.Pipeline, procOpts, signer)
}

func newAnnotator(ctx context.Context, cfg *config.Cfg) (markup.Annotator, error) {
	switch cfg.Annotator {
	case config.AnnotatorNER:
		slog.Info("markup: NER annotator", "urls", cfg.NERURLs)
		return ner.New(cfg.NERURLs...), nil
	case config.AnnotatorLLM:
		slog.Info("markup: LLM annotator", "url", cfg.LLMURL, "model", cfg.LLMModel)
		return llmannotator.New(cfg.LLMURL, cfg.LLMModel), nil
	case config.AnnotatorGemini:
		a, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Info("markup: Gemini annotator", "model", cfg.GeminiModel)
		return a, nil
	case config.AnnotatorGazetteer:
		g, err := gazetteer.Load(cfg.Gazetteer)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		slog.Info("markup: gazetteer annotator", "path", cfg.Gazetteer, "phrases", g.Len())
		return g, nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownAnnotator, cfg.Annotator)
	}
}

// pipeline builds a fresh pipeline per call; processors such as the
// journal shaper carry state that must not leak between documents.
func (a *App) pipeline(names []string) *textproc.Pipeline {
	p, err := textproc.Build(names, a.procOpts)
	if err != nil {
		// Names were validated in New.
		panic(err)
	}
	return p
}

// Tags returns the tag map in use.
func (a *App) Tags() *markup.TagMap {
	return a.classifier.Tags()
}

// Signer returns the signer, or nil when signing is disabled.
func (a *App) Signer() *attest.Signer {
	return a.signer
}

// Annotate runs the pre pipeline and the annotator, returning the text the
// mentions refer to.
func (a *App) Annotate(ctx context.Context, text string) (markup.Document, error) {
	return a.classifier.Annotate(ctx, a.pipeline(a.pre).Run(text))
}

// Render runs the pre pipeline, annotates and reconciles, then runs the
// post pipeline. Nothing is rendered when the annotator fails.
func (a *App) Render(ctx context.Context, text string) (string, error) {
	doc, err := a.Annotate(ctx, text)
	if err != nil {
		return "", err
	}
	return a.RenderDocument(doc), nil
}

// RenderDocument reconciles an already annotated document and runs the
// post pipeline. The pre pipeline is not applied: the mentions refer to
// doc.Text as given.
func (a *App) RenderDocument(doc markup.Document) string {
	return a.pipeline(a.post).Run(a.classifier.ClassifyDocument(doc))
}

// Sign signs out. ok is false when signing is disabled.
func (a *App) Sign(out string) (sig, address string, ok bool, err error) {
	if a.signer == nil {
		return "", "", false, nil
	}
	sig, err = a.signer.Sign([]byte(out))
	if err != nil {
		return "", "", false, err
	}
	return sig, a.signer.Address(), true, nil
}
