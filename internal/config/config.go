package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrUnknownAnnotator is returned when the annotator key names no known
// annotator.
var ErrUnknownAnnotator = errors.New("config: unknown annotator")

// Annotator names.
const (
	AnnotatorNER       = "ner"
	AnnotatorLLM       = "llm"
	AnnotatorGemini    = "gemini"
	AnnotatorGazetteer = "gazetteer"
)

// Annotators lists the accepted annotator names.
var Annotators = []string{AnnotatorNER, AnnotatorLLM, AnnotatorGemini, AnnotatorGazetteer}

// EnvPrefix is prepended to every key when read from the environment:
// ner.urls is read from NEAM_NER_URLS.
const EnvPrefix = "NEAM"

// Cfg holds all runtime configuration.
type Cfg struct {
	// Server
	ListenAddr string // e.g. :8080

	// Tags is the tag-map file (.properties, .yaml or .json). Empty uses
	// the built-in CoreNLP to TEI map.
	Tags string

	// Annotator selects the annotation source: ner, llm, gemini or gazetteer.
	Annotator string

	// NER sidecar, rotated round-robin when more than one is given.
	NERURLs []string

	// OpenAI-compatible chat model
	LLMURL   string // e.g. http://ollama:11434
	LLMModel string

	// Google Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Gazetteer is the dictionary file for the gazetteer annotator.
	Gazetteer string

	// CacheSize bounds the annotation cache. 0 disables it.
	CacheSize int

	// Text processors run before annotation and after markup, by name.
	PrePipeline []string
	Pipeline    []string

	// JournalShaper start date and author id.
	JournalAuthor string
	JournalYear   int
	JournalMonth  int
	JournalDay    int

	// AcceptLeading also wraps a phrase found at the very start of the text.
	AcceptLeading bool

	// SigningKey is a hex secp256k1 key; when set, rendered markup is signed.
	SigningKey string

	LogLevel string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("tags", "")
	v.SetDefault("annotator", AnnotatorNER)
	v.SetDefault("ner.urls", "http://localhost:8001")
	v.SetDefault("llm.url", "http://localhost:11434")
	v.SetDefault("llm.model", "qwen2.5:7b-instruct")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gazetteer", "")
	v.SetDefault("cache_size", 256)
	v.SetDefault("pre_pipeline", "")
	v.SetDefault("pipeline", "")
	v.SetDefault("journal.author", "")
	v.SetDefault("journal.year", 0)
	v.SetDefault("journal.month", 1)
	v.SetDefault("journal.day", 1)
	v.SetDefault("accept_leading", false)
	v.SetDefault("signing_key", "")
	v.SetDefault("log_level", "info")
}

// NewViper returns a viper instance reading NEAM_* environment variables
// and, when configFile is set, that file; otherwise an optional .neam.yaml
// in the working or home directory.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".neam")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfig reads v's config file. A missing default .neam.yaml is not an
// error; a missing explicitly named file is.
func ReadConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
}

// Load reads .env (if present) and returns the configuration resolved by v.
func Load(v *viper.Viper) (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	cfg := &Cfg{
		ListenAddr:    strings.TrimSpace(v.GetString("listen_addr")),
		Tags:          strings.TrimSpace(v.GetString("tags")),
		Annotator:     strings.ToLower(strings.TrimSpace(v.GetString("annotator"))),
		NERURLs:       listValue(v, "ner.urls"),
		LLMURL:        strings.TrimRight(strings.TrimSpace(v.GetString("llm.url")), "/"),
		LLMModel:      strings.TrimSpace(v.GetString("llm.model")),
		GeminiAPIKey:  strings.TrimSpace(v.GetString("gemini.api_key")),
		GeminiModel:   strings.TrimSpace(v.GetString("gemini.model")),
		Gazetteer:     strings.TrimSpace(v.GetString("gazetteer")),
		CacheSize:     v.GetInt("cache_size"),
		PrePipeline:   listValue(v, "pre_pipeline"),
		Pipeline:      listValue(v, "pipeline"),
		JournalAuthor: strings.TrimSpace(v.GetString("journal.author")),
		JournalYear:   v.GetInt("journal.year"),
		JournalMonth:  v.GetInt("journal.month"),
		JournalDay:    v.GetInt("journal.day"),
		AcceptLeading: v.GetBool("accept_leading"),
		SigningKey:    strings.TrimSpace(v.GetString("signing_key")),
		LogLevel:      strings.TrimSpace(v.GetString("log_level")),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	} else if !strings.Contains(cfg.ListenAddr, ":") {
		// Bare port, as PORT=8080 would be given.
		cfg.ListenAddr = ":" + cfg.ListenAddr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Cfg) validate() error {
	switch c.Annotator {
	case AnnotatorNER:
		if len(c.NERURLs) == 0 {
			return fmt.Errorf("config: ner.urls must list at least one URL")
		}
	case AnnotatorLLM:
		if c.LLMURL == "" || c.LLMModel == "" {
			return fmt.Errorf("config: llm.url and llm.model are required for the llm annotator")
		}
	case AnnotatorGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config: gemini.api_key is required for the gemini annotator")
		}
	case AnnotatorGazetteer:
		if c.Gazetteer == "" {
			return fmt.Errorf("config: gazetteer file is required for the gazetteer annotator")
		}
	default:
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownAnnotator, c.Annotator, strings.Join(Annotators, ", "))
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("config: cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// listValue reads key either as a YAML list or as a comma-separated string
// (the environment form).
func listValue(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case []string:
		return splitList(strings.Join(raw, ","))
	case []any:
		parts := make([]string, 0, len(raw))
		for _, p := range raw {
			parts = append(parts, fmt.Sprint(p))
		}
		return splitList(strings.Join(parts, ","))
	default:
		return splitList(v.GetString(key))
	}
}

// splitList parses "a, b,,c" into [a b c].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
