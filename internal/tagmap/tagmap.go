// Package tagmap loads the table that maps annotator labels to output tags.
// Java-style .properties files (the format CoreNLP deployments ship), flat
// YAML maps and flat JSON objects are supported.
package tagmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/magiconair/properties"

	"github.com/gonkalabs/neam-go/internal/markup"
)

// ErrEmptyEntry is returned when a key or value is blank.
var ErrEmptyEntry = errors.New("tagmap: empty key or value")

// Supported formats.
const (
	FormatProperties = "properties"
	FormatYAML       = "yaml"
	FormatJSON       = "json"
)

// defaultTags maps CoreNLP entity classes to TEI elements.
var defaultTags = map[string]string{
	"PERSON":            "persName",
	"LOCATION":          "placeName",
	"CITY":              "placeName",
	"COUNTRY":           "placeName",
	"STATE_OR_PROVINCE": "placeName",
	"ORGANIZATION":      "orgName",
	"DATE":              "date",
	"TIME":              "time",
}

// Default returns the built-in CoreNLP → TEI mapping.
func Default() *markup.TagMap {
	return markup.NewTagMap(defaultTags)
}

// Load reads a tag map, choosing the format from the file extension.
func Load(path string) (*markup.TagMap, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagmap: %w", err)
	}
	tm, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return tm, nil
}

// Parse decodes a tag map in the given format.
func Parse(data []byte, format string) (*markup.TagMap, error) {
	var raw map[string]string
	switch format {
	case FormatProperties:
		p, err := properties.Load(data, properties.UTF8)
		if err != nil {
			return nil, fmt.Errorf("tagmap: parse properties: %w", err)
		}
		raw = p.Map()
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("tagmap: parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("tagmap: parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("tagmap: unsupported format %q", format)
	}

	clean := make(map[string]string, len(raw))
	for k, v := range raw {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			return nil, fmt.Errorf("%w: %q=%q", ErrEmptyEntry, k, v)
		}
		clean[k] = v
	}
	return markup.NewTagMap(clean), nil
}

func formatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".properties", ".props":
		return FormatProperties, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("tagmap: cannot tell format of %q", path)
}
