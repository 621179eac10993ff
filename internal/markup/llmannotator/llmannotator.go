// Package llmannotator provides an Annotator backed by an OpenAI-compatible
// chat model (e.g. Ollama with qwen3:4b).
//
// We ask the model for entity phrases verbatim rather than offsets, because
// small models get offsets wrong. markup.Reconcile locates the phrases in the
// original text.
//
// Tags are normalised to upper case (PERSON, LOCATION, ...), so tag maps used
// with these annotators must key on upper-case labels.
package llmannotator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gonkalabs/neam-go/internal/markup"
)

// SystemPrompt instructs the model to list entities as JSON. It is shared by
// every LLM-backed annotator.
const SystemPrompt = `Find the named entities in the text. Return a JSON array of objects, one per entity mention, in the order they appear in the text.

Each object has two fields:
- "tag": one of PERSON, LOCATION, ORGANIZATION, DATE, MISC, written in upper case exactly as listed
- "text": the mention copied EXACTLY as it appears in the text, same spelling, same case, same punctuation

List a mention again every time it occurs. Do not merge, translate, or correct mentions.
Return [] if there are none. Return ONLY the JSON array. No explanation.

Examples:
Input: "Barack Obama visited Paris."
Output: [{"tag":"PERSON","text":"Barack Obama"},{"tag":"LOCATION","text":"Paris"}]

Input: "On March 4 the Senate met. The Senate adjourned."
Output: [{"tag":"DATE","text":"March 4"},{"tag":"ORGANIZATION","text":"Senate"},{"tag":"ORGANIZATION","text":"Senate"}]

Input: "how are you?"
Output: []`

// Annotator calls a chat model to find named entities.
type Annotator struct {
	url   string
	model string
	http  *http.Client
}

var _ markup.Annotator = (*Annotator)(nil)

// New creates an Annotator.
// baseURL is the Ollama (or any OpenAI-compatible) server, e.g. "http://ollama:11434".
func New(baseURL, model string) *Annotator {
	return &Annotator{
		url:   strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		model: model,
		http: &http.Client{
			Timeout: 125 * time.Second,
		},
	}
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	// Hint to disable chain-of-thought thinking (Qwen3 and some others support this).
	// stripThinkBlock handles models that ignore it.
	Think bool `json:"think"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`         // Qwen3 via Ollama
			ReasoningContent string `json:"reasoning_content"` // Qwen3 direct API
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Annotate sends text to the model and returns the mentions it lists.
// It is safe for concurrent use.
func (a *Annotator) Annotate(ctx context.Context, text string) ([]markup.Mention, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	slog.Info("llmannotator: annotating", "url", a.url, "model", a.model, "text_len", len(text))

	reqBody := openAIRequest{
		Model: a.model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt},
			// /no_think is Qwen3's control token to skip thinking and go straight to the answer.
			{Role: "user", Content: "Text to annotate:\n" + text + "\n/no_think"},
		},
		Temperature: 0,
		MaxTokens:   10000,
		Think:       false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llmannotator: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmannotator: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmannotator: model unreachable: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmannotator: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(rawBody) > 512 {
			rawBody = rawBody[:512]
		}
		return nil, fmt.Errorf("llmannotator: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(rawBody)))
	}
	slog.Debug("llmannotator: response body", "body", string(rawBody))

	var oaiResp openAIResponse
	if err := json.Unmarshal(rawBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("llmannotator: decode response: %w", err)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("llmannotator: response has no choices")
	}

	choice := oaiResp.Choices[0]
	msg := choice.Message
	if choice.FinishReason == "length" {
		slog.Warn("llmannotator: response truncated by token limit, increase MaxTokens or shorten the text")
	}

	// Qwen3 via Ollama puts thinking in "reasoning" and the answer in "content".
	// If content is empty the model ran out of tokens before answering; fall
	// back to the reasoning field and dig the JSON array out of it.
	raw := strings.TrimSpace(msg.Content)
	if raw == "" {
		raw = strings.TrimSpace(msg.Reasoning)
		if raw == "" {
			raw = strings.TrimSpace(msg.ReasoningContent)
		}
	}

	mentions, err := ParseMentions(raw)
	if err != nil {
		return nil, fmt.Errorf("llmannotator: %w", err)
	}
	slog.Info("llmannotator: annotated", "mentions", len(mentions))
	return mentions, nil
}

// ParseMentions extracts mentions from a model reply. The reply may wrap the
// JSON array in a <think> block or a code fence. Array elements may be
// {"tag","text"} objects or ["TAG","text"] pairs; elements without text are
// dropped. Tags are trimmed and upper-cased, whatever case the model used.
func ParseMentions(reply string) ([]markup.Mention, error) {
	content := stripThinkBlock(reply)
	content = stripCodeFence(content)
	// Last resort: try to pull a JSON array out of wherever it is in the text.
	content = extractJSONArray(content)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("could not parse model output %q: %w", truncate(content, 200), err)
	}

	mentions := make([]markup.Mention, 0, len(items))
	for _, item := range items {
		var obj struct {
			Tag    string `json:"tag"`
			Label  string `json:"label"`
			Text   string `json:"text"`
			Phrase string `json:"phrase"`
		}
		var m markup.Mention
		if err := json.Unmarshal(item, &obj); err == nil {
			m.Tag = firstNonEmpty(obj.Tag, obj.Label)
			m.Phrase = firstNonEmpty(obj.Text, obj.Phrase)
		} else {
			var pair []string
			if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
				slog.Debug("llmannotator: skipping unrecognised element", "element", string(item))
				continue
			}
			m.Tag, m.Phrase = pair[0], pair[1]
		}
		m.Tag = strings.ToUpper(strings.TrimSpace(m.Tag))
		if m.Phrase == "" {
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// extractJSONArray finds the first [...] substring in s.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "]")
	if end < start {
		return s
	}
	return s[start : end+1]
}

// stripThinkBlock removes Qwen3's <think>...</think> block that appears before
// the actual answer when thinking mode is active.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		// Unclosed block - drop everything from <think> onwards.
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
