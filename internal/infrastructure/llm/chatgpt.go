package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"LiteratureDigest/internal/config"
	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// ChatGPTTranslator implements ports.Translator backed by OpenAI-compatible APIs.
type ChatGPTTranslator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Translator = (*ChatGPTTranslator)(nil)

// NewChatGPTTranslator builds a translator from configuration.
func NewChatGPTTranslator(cfg config.TranslatorConfig) *ChatGPTTranslator {
	return &ChatGPTTranslator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate sends the abstract as the user message and returns the reply.
func (c *ChatGPTTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt translator is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt translator misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: c.prompt(sourceLang, targetLang)},
			{Role: "user", Content: text},
		},
		"temperature": 0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: translate: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: chatgpt error %s: %s", domain.ErrFetch, resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}

	translated := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("chatgpt returned an empty translation")
	}
	return translated, nil
}

func (c *ChatGPTTranslator) prompt(sourceLang, targetLang string) string {
	if p := strings.TrimSpace(c.systemPrompt); p != "" {
		return p
	}
	return fmt.Sprintf(
		"You translate scientific abstracts from %s to %s. Keep gene, protein and drug names unchanged. Reply with the translation only.",
		languageName(sourceLang), languageName(targetLang),
	)
}

func languageName(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return tag
}
