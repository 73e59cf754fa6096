// Package translate holds HTTP and local translation backends.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// LibreTranslate talks to a LibreTranslate-compatible /translate endpoint.
type LibreTranslate struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Translator = (*LibreTranslate)(nil)

// NewLibreTranslate creates a reusable HTTP client.
func NewLibreTranslate(endpoint, apiKey string) *LibreTranslate {
	return &LibreTranslate{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Translate posts the text and returns translatedText.
func (c *LibreTranslate) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	payload := map[string]any{
		"q":      text,
		"source": libreCode(sourceLang),
		"target": libreCode(targetLang),
		"format": "text",
	}
	if c.apiKey != "" {
		payload["api_key"] = c.apiKey
	}

	var resp struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error"`
	}
	if err := c.post(ctx, "/translate", payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: libretranslate: %s", domain.ErrFetch, resp.Error)
	}
	if strings.TrimSpace(resp.TranslatedText) == "" {
		return "", fmt.Errorf("libretranslate returned an empty translation")
	}

	return resp.TranslatedText, nil
}

// libreCode maps BCP 47 tags onto LibreTranslate's codes ("zh-CN" -> "zh").
func libreCode(tag string) string {
	tag = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "_", "-")
	switch tag {
	case "zh-tw", "zh-hant":
		return "zt"
	}
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

func (c *LibreTranslate) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", domain.ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("%w: unexpected status %s, close body: %v", domain.ErrFetch, resp.Status, closeErr)
		}
		return fmt.Errorf("%w: unexpected status %s", domain.ErrFetch, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
