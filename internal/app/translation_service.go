package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"agroai-backend/internal/config"
)

// TranslationService proxies the frontend's English locale file through the
// Azure Translator API, rebuilding the key->text map in the target language.
type TranslationService struct {
	cfg        config.TranslatorConfig
	httpClient *http.Client
}

func NewTranslationService(cfg config.TranslatorConfig) *TranslationService {
	return &TranslationService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *TranslationService) Translate(ctx context.Context, lang string) (map[string]string, error) {
	if s.cfg.Key == "" || s.cfg.Region == "" {
		return nil, ErrNotConfigured
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return nil, ErrInvalidInput
	}

	keys, texts, err := s.loadSource()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	translated, err := s.callAzure(ctx, lang, texts)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(keys) {
		return nil, fmt.Errorf("translator returned %d results for %d texts", len(translated), len(keys))
	}

	result := make(map[string]string, len(keys))
	for i, key := range keys {
		result[key] = translated[i]
	}
	return result, nil
}

// loadSource reads the English locale file. Keys and texts are returned as
// aligned slices so the response can be paired back positionally.
func (s *TranslationService) loadSource() ([]string, []string, error) {
	raw, err := os.ReadFile(s.cfg.SourceFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read translation source failed: %w", err)
	}

	var source map[string]string
	if err := json.Unmarshal(raw, &source); err != nil {
		return nil, nil, fmt.Errorf("parse translation source failed: %w", err)
	}

	keys := make([]string, 0, len(source))
	texts := make([]string, 0, len(source))
	for key, text := range source {
		keys = append(keys, key)
		texts = append(texts, text)
	}
	return keys, texts, nil
}

func (s *TranslationService) callAzure(ctx context.Context, lang string, texts []string) ([]string, error) {
	type textItem struct {
		Text string `json:"Text"`
	}
	items := make([]textItem, len(texts))
	for i, text := range texts {
		items[i] = textItem{Text: text}
	}
	bodyBytes, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal translate request failed: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.Endpoint, "/") + "/translate?" + url.Values{
		"api-version": {"3.0"},
		"from":        {"en"},
		"to":          {lang},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build translate request failed: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.cfg.Key)
	req.Header.Set("Ocp-Apim-Subscription-Region", s.cfg.Region)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translate response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("translate status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed []struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse translate json failed: %w", err)
	}

	results := make([]string, len(parsed))
	for i, item := range parsed {
		if len(item.Translations) == 0 {
			return nil, fmt.Errorf("translator returned empty translation at index %d", i)
		}
		results[i] = item.Translations[0].Text
	}
	return results, nil
}
