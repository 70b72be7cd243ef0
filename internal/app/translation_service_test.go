package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroai-backend/internal/config"
)

func writeSourceFile(t *testing.T, source map[string]string) string {
	t.Helper()
	raw, err := json.Marshal(source)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "translation.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestTranslate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "3.0", r.URL.Query().Get("api-version"))
		assert.Equal(t, "en", r.URL.Query().Get("from"))
		assert.Equal(t, "hi", r.URL.Query().Get("to"))
		assert.Equal(t, "azure-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "centralindia", r.Header.Get("Ocp-Apim-Subscription-Region"))

		var items []struct {
			Text string `json:"Text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&items))

		type translation struct {
			Text string `json:"text"`
		}
		out := make([]map[string][]translation, len(items))
		for i, item := range items {
			out[i] = map[string][]translation{
				"translations": {{Text: "[hi] " + item.Text}},
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	}))
	defer server.Close()

	service := NewTranslationService(config.TranslatorConfig{
		Endpoint: server.URL,
		Key:      "azure-key",
		Region:   "centralindia",
		SourceFile: writeSourceFile(t, map[string]string{
			"app.title":        "AgroAI",
			"irrigation.title": "Irrigation Advice",
		}),
	})

	result, err := service.Translate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"app.title":        "[hi] AgroAI",
		"irrigation.title": "[hi] Irrigation Advice",
	}, result)
}

func TestTranslate_Failures(t *testing.T) {
	sourceFile := writeSourceFile(t, map[string]string{"app.title": "AgroAI"})

	t.Run("missing credentials", func(t *testing.T) {
		service := NewTranslationService(config.TranslatorConfig{SourceFile: sourceFile})
		_, err := service.Translate(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("empty language", func(t *testing.T) {
		service := NewTranslationService(config.TranslatorConfig{
			Key: "k", Region: "r", SourceFile: sourceFile,
		})
		_, err := service.Translate(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("upstream error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))
		defer server.Close()

		service := NewTranslationService(config.TranslatorConfig{
			Endpoint: server.URL, Key: "k", Region: "r", SourceFile: sourceFile,
		})
		_, err := service.Translate(context.Background(), "hi")
		assert.Error(t, err)
	})

	t.Run("missing source file", func(t *testing.T) {
		service := NewTranslationService(config.TranslatorConfig{
			Endpoint: "http://localhost", Key: "k", Region: "r",
			SourceFile: filepath.Join(t.TempDir(), "missing.json"),
		})
		_, err := service.Translate(context.Background(), "hi")
		assert.Error(t, err)
	})
}
