package medinfo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFirecrawlTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func TestFirecrawlLookupSuccess(t *testing.T) {
	var gotReq searchRequest
	var gotAuth string

	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": [{
				"url": "https://example.com/paracetamol",
				"title": "Paracetamol",
				"description": "Common pain reliever",
				"markdown": "# Paracetamol\n\nPrice: 3.50e"
			}]
		}`))
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	result := client.Lookup(context.Background(), "Paracetamol")

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "Paracetamol medicine price availability", gotReq.Query)
	assert.Equal(t, 1, gotReq.Limit)
	assert.Equal(t, []string{"markdown"}, gotReq.ScrapeOptions.Formats)

	assert.Equal(t, "Paracetamol", result.Name)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Info, "Price: 3.50e")
	assert.Equal(t, "https://example.com/paracetamol", result.URL)
	assert.Equal(t, "Common pain reliever", result.Description)
}

func TestFirecrawlLookupFallbackWithoutMarkdown(t *testing.T) {
	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": [{
				"url": "https://example.com/ibuprofen",
				"description": "Anti-inflammatory drug"
			}]
		}`))
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	result := client.Lookup(context.Background(), "Ibuprofen")

	assert.Equal(t, StatusFallback, result.Status)
	assert.Equal(t, "Anti-inflammatory drug", result.Info)
	assert.Equal(t, "https://example.com/ibuprofen", result.URL)
}

func TestFirecrawlLookupFallbackOnNoHits(t *testing.T) {
	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": []}`))
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	result := client.Lookup(context.Background(), "Obscurium")

	assert.Equal(t, StatusFallback, result.Status)
	assert.Equal(t, "No search results found", result.Info)
	assert.Empty(t, result.URL)
}

func TestFirecrawlLookupErrorOnServerFailure(t *testing.T) {
	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	result := client.Lookup(context.Background(), "Paracetamol")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Paracetamol", result.Name)
	assert.Contains(t, result.Description, "status: 500")
}

func TestFirecrawlLookupErrorOnAPIError(t *testing.T) {
	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "rate limit exceeded"}`))
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	result := client.Lookup(context.Background(), "Paracetamol")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Description, "rate limit exceeded")
}

func TestFirecrawlLookupErrorOnTimeout(t *testing.T) {
	ts := makeFirecrawlTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})
	defer ts.Close()

	client := NewFirecrawlClient(FirecrawlClientOpts{
		BaseURL: ts.URL,
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
	})
	result := client.Lookup(context.Background(), "Paracetamol")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Paracetamol", result.Name)
}
