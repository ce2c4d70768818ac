package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leafscan/internal/metrics"
)

const testEndpoint = "https://generativelanguage.test/v1beta/models/test:generateContent"

func newTestClient(t *testing.T, apiKey string, timeout time.Duration) (*Client, *httpmock.MockTransport, *metrics.Metrics) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	c := NewClient(Config{
		APIKey:     apiKey,
		Endpoint:   testEndpoint,
		Timeout:    timeout,
		HTTPClient: &http.Client{Transport: transport},
	}, m)
	return c, transport, m
}

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	c, transport, m := newTestClient(t, "test-key", time.Second)

	var captured GenerateRequest
	var apiKey string
	transport.RegisterResponder(http.MethodPost, testEndpoint, func(req *http.Request) (*http.Response, error) {
		apiKey = req.Header.Get("x-goog-api-key")
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		return httpmock.NewJsonResponse(http.StatusOK, candidateResponse("  Apply fungicide weekly.\n"))
	})

	text, ok := c.Generate(context.Background(), "How to treat Potato Late blight?", false)

	require.True(t, ok)
	assert.Equal(t, "Apply fungicide weekly.", text)
	assert.Equal(t, "test-key", apiKey)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "How to treat Potato Late blight?", captured.Contents[0].Parts[0].Text)
	assert.Nil(t, captured.GenerationConfig)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generation.WithLabelValues("ok")))
}

func TestGenerate_StructuredRequestsJSON(t *testing.T) {
	c, transport, _ := newTestClient(t, "test-key", time.Second)

	var raw map[string]any
	transport.RegisterResponder(http.MethodPost, testEndpoint, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
		return httpmock.NewJsonResponse(http.StatusOK, candidateResponse(`{"medicineName":"Mancozeb"}`))
	})

	text, ok := c.Generate(context.Background(), "plan", true)

	require.True(t, ok)
	assert.JSONEq(t, `{"medicineName":"Mancozeb"}`, text)
	assert.Equal(t, map[string]any{"responseMimeType": "application/json"}, raw["generationConfig"])
}

func TestGenerate_AbsentResults(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		outcome   string
	}{
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":{"message":"backend down"}}`),
			outcome:   "http_error",
		},
		{
			name:      "quota exceeded",
			responder: httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":{"message":"quota"}}`),
			outcome:   "http_error",
		},
		{
			name:      "no candidates",
			responder: httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"candidates": []any{}}),
			outcome:   "empty",
		},
		{
			name:      "blank text",
			responder: httpmock.NewJsonResponderOrPanic(http.StatusOK, candidateResponse("   ")),
			outcome:   "empty",
		},
		{
			name:      "invalid json",
			responder: httpmock.NewStringResponder(http.StatusOK, `not json`),
			outcome:   "decode_error",
		},
		{
			name:      "transport error",
			responder: httpmock.NewErrorResponder(io.ErrUnexpectedEOF),
			outcome:   "transport_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport, m := newTestClient(t, "test-key", time.Second)
			transport.RegisterResponder(http.MethodPost, testEndpoint, tt.responder)

			text, ok := c.Generate(context.Background(), "prompt", false)

			assert.False(t, ok)
			assert.Empty(t, text)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Generation.WithLabelValues(tt.outcome)))
		})
	}
}

func TestGenerate_TimeoutYieldsAbsent(t *testing.T) {
	c, transport, m := newTestClient(t, "test-key", 50*time.Millisecond)
	transport.RegisterResponder(http.MethodPost, testEndpoint, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	start := time.Now()
	text, ok := c.Generate(context.Background(), "prompt", false)

	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generation.WithLabelValues("timeout")))
}

func TestGenerate_MissingAPIKeySkipsNetwork(t *testing.T) {
	c, transport, m := newTestClient(t, "", time.Second)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, candidateResponse("unused")))

	_, ok := c.Generate(context.Background(), "prompt", false)

	assert.False(t, ok)
	assert.Equal(t, 0, transport.GetTotalCallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generation.WithLabelValues("not_configured")))
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(Config{APIKey: "k", Endpoint: testEndpoint}, nil)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.NotNil(t, c.httpClient)
}
