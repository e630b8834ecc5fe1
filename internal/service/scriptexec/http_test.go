package scriptexec

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
)

func scanRequest(n int) drepo.ScanRequest {
	bars := make([]models.Bar, n)
	for i := range bars {
		ts := time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
		bars[i] = models.NewBar(ts, 100, 101, 99, 100.5, 1000)
	}
	return drepo.ScanRequest{Ticker: "AAPL", Date: "2024-03-14", Index: n - 1, Bars: bars}
}

func TestHTTPExecutorRoundTrip(t *testing.T) {
	var got scanPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/scan", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"signal":{"pattern":"external_gap","entry":104,"stop":100,"target":112,"confidence":85}}`))
	}))
	defer srv.Close()

	e := NewHTTPExecutor(srv.URL, time.Second)
	sig, err := e.Execute(context.Background(), scanRequest(6))
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, "AAPL", sig.Ticker)
	assert.Equal(t, "external_gap", sig.Pattern)
	assert.Equal(t, 104.0, sig.Entry)
	assert.Equal(t, 85.0, sig.Confidence)

	// The service saw exactly the causal prefix.
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, 5, got.Index)
	assert.Len(t, got.Bars, 6)
}

func TestHTTPExecutorNullSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"signal":null}`))
	}))
	defer srv.Close()

	e := NewHTTPExecutor(srv.URL, time.Second)
	sig, err := e.Execute(context.Background(), scanRequest(3))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestHTTPExecutorRejectsBadConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"signal":{"pattern":"p","confidence":140}}`))
	}))
	defer srv.Close()

	e := NewHTTPExecutor(srv.URL, time.Second)
	_, err := e.Execute(context.Background(), scanRequest(3))
	assert.Error(t, err)
}

func TestParseResult(t *testing.T) {
	req := scanRequest(3)

	sig, err := parseResult([]byte(`{"signal":null}`), req)
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = parseResult([]byte(`{"signal":{"pattern":"p","entry":10,"stop":9,"target":12,"confidence":70}}`), req)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "2024-03-14", sig.Date)

	_, err = parseResult([]byte(`{"signal":{"confidence":-1}}`), req)
	assert.Error(t, err)

	_, err = parseResult([]byte(`not json`), req)
	assert.Error(t, err)
}
