package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &config.Config{}
	conf.Transcribe.BaseURL = srv.URL
	conf.Transcribe.Timeout = 5 * time.Second
	conf.Transcribe.PollInterval = time.Millisecond
	conf.Transcribe.MaxPolls = 5
	return NewClient(conf)
}

func TestAnalyzeReturnsResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/m1", r.URL.Path)
		w.Write([]byte(`{"raw_text":"invoice total 42","confidence":0.97,"tables":[{"rows":[["item","qty"],["widget","2"]]}]}`))
	}))

	result, err := c.Analyze(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", result.AttachmentKey)
	assert.Equal(t, "invoice total 42", result.RawText)
	assert.InDelta(t, 0.97, result.Confidence, 0.001)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, [][]string{{"item", "qty"}, {"widget", "2"}}, result.Tables[0].Rows)
}

func TestAnalyzePollsUntilReady(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(`{"raw_text":"ready"}`))
	}))

	result, err := c.Analyze(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "ready", result.RawText)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyzeGivesUpAfterMaxPolls(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))

	_, err := c.Analyze(context.Background(), "m1")
	var ferr *models.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, int32(6), calls.Load()) // initial try plus five retries
}

func TestAnalyzePermanentErrorStopsPolling(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	_, err := c.Analyze(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
