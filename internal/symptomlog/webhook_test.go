package symptomlog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-risk-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWebhookSink_Append(t *testing.T) {
	var payload WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL, time.Second, 100, quietLogger())
	require.NoError(t, err)

	record := domain.SymptomLogRecord{Date: "2025-03-15", FlareLikely: true, AbdominalPain: 7, Bloating: 10, RomeCriteriaMet: true}
	require.NoError(t, sink.Append(context.Background(), record))

	assert.Equal(t, record, payload.Record)
	assert.Equal(t, []string{"2025-03-15", "Yes", "7", "10", "Yes"}, payload.Row)
}

func TestWebhookSink_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL, time.Second, 100, quietLogger())
	require.NoError(t, err)

	err = sink.Append(context.Background(), domain.SymptomLogRecord{Date: "2025-03-15"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSinkUnavailable))
	assert.Contains(t, err.Error(), "429")
}

func TestWebhookSink_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	sink, err := NewWebhookSink(url, 500*time.Millisecond, 100, quietLogger())
	require.NoError(t, err)

	err = sink.Append(context.Background(), domain.SymptomLogRecord{Date: "2025-03-15"})
	assert.True(t, errors.Is(err, domain.ErrSinkUnavailable))
}

func TestNewWebhookSink_RequiresURL(t *testing.T) {
	_, err := NewWebhookSink("", 0, 0, quietLogger())
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	logger := quietLogger()

	sink, err := Open(domain.SinkConfig{Kind: domain.SinkNone}, "", logger)
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = Open(domain.SinkConfig{Kind: domain.SinkSQLite, SQLitePath: filepath.Join(t.TempDir(), "log.db")}, "", logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sink)
	require.NoError(t, sink.Close())

	sink, err = Open(domain.SinkConfig{Kind: domain.SinkWebhook, WebhookURL: "http://localhost:1/hook"}, "", logger)
	require.NoError(t, err)
	assert.IsType(t, &WebhookSink{}, sink)

	_, err = Open(domain.SinkConfig{Kind: "carrier-pigeon"}, "", logger)
	assert.Error(t, err)
}
