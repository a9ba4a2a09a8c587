package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/usermgmt/pkg/config"
)

func jsonConfig(level string) config.Config {
	return config.Config{
		AppEnv: "test",
		App:    config.AppConfig{Name: "usermgmt"},
		Logger: config.LoggerConfig{Level: level, Format: "json"},
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		out = append(out, record)
	}
	return out
}

func TestNewWithWriter_ServiceAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("info"), &buf)

	log.Debug("hidden")
	log.Info("visible")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "visible", records[0]["msg"])
	assert.Equal(t, "usermgmt", records[0]["service"])
	assert.Equal(t, "test", records[0]["env"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("warn"), &buf)

	log.Info("dropped")
	log.SetLevel("debug")
	log.Debug("kept")

	assert.Equal(t, slog.LevelDebug, log.Level())
	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0]["msg"])
}

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("info"), &buf).With(slog.String("api_key", "abc"))

	log.Info("connect",
		slog.String("password", "hunter2"),
		slog.String("user", "alice"),
		slog.Group("db", slog.String("DSN", "postgres://u:p@h/db"), slog.String("host", "h")),
	)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "postgres://")
	assert.NotContains(t, out, `"abc"`)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, maskedValue, records[0]["password"])
	assert.Equal(t, maskedValue, records[0]["api_key"])
	assert.Equal(t, "alice", records[0]["user"])
	assert.Equal(t, map[string]any{"DSN": maskedValue, "host": "h"}, records[0]["db"])
}

func TestMaskingHandler_KeyFragmentsAndURLs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("info"), &buf)

	log.Info("dependency",
		slog.String("redis_password", "pw"),
		slog.String("upstream", "postgres://svc:topsecret@db:5432/users"),
		slog.String("docs", "https://example.com/a@b"),
	)

	assert.NotContains(t, buf.String(), "topsecret")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, maskedValue, records[0]["redis_password"])
	assert.Equal(t, "postgres://svc:xxxxx@db:5432/users", records[0]["upstream"])
	assert.Equal(t, "https://example.com/a@b", records[0]["docs"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFanoutHandler(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With(slog.String("component", "test"))

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	log.Info("info")
	log.Error("error")

	assert.Len(t, decodeLines(t, &infoBuf), 2)
	errs := decodeLines(t, &errBuf)
	require.Len(t, errs, 1)
	assert.Equal(t, "test", errs[0]["component"])
}

func TestMiddleware_CorrelationID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", rec.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, strings.Repeat("x", maxCorrelationIDLen+1))
	h.ServeHTTP(httptest.NewRecorder(), req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
