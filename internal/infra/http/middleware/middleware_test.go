package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarifscope/api/internal/config"
	"github.com/sarifscope/api/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Run("generates id when absent", func(t *testing.T) {
		var captured string
		handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
	})

	t.Run("preserves incoming id", func(t *testing.T) {
		handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "incoming-id")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "incoming-id", rec.Header().Get("X-Request-ID"))
	})
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("under limit passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("over limit fails", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("GET skipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func gzipBody(t *testing.T, data string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return &buf
}

func TestDecompress(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
	handler := Decompress(nil)(echo)

	t.Run("gzip body is decompressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", gzipBody(t, `{"version":"2.1.0"}`))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"version":"2.1.0"}`, rec.Body.String())
	})

	t.Run("identity passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "plain", rec.Body.String())
	})

	t.Run("unknown encoding rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("data"))
		req.Header.Set("Content-Encoding", "br")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("corrupt gzip rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip at all"))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("decompressed size limit enforced", func(t *testing.T) {
		small := Decompress(&DecompressConfig{
			MaxDecompressedSize: 32,
			MaxCompressedSize:   1024,
			MaxCompressionRatio: 1000,
			AllowedEncodings:    []string{"gzip"},
		})(echo)

		req := httptest.NewRequest(http.MethodPost, "/", gzipBody(t, strings.Repeat("a", 4096)))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		small.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  1,
		Burst:           2,
		CleanupInterval: time.Minute,
	}

	mw, stop := RateLimitWithStop(cfg, logger.NewNop())
	defer stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimit_Disabled(t *testing.T) {
	mw, stop := RateLimitWithStop(&config.RateLimitConfig{Enabled: false}, logger.NewNop())
	defer stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 10 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/reports": "/api/v1/reports",
		"/api/v1/reports/123e4567-e89b-12d3-a456-426614174000":       "/api/v1/reports/{id}",
		"/api/v1/reports/123e4567-e89b-12d3-a456-426614174000/stats": "/api/v1/reports/{id}/stats",
		"/api/v1/findings/42": "/api/v1/findings/{id}",
		"/health":             "/health",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), "path %s", in)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.NewNop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
