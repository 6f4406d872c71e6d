package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthz(t *testing.T) {
	req, err := http.NewRequest("GET", "/healthz", nil)
	assert.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(healthz)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIndex(t *testing.T) {
	req, err := http.NewRequest("GET", "/", nil)
	assert.NoError(t, err)

	rr := httptest.NewRecorder()
	http.HandlerFunc(index).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `accept=".csv"`)
	assert.Contains(t, body, `name="measure"`)
	assert.Contains(t, body, "Convert")
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		header       string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "valid token",
			token:        "secret",
			header:       "Bearer secret",
			expectedCode: http.StatusOK,
			expectedBody: "",
		},
		{
			name:         "invalid token",
			token:        "secret",
			header:       "Bearer wrong",
			expectedCode: http.StatusUnauthorized,
			expectedBody: "Unauthorized\n",
		},
		{
			name:         "no header",
			token:        "secret",
			header:       "",
			expectedCode: http.StatusUnauthorized,
			expectedBody: "Unauthorized\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "/", nil)
			assert.NoError(t, err)
			req.Header.Set("Authorization", tt.header)

			rr := httptest.NewRecorder()
			handler := auth(tt.token, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestLimitBodyMiddleware(t *testing.T) {
	handler := limitBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for {
			_, err := r.Body.Read(buf)
			if err != nil {
				if err.Error() == "http: request body too large" {
					http.Error(w, "Request entity too large", http.StatusRequestEntityTooLarge)
					return
				}
				break
			}
		}
		w.WriteHeader(http.StatusOK)
	}), 10)

	t.Run("body within limit", func(t *testing.T) {
		req, err := http.NewRequest("POST", "/", strings.NewReader("123456789"))
		assert.NoError(t, err)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("declared length exceeds limit", func(t *testing.T) {
		req, err := http.NewRequest("POST", "/", strings.NewReader("12345678901"))
		assert.NoError(t, err)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})

	t.Run("streamed body exceeds limit", func(t *testing.T) {
		req, err := http.NewRequest("POST", "/", strings.NewReader("12345678901"))
		assert.NoError(t, err)
		req.ContentLength = -1
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Addr:       ":8080",
			AdminToken: "token",
			HmacKey:    "key",
			UploadsDir: "uploads",
			DataDir:    "data",
			DBPath:     "data/test.db",
			MaxSize:    1024,
			TTL:        time.Hour,
			Converter:  []string{"python3", "optimized_script.py"},
			LogLevel:   "info",
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Converter = nil
	assert.ErrorContains(t, cfg.Validate(), "Converter")

	cfg = valid()
	cfg.MaxSize = 0
	assert.ErrorContains(t, cfg.Validate(), "MaxSize")

	cfg = valid()
	cfg.LogLevel = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "LogLevel")
}

func TestProgressLogger(t *testing.T) {
	p := newProgressLogger("report.csv", 1000)

	p.Progress(0.05)
	assert.Equal(t, 0, p.lastBucket)
	p.Progress(0.07)
	assert.Equal(t, 0, p.lastBucket)
	p.Progress(0.55)
	assert.Equal(t, 5, p.lastBucket)
	p.Progress(1.0)
	assert.Equal(t, 10, p.lastBucket)

	p.Clear()
	assert.Equal(t, -1, p.lastBucket)
}
