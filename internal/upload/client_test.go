// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sonifyreads/pkg/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder collects progress callbacks from the transport goroutine.
type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) record(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(nil, types.UploadConfig{
		HTTPConfig: types.HTTPConfig{Timeout: timeout},
		APIURL:     url,
	}, WithLogger(quietLogger))
	require.NoError(t, err)
	return c
}

func pdfRequest(content []byte) types.UploadRequest {
	return types.UploadRequest{
		FileName: "report.pdf",
		FileSize: int64(len(content)),
		File:     bytes.NewReader(content),
		Email:    "jane@gmail.com",
	}
}

func assertMonotonic(t *testing.T, values []int) {
	t.Helper()
	require.NotEmpty(t, values)
	assert.Equal(t, 0, values[0], "first update must be 0")
	for i := 1; i < len(values); i++ {
		assert.Greater(t, values[i], values[i-1], "progress must increase: %v", values)
	}
	for _, v := range values {
		assert.LessOrEqual(t, v, 100)
	}
}

func TestUpload_Success(t *testing.T) {
	content := bytes.Repeat([]byte("%PDF-1.7 "), 32*1024)

	var gotID atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert-pdf-to-audio/", r.URL.Path)
		assert.Greater(t, r.ContentLength, int64(len(content)))
		gotID.Store(r.Header.Get("X-Request-ID"))

		if !assert.NoError(t, r.ParseMultipartForm(32<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "jane@gmail.com", r.FormValue("email"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		assert.Equal(t, "report.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		data, err := io.ReadAll(f)
		assert.NoError(t, err)
		assert.Equal(t, content, data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Upload complete. Processing started.","status":"queued","filename":"report.pdf"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, time.Minute)
	var rec recorder
	out := c.Upload(context.Background(), pdfRequest(content), rec.record)

	require.True(t, out.Succeeded(), "failure: %+v", out.Failure)
	assert.Equal(t, "Upload complete. Processing started.", out.Receipt.Message)
	assert.Equal(t, "queued", out.Receipt.Status)
	assert.Equal(t, "report.pdf", out.Receipt.Filename)
	assert.Equal(t, out.ID, gotID.Load())
	_, err := uuid.Parse(out.ID)
	assert.NoError(t, err)

	values := rec.snapshot()
	assertMonotonic(t, values)
	assert.Equal(t, 100, values[len(values)-1])
	for _, v := range values[:len(values)-1] {
		assert.LessOrEqual(t, v, AckThreshold)
	}
}

func TestUpload_SuccessStatusRange(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"201 created", http.StatusCreated, `{"message":"ok"}`},
		{"202 accepted", http.StatusAccepted, `{"message":"ok"}`},
		{"200 empty body", http.StatusOK, ""},
		{"204 no content", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			var calls int
			out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF")), func(p int) {
				if p == 100 {
					calls++
				}
			})
			require.True(t, out.Succeeded(), "failure: %+v", out.Failure)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestUpload_ServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field surfaced", http.StatusInternalServerError, `{"message":"conversion backlog full"}`, "conversion backlog full"},
		{"fastapi detail surfaced", http.StatusBadRequest, `{"detail":"Only PDF files allowed"}`, "Only PDF files allowed"},
		{"no body", http.StatusInternalServerError, "", "Upload failed: 500 Internal Server Error"},
		{"non-json body", http.StatusBadGateway, "<html>bad gateway</html>", "Upload failed: 502 Bad Gateway"},
		{"too large", http.StatusRequestEntityTooLarge, "", "Upload failed: 413 Request Entity Too Large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			var rec recorder
			out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF-1.4")), rec.record)

			assert.False(t, out.Succeeded())
			assert.Nil(t, out.Receipt)
			require.NotNil(t, out.Failure)
			assert.Equal(t, types.FailureServer, out.Failure.Kind)
			assert.Equal(t, tt.status, out.Failure.StatusCode)
			assert.Equal(t, tt.want, out.Failure.Message)
			assert.NotContains(t, rec.snapshot(), 100)
		})
	}
}

func TestUpload_ParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte("queued, thanks"))
	}))
	defer ts.Close()

	out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF")), nil)

	require.NotNil(t, out.Failure)
	assert.Equal(t, types.FailureParse, out.Failure.Kind)
	assert.Equal(t, MsgParse, out.Failure.Message)
	assert.Equal(t, http.StatusOK, out.Failure.StatusCode)
}

func TestUpload_LargeReceipt(t *testing.T) {
	body := `{"message":"Upload complete. Processing started.","status":"queued","notes":"` +
		strings.Repeat("x", 70*1024) + `"}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer ts.Close()

	out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF")), nil)

	require.True(t, out.Succeeded(), "failure: %+v", out.Failure)
	assert.Equal(t, "Upload complete. Processing started.", out.Receipt.Message)
	assert.Equal(t, "queued", out.Receipt.Status)
}

func TestUpload_MalformedReceipt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated object", `{"message":"ok"`},
		{"array", `["ok"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF")), nil)

			require.NotNil(t, out.Failure)
			assert.Equal(t, types.FailureParse, out.Failure.Kind)
			assert.Equal(t, MsgParse, out.Failure.Message)
		})
	}
}

func TestUpload_FileSizeChanged(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		declared int64
	}{
		{"file grew", "%PDF-1.7 grown", 4},
		{"file shrank", "%PDF", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.Write([]byte(`{"message":"ok"}`))
			}))
			defer ts.Close()

			req := pdfRequest([]byte(tt.content))
			req.FileSize = tt.declared

			var rec recorder
			out := newTestClient(t, ts.URL, time.Minute).Upload(context.Background(), req, rec.record)

			require.False(t, out.Succeeded(), "a file that changed size must not be acknowledged")
			require.NotNil(t, out.Failure)
			assert.Equal(t, types.FailureFile, out.Failure.Kind)
			assert.Equal(t, MsgFileSize, out.Failure.Message)
			assert.NotContains(t, rec.snapshot(), 100)
		})
	}
}

func TestUpload_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	out := newTestClient(t, url, time.Minute).Upload(context.Background(), pdfRequest([]byte("%PDF")), nil)

	require.NotNil(t, out.Failure)
	assert.Equal(t, types.FailureNetwork, out.Failure.Kind)
	assert.Equal(t, MsgNetwork, out.Failure.Message)
}

func TestUpload_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer ts.Close()

	var calls atomic.Int32
	c := newTestClient(t, ts.URL, 100*time.Millisecond)
	out := c.Upload(context.Background(), pdfRequest([]byte("%PDF")), func(int) { calls.Add(1) })

	require.NotNil(t, out.Failure)
	assert.Equal(t, types.FailureTimeout, out.Failure.Kind)
	assert.Contains(t, out.Failure.Message, "timed out")

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no callbacks after the outcome")
}

func TestUpload_CallerCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out := newTestClient(t, ts.URL, time.Minute).Upload(ctx, pdfRequest([]byte("%PDF")), nil)

	require.NotNil(t, out.Failure)
	assert.Equal(t, types.FailureCanceled, out.Failure.Kind)
}

func TestUpload_Headers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		assert.Equal(t, "Bearer tok_123", r.Header.Get("Authorization"))
		assert.Equal(t, "sonify-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer ts.Close()

	c, err := NewClient(ts.Client(), types.UploadConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "sonify-test/1.0"},
		APIURL:     ts.URL + "/",
		APIToken:   "tok_123",
	}, WithLogger(quietLogger), WithIDFunc(func() string { return "attempt-1" }))
	require.NoError(t, err)

	out := c.Upload(context.Background(), pdfRequest([]byte("%PDF")), nil)
	require.True(t, out.Succeeded())
	assert.Equal(t, "attempt-1", out.ID)
}

func TestUpload_FreshAttempts(t *testing.T) {
	var n atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, time.Minute)

	var first, second recorder
	out1 := c.Upload(context.Background(), pdfRequest([]byte("%PDF-first")), first.record)
	out2 := c.Upload(context.Background(), pdfRequest([]byte("%PDF-second")), second.record)

	assert.False(t, out1.Succeeded())
	assert.True(t, out2.Succeeded())
	assert.NotEqual(t, out1.ID, out2.ID)
	assert.Equal(t, 0, second.snapshot()[0], "retry starts from 0")
	assertMonotonic(t, second.snapshot())
	assert.Equal(t, int32(2), n.Load(), "no automatic retry")
}

func TestNewClient_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/api"},
		{"wrong scheme", "ftp://files.example.com"},
		{"no host", "http://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(nil, types.UploadConfig{APIURL: tt.url})
			assert.Error(t, err)
		})
	}

	_, err := NewClient(nil, types.UploadConfig{})
	assert.ErrorIs(t, err, ErrNoAPIURL)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "http://localhost:8000/convert-pdf-to-audio/"},
		{"https://api.example.com/", "https://api.example.com/convert-pdf-to-audio/"},
		{"https://api.example.com/v1", "https://api.example.com/v1/convert-pdf-to-audio/"},
		{"  http://h  ", "http://h/convert-pdf-to-audio/"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := Endpoint(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(nil, types.UploadConfig{APIURL: "http://localhost:8000"})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, 5*time.Minute, c.cfg.Timeout)
	assert.Equal(t, types.MaxFileSize, c.cfg.MaxFileSize)
	assert.Equal(t, "http://localhost:8000/convert-pdf-to-audio/", c.URL())
}
