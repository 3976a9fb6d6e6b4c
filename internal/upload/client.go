// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload submits a PDF and a recipient email to the conversion
// service in a single multipart POST, reporting transfer progress and a
// typed terminal outcome. Attempts are never retried.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/sonifyreads/internal/httputil"
	"github.com/pdiddy/sonifyreads/pkg/types"
)

// User-facing failure messages.
const (
	MsgNetwork  = "Network error. Please try again."
	MsgTimeout  = "Upload timed out. Please try again."
	MsgParse    = "Failed to parse server response"
	MsgCanceled = "Upload canceled."
	MsgFileSize = "The file changed while it was being uploaded. Please select it again."
)

// ErrNoAPIURL is returned when no conversion service base URL is configured.
var ErrNoAPIURL = errors.New("conversion service URL not configured (set api_url or SONIFY_API_URL)")

// Client uploads PDFs to the conversion endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	cfg      types.UploadConfig
	logger   *slog.Logger
	newID    func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIDFunc overrides how attempt IDs are generated.
func WithIDFunc(f func() string) Option {
	return func(c *Client) { c.newID = f }
}

// NewClient builds a Client for cfg.APIURL. A nil httpClient uses a fresh
// http.Client; the attempt ceiling comes from cfg.Timeout, not from the
// http.Client.
func NewClient(httpClient *http.Client, cfg types.UploadConfig, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	endpoint, err := Endpoint(cfg.APIURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		http:     httpClient,
		endpoint: endpoint,
		cfg:      cfg,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint joins the conversion path onto an absolute http(s) base URL.
func Endpoint(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrNoAPIURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing api url %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("api url %q: must be an absolute http or https URL", base)
	}
	return strings.TrimRight(base, "/") + types.ConvertPath, nil
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.endpoint
}

// Upload performs one attempt: it streams req to the endpoint and returns
// when the server has answered, the ceiling has elapsed, or ctx is done.
// onProgress may be nil. It is called from the transport's goroutine and
// never after Upload returns.
func (c *Client) Upload(ctx context.Context, req types.UploadRequest, onProgress ProgressFunc) types.Outcome {
	out := types.Outcome{ID: c.newID()}
	log := c.logger.With("id", out.ID, "file", req.FileName)

	rep := newReporter(onProgress)
	defer rep.close()

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := newMultipartBody(req)
	if err != nil {
		log.Error("building request body", "error", err)
		out.Failure = &types.Failure{Kind: types.FailureNetwork, Message: MsgNetwork}
		return out
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint,
		&progressReader{r: body.reader, total: body.length, rep: rep})
	if err != nil {
		log.Error("creating request", "error", err)
		out.Failure = &types.Failure{Kind: types.FailureNetwork, Message: MsgNetwork}
		return out
	}
	httpReq.ContentLength = body.length
	httpReq.Header.Set("Content-Type", body.contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	httpReq.Header.Set("X-Request-ID", out.ID)
	if c.cfg.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	rep.emit(0)
	start := time.Now()
	log.Debug("upload started", "bytes", body.length, "endpoint", c.endpoint)

	resp, err := c.http.Do(httpReq)
	if body.sizeChanged() {
		httputil.Drain(resp)
		out.Failure = &types.Failure{Kind: types.FailureFile, Message: MsgFileSize}
		log.Warn("upload aborted", "kind", out.Failure.Kind, "declared_bytes", req.FileSize, "error", ErrSizeChanged)
		return out
	}
	if err != nil {
		out.Failure = transportFailure(ctx, attemptCtx, err)
		log.Warn("upload failed", "kind", out.Failure.Kind, "error", err, "elapsed", time.Since(start))
		return out
	}
	defer httputil.Drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, readErr := httputil.ReadBody(resp, httputil.MaxErrorBody)
		if readErr != nil && attemptCtx.Err() != nil {
			out.Failure = transportFailure(ctx, attemptCtx, readErr)
			return out
		}
		msg := httputil.ErrorMessage(data)
		if msg == "" {
			msg = "Upload failed: " + httputil.StatusLine(resp.StatusCode)
		}
		out.Failure = &types.Failure{Kind: types.FailureServer, StatusCode: resp.StatusCode, Message: msg}
		log.Warn("upload rejected", "status", resp.StatusCode, "message", msg, "elapsed", time.Since(start))
		return out
	}

	src := &readErrRecorder{r: resp.Body}
	receipt, err := parseReceipt(src)
	if err != nil {
		if src.err != nil {
			out.Failure = transportFailure(ctx, attemptCtx, src.err)
			log.Warn("reading response failed", "kind", out.Failure.Kind, "error", src.err)
			return out
		}
		out.Failure = &types.Failure{Kind: types.FailureParse, StatusCode: resp.StatusCode, Message: MsgParse}
		log.Warn("unparseable response", "status", resp.StatusCode, "error", err)
		return out
	}

	rep.emit(100)
	out.Receipt = receipt
	log.Info("upload acknowledged", "status", resp.StatusCode, "bytes", body.length, "elapsed", time.Since(start))
	return out
}

// parseReceipt decodes the first JSON value of a success body. An empty
// body is an acknowledgement without details; anything else must be a JSON
// object. Data after the object is not read.
func parseReceipt(r io.Reader) (*types.Receipt, error) {
	var rec types.Receipt
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return &types.Receipt{}, nil
		}
		return nil, err
	}
	return &rec, nil
}

// readErrRecorder remembers the first read failure other than io.EOF so a
// broken connection is not mistaken for a malformed body.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (e *readErrRecorder) Read(b []byte) (int, error) {
	n, err := e.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) && e.err == nil {
		e.err = err
	}
	return n, err
}

// transportFailure classifies a failed round trip. parent is the caller's
// context and attempt the one carrying the upload ceiling.
func transportFailure(parent, attempt context.Context, err error) *types.Failure {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return &types.Failure{Kind: types.FailureCanceled, Message: MsgCanceled}
	case errors.Is(attempt.Err(), context.DeadlineExceeded):
		return &types.Failure{Kind: types.FailureTimeout, Message: MsgTimeout}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &types.Failure{Kind: types.FailureTimeout, Message: MsgTimeout}
	}
	return &types.Failure{Kind: types.FailureNetwork, Message: MsgNetwork}
}
