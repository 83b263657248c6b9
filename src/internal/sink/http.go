// FILE: evsink/src/internal/sink/http.go
package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"
	ltls "evsink/src/internal/tls"
	"evsink/src/internal/version"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// ErrBatchRejected is returned when the endpoint answers with a 4xx status
var ErrBatchRejected = errors.New("batch rejected by server")

// HTTPSink POSTs each batch to a remote endpoint with retry and backoff
type HTTPSink struct {
	name      string
	config    *config.HTTPSinkOptions
	client    *fasthttp.Client
	formatter format.Formatter
	logger    *log.Logger
	startTime time.Time

	zstdEnc *zstd.Encoder

	// Signed tokens are reused until close to expiry
	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	// Statistics
	totalWritten  atomic.Uint64
	totalBatches  atomic.Uint64
	failedBatches atomic.Uint64
	totalRetries  atomic.Uint64
	bytesSent     atomic.Uint64
	lastWritten   atomic.Value // time.Time
	lastStatus    atomic.Int64
}

// NewHTTPSink creates a new HTTP sink
func NewHTTPSink(name string, opts *config.HTTPSinkOptions, formatter format.Formatter, logger *log.Logger) (*HTTPSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("HTTP sink options cannot be nil")
	}

	h := &HTTPSink{
		name:      name,
		config:    opts,
		formatter: formatter,
		logger:    logger,
		startTime: time.Now(),
	}
	h.lastWritten.Store(time.Time{})

	timeout := time.Duration(opts.Timeout) * time.Second
	h.client = &fasthttp.Client{
		MaxConnsPerHost:               10,
		MaxIdleConnDuration:           10 * time.Second,
		ReadTimeout:                   timeout,
		WriteTimeout:                  timeout,
		DisableHeaderNamesNormalizing: true,
	}
	tlsConfig, err := ltls.NewClientConfig(opts.TLS, "http_sink", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	if opts.InsecureSkipVerify {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		tlsConfig.InsecureSkipVerify = true
	}
	h.client.TLSConfig = tlsConfig

	if opts.Compression == "zstd" {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		h.zstdEnc = enc
	}

	authType := "none"
	if opts.Auth != nil && opts.Auth.Type != "" {
		authType = opts.Auth.Type
	}
	logger.Info("msg", "HTTP sink created",
		"component", "http_sink",
		"name", name,
		"url", opts.URL,
		"format", formatter.Name(),
		"compression", opts.Compression,
		"auth", authType)
	return h, nil
}

func (h *HTTPSink) Name() string {
	return h.name
}

// Write sends entries as one request. Network errors and 5xx responses are
// retried with exponential backoff; 4xx responses are not.
func (h *HTTPSink) Write(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	h.totalBatches.Add(1)

	body, err := h.formatter.FormatBatch(entries)
	if err != nil {
		h.failedBatches.Add(1)
		return fmt.Errorf("failed to format batch: %w", err)
	}

	body, err = h.compress(body)
	if err != nil {
		h.failedBatches.Add(1)
		return err
	}

	var lastErr error
	retryDelay := time.Duration(h.config.RetryDelayMS) * time.Millisecond
	maxDelay := time.Duration(h.config.Timeout) * time.Second

	for attempt := int64(0); attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			h.totalRetries.Add(1)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				h.failedBatches.Add(1)
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
			}

			// Cap at maximum and guard against overflow
			newDelay := time.Duration(float64(retryDelay) * h.config.RetryBackoff)
			if newDelay > maxDelay || newDelay < retryDelay {
				retryDelay = maxDelay
			} else {
				retryDelay = newDelay
			}
		}

		statusCode, respBody, err := h.send(ctx, body)
		if err != nil {
			lastErr = err
			h.logger.Warn("msg", "HTTP request failed",
				"component", "http_sink",
				"name", h.name,
				"attempt", attempt+1,
				"max_retries", h.config.MaxRetries,
				"error", err)
			continue
		}
		h.lastStatus.Store(int64(statusCode))

		if statusCode >= 200 && statusCode < 300 {
			h.totalWritten.Add(uint64(len(entries)))
			h.bytesSent.Add(uint64(len(body)))
			h.lastWritten.Store(time.Now())
			h.logger.Debug("msg", "Batch sent successfully",
				"component", "http_sink",
				"name", h.name,
				"batch_size", len(entries),
				"status_code", statusCode,
				"attempt", attempt+1)
			return nil
		}

		// Don't retry on 4xx errors (client errors)
		if statusCode >= 400 && statusCode < 500 {
			h.failedBatches.Add(1)
			h.logger.Error("msg", "Batch rejected by server",
				"component", "http_sink",
				"name", h.name,
				"status_code", statusCode,
				"response", string(respBody),
				"batch_size", len(entries))
			return fmt.Errorf("%w: status %d", ErrBatchRejected, statusCode)
		}

		lastErr = fmt.Errorf("server returned status %d: %s", statusCode, respBody)
		h.logger.Warn("msg", "Server error, will retry",
			"component", "http_sink",
			"name", h.name,
			"status_code", statusCode,
			"attempt", attempt+1)
	}

	h.failedBatches.Add(1)
	h.logger.Error("msg", "Failed to send batch after retries",
		"component", "http_sink",
		"name", h.name,
		"batch_size", len(entries),
		"last_error", lastErr)
	return fmt.Errorf("failed after %d attempts: %w", h.config.MaxRetries+1, lastErr)
}

// send performs one POST and returns a copy of the response body
func (h *HTTPSink) send(ctx context.Context, body []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.config.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(h.formatter.ContentType())
	req.Header.Set("User-Agent", version.UserAgent())
	if h.config.Compression != "none" {
		req.Header.Set("Content-Encoding", h.config.Compression)
	}
	for k, v := range h.config.Headers {
		req.Header.Set(k, v)
	}

	auth, err := h.authorization()
	if err != nil {
		return 0, nil, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.SetBody(body)

	timeout := time.Duration(h.config.Timeout) * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, context.DeadlineExceeded
	}

	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}

	var respBody []byte
	if b := resp.Body(); len(b) > 0 {
		respBody = append([]byte(nil), b...)
	}
	return resp.StatusCode(), respBody, nil
}

func (h *HTTPSink) compress(body []byte) ([]byte, error) {
	switch h.config.Compression {
	case "gzip":
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), nil
	case "zstd":
		return h.zstdEnc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
	default:
		return body, nil
	}
}

// authorization returns the Authorization header value, if any
func (h *HTTPSink) authorization() (string, error) {
	auth := h.config.Auth
	if auth == nil {
		return "", nil
	}

	switch auth.Type {
	case "bearer":
		return "Bearer " + auth.Token, nil
	case "jwt":
		token, err := h.signedToken(time.Now())
		if err != nil {
			return "", err
		}
		return "Bearer " + token, nil
	default:
		return "", nil
	}
}

// signedToken returns a cached HS256 token, minting a new one when less than
// a tenth of its lifetime remains
func (h *HTTPSink) signedToken(now time.Time) (string, error) {
	h.tokenMu.Lock()
	defer h.tokenMu.Unlock()

	auth := h.config.Auth
	ttl := time.Duration(auth.TTLSeconds) * time.Second
	if h.token != "" && now.Add(ttl/10).Before(h.tokenExpiry) {
		return h.token, nil
	}

	expiry := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    auth.Issuer,
		Subject:   auth.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
		ID:        uuid.NewString(),
	}
	if auth.Audience != "" {
		claims.Audience = jwt.ClaimStrings{auth.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(auth.SigningKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	h.token = signed
	h.tokenExpiry = expiry
	return signed, nil
}

func (h *HTTPSink) Close() error {
	h.client.CloseIdleConnections()
	if h.zstdEnc != nil {
		_ = h.zstdEnc.Close()
	}

	h.logger.Info("msg", "HTTP sink stopped",
		"component", "http_sink",
		"name", h.name,
		"total_written", h.totalWritten.Load(),
		"total_batches", h.totalBatches.Load(),
		"failed_batches", h.failedBatches.Load())
	return nil
}

func (h *HTTPSink) GetStats() SinkStats {
	lastWritten, _ := h.lastWritten.Load().(time.Time)

	return SinkStats{
		Type:          "http",
		TotalWritten:  h.totalWritten.Load(),
		TotalBatches:  h.totalBatches.Load(),
		FailedBatches: h.failedBatches.Load(),
		StartTime:     h.startTime,
		LastWritten:   lastWritten,
		Details: map[string]any{
			"url":           h.config.URL,
			"format":        h.formatter.Name(),
			"compression":   h.config.Compression,
			"total_retries": h.totalRetries.Load(),
			"bytes_sent":    h.bytesSent.Load(),
			"last_status":   h.lastStatus.Load(),
			"tls":           ltls.Describe(h.client.TLSConfig),
		},
	}
}
