package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/fitsync/internal/model"
)

const maxErrorBody = 512

// Config configures HTTPClient.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// RateLimit is the sustained requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// HTTPClient implements Client over the REST API.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient validates cfg and returns a client. logger may be nil.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", base.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPClient{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// GetProgress implements Client.
func (c *HTTPClient) GetProgress(ctx context.Context) ([]model.ProgressResponse, error) {
	var out []model.ProgressResponse
	if err := c.doJSON(ctx, http.MethodGet, "/progress", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProgressDay implements Client.
func (c *HTTPClient) GetProgressDay(ctx context.Context, day int) (model.ProgressResponse, error) {
	var out model.ProgressResponse
	err := c.doJSON(ctx, http.MethodGet, "/progress/"+strconv.Itoa(day), nil, &out)
	return out, err
}

// CreateProgress implements Client.
func (c *HTTPClient) CreateProgress(ctx context.Context, req model.ProgressRequest) (model.ProgressResponse, error) {
	var out model.ProgressResponse
	err := c.doMultipart(ctx, http.MethodPost, "/progress", req, true, &out)
	return out, err
}

// UpdateProgress implements Client.
func (c *HTTPClient) UpdateProgress(ctx context.Context, day int, req model.ProgressRequest) (model.ProgressResponse, error) {
	var out model.ProgressResponse
	err := c.doMultipart(ctx, http.MethodPut, "/progress/"+strconv.Itoa(day), req, false, &out)
	return out, err
}

// DeleteProgress implements Client.
func (c *HTTPClient) DeleteProgress(ctx context.Context, day int) error {
	return c.doJSON(ctx, http.MethodDelete, "/progress/"+strconv.Itoa(day), nil, nil)
}

// DeletePhoto implements Client.
func (c *HTTPClient) DeletePhoto(ctx context.Context, day int, slot string) error {
	path := "/progress/" + strconv.Itoa(day) + "/photos/" + url.PathEscape(slot)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// StartRun implements Client.
func (c *HTTPClient) StartRun(ctx context.Context, date *string) (model.RunResponse, error) {
	body := struct {
		Date *string `json:"date,omitempty"`
	}{Date: date}
	var out model.RunResponse
	err := c.doJSON(ctx, http.MethodPost, "/runs", body, &out)
	return out, err
}

// GetCurrentRun implements Client.
func (c *HTTPClient) GetCurrentRun(ctx context.Context) (model.RunResponse, error) {
	var out model.RunResponse
	err := c.doJSON(ctx, http.MethodGet, "/runs/current", nil, &out)
	return out, err
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *HTTPClient) doMultipart(ctx context.Context, method, path string, req model.ProgressRequest, withID bool, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if withID {
		if err := w.WriteField("id", strconv.Itoa(req.ID)); err != nil {
			return fmt.Errorf("%s %s: write form: %w", method, path, err)
		}
	}
	if err := writeMetrics(w, req.Metrics); err != nil {
		return fmt.Errorf("%s %s: write form: %w", method, path, err)
	}
	for _, field := range req.UploadFields() {
		part, err := w.CreateFormFile(field, field+".jpg")
		if err != nil {
			return fmt.Errorf("%s %s: write %s: %w", method, path, field, err)
		}
		if _, err := part.Write(req.Uploads[field]); err != nil {
			return fmt.Errorf("%s %s: write %s: %w", method, path, field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s %s: close form: %w", method, path, err)
	}

	return c.do(ctx, method, path, &buf, w.FormDataContentType(), out)
}

func writeMetrics(w *multipart.Writer, m model.Metrics) error {
	ints := []struct {
		name  string
		value *int
	}{
		{"pullups", m.PullUps},
		{"pushups", m.PushUps},
		{"squats", m.Squats},
	}
	for _, f := range ints {
		if f.value == nil {
			continue
		}
		if err := w.WriteField(f.name, strconv.Itoa(*f.value)); err != nil {
			return err
		}
	}
	if m.Weight != nil {
		return w.WriteField("weight", strconv.FormatFloat(*m.Weight, 'f', -1, 64))
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: rate limit: %w", method, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
