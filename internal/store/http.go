package store

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP store.
type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration
	// Rate is the request rate per second; zero disables limiting.
	Rate  float64
	Burst int
}

// HTTPStore keeps documents behind a plain HTTP object endpoint:
// HEAD/GET/PUT {BaseURL}/{key}. Requests are rate limited but never
// retried.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTP creates an HTTPStore.
func NewHTTP(opts HTTPOptions) (*HTTPStore, error) {
	if opts.BaseURL == "" {
		return nil, eris.New("http store: base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

func (s *HTTPStore) url(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (s *HTTPStore) do(ctx context.Context, method, key string, body []byte) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "http store: rate limiter wait")
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url(key), rd)
	if err != nil {
		return nil, eris.Wrapf(err, "http store: build %s request", method)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "http store: %s %s", method, key)
	}
	zap.L().Debug("http store: request",
		zap.String("method", method),
		zap.String("key", key),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

func (s *HTTPStore) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, key, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, eris.Errorf("http store: HEAD %s: status %d", key, resp.StatusCode)
	}
}

func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("http store: GET %s: status %d", key, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "http store: read %s", key)
	}
	return data, nil
}

func (s *HTTPStore) Put(ctx context.Context, localFile, key string) error {
	data, err := os.ReadFile(localFile)
	if err != nil {
		return eris.Wrapf(err, "http store: read %s", localFile)
	}
	resp, err := s.do(ctx, http.MethodPut, key, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("http store: PUT %s: status %d", key, resp.StatusCode)
	}
	return nil
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
