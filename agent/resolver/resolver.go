package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	metricsx "github.com/johnson2500/retail-shopping-assistant/pkg/metrics"
)

const (
	searchPath           = "/query/text"
	maxResponseSizeBytes = 1 << 20
)

var _ contractx.Resolver = (*Resolver)(nil)

// Config is loaded with the CATALOG prefix.
type Config struct {
	URL                 string        `envconfig:"URL" split_words:"true" required:"true"`
	Categories          []string      `envconfig:"CATEGORIES" split_words:"true"`
	SimilarityThreshold float64       `envconfig:"SIMILARITY_THRESHOLD" split_words:"true" default:"0.8"`
	MaxAttempts         int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"3"`
	InitialBackoff      time.Duration `envconfig:"INITIAL_BACKOFF" split_words:"true" default:"1s"`
	RetryStatuses       []int         `envconfig:"RETRY_STATUSES" split_words:"true" default:"422,429,500,502,503,504"`
	AllowedMethods      []string      `envconfig:"ALLOWED_METHODS" split_words:"true" default:"POST"`
	Timeout             time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: catalog url is required", contractx.ErrValidation)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold must be within [0,1], got %v", contractx.ErrValidation, c.SimilarityThreshold)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be >= 1, got %d", contractx.ErrValidation, c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("%w: initial backoff must be >= 0", contractx.ErrValidation)
	}
	return nil
}

// RetryPolicy is the retry budget applied to catalog requests.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Statuses       []int
	Methods        []string
}

func (p RetryPolicy) retryable(method string, status int) bool {
	return p.allows(method) && slices.Contains(p.Statuses, status)
}

func (p RetryPolicy) allows(method string) bool {
	return slices.ContainsFunc(p.Methods, func(m string) bool {
		return strings.EqualFold(strings.TrimSpace(m), method)
	})
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	retries := max(p.MaxAttempts-1, 0)
	if !p.allows(http.MethodPost) {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

type Option func(*Resolver)

// WithTransport sets the transport cloned for every Resolve call.
func WithTransport(t *http.Transport) Option {
	return func(r *Resolver) {
		if t != nil {
			r.transport = t
		}
	}
}

func WithMetrics(m *metricsx.Recorder) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver maps free-text item names onto catalog names by similarity search.
// It keeps no cache and no connection pool between calls.
type Resolver struct {
	endpoint   string
	categories []string
	threshold  float64
	timeout    time.Duration
	policy     RetryPolicy
	transport  *http.Transport
	metrics    *metricsx.Recorder
}

type searchRequest struct {
	Text       []string `json:"text"`
	Categories []string `json:"categories"`
	K          int      `json:"k"`
}

type searchResponse struct {
	Names        []string  `json:"names"`
	Similarities []float64 `json:"similarities"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("catalog returned status %d", e.code)
	}
	return fmt.Sprintf("catalog returned status %d: %s", e.code, e.body)
}

func New(cfg Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: invalid catalog url: %v", contractx.ErrValidation, err)
	}

	categories := make([]string, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			categories = append(categories, trimmed)
		}
	}

	r := &Resolver{
		endpoint:   base + searchPath,
		categories: categories,
		threshold:  cfg.SimilarityThreshold,
		timeout:    cfg.Timeout,
		policy: RetryPolicy{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff,
			Statuses:       slices.Clone(cfg.RetryStatuses),
			Methods:        slices.Clone(cfg.AllowedMethods),
		},
		transport: http.DefaultTransport.(*http.Transport),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r, nil
}

// Resolve returns the best catalog match for itemName. A top similarity that
// does not strictly exceed the threshold yields ErrNoCatalogMatch.
func (r *Resolver) Resolve(ctx context.Context, itemName string) (contractx.ResolvedItem, error) {
	name := strings.TrimSpace(itemName)
	if name == "" {
		return contractx.ResolvedItem{}, fmt.Errorf("%w: item name is empty", contractx.ErrValidation)
	}

	res, err := r.search(ctx, name)
	if err != nil {
		r.metrics.ResolverResult("error")
		return contractx.ResolvedItem{}, fmt.Errorf("%w: %v", contractx.ErrCatalogFetch, err)
	}

	if len(res.Similarities) == 0 || len(res.Names) == 0 {
		r.metrics.ResolverResult("no_match")
		logx.FromContext(ctx).Debug().Str("item_name", name).Msg("catalog returned no candidates")
		return contractx.ResolvedItem{}, fmt.Errorf("%w: %s", contractx.ErrNoCatalogMatch, name)
	}

	sim := res.Similarities[0]
	if sim <= r.threshold {
		r.metrics.ResolverResult("no_match")
		logx.FromContext(ctx).Info().Str("item_name", name).Float64("similarity", sim).Msg("nothing sufficiently similar in catalog")
		return contractx.ResolvedItem{}, fmt.Errorf("%w: %s (similarity %.3f)", contractx.ErrNoCatalogMatch, name, sim)
	}

	r.metrics.ResolverResult("resolved")
	logx.FromContext(ctx).Info().
		Str("item_name", name).
		Str("catalog_name", res.Names[0]).
		Float64("similarity", sim).
		Msg("catalog item resolved")
	return contractx.ResolvedItem{CatalogName: res.Names[0], Similarity: sim}, nil
}

func (r *Resolver) search(ctx context.Context, name string) (searchResponse, error) {
	payload, err := json.Marshal(searchRequest{
		Text:       []string{name},
		Categories: r.categories,
		K:          1,
	})
	if err != nil {
		return searchResponse{}, backoff.Permanent(fmt.Errorf("encode search request: %w", err))
	}

	transport := r.transport.Clone()
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport, Timeout: r.timeout}

	var out searchResponse
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build search request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			r.metrics.ResolverAttempt("transport_error")
			if !r.policy.allows(http.MethodPost) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
		if err != nil {
			r.metrics.ResolverAttempt("transport_error")
			return fmt.Errorf("read search response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
			if r.policy.retryable(http.MethodPost, resp.StatusCode) {
				r.metrics.ResolverAttempt("retryable_status")
				return serr
			}
			r.metrics.ResolverAttempt("fatal_status")
			return backoff.Permanent(serr)
		}

		r.metrics.ResolverAttempt("ok")
		if err := json.Unmarshal(raw, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode search response: %w", err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logx.FromContext(ctx).Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("catalog request failed, retrying")
	}

	if err := backoff.RetryNotify(op, r.policy.backOff(ctx), notify); err != nil {
		return searchResponse{}, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return out, nil
}
