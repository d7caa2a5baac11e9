// Package ncbi fetches FASTA records for nucleotide accessions from the NCBI
// E-utilities efetch endpoint.
package ncbi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/platform/circuit"
	"seqreg/pkg/platform/sentinel"
)

// DefaultBaseURL is the public efetch endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 256 << 20
	defaultTimeout   = 10 * time.Second
)

var accessionPattern = regexp.MustCompile(`^[A-Za-z0-9_.]{1,64}$`)

// ValidateAccession trims accession and checks it is a plausible NCBI
// accession or GI number before any request is made.
func ValidateAccession(accession string) (string, error) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "accession is required")
	}
	if !accessionPattern.MatchString(accession) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput,
			"invalid accession %q: only letters, digits, '_' and '.' are allowed", accession)
	}
	return accession, nil
}

// Client fetches nucleotide FASTA records. Concurrent fetches of the same
// accession share one request, which runs to completion (bounded by the
// client timeout) even if the caller that started it gives up. A Cache, when
// set, is consulted first; cache failures are logged and treated as misses.
type Client struct {
	baseURL    string
	apiKey     string
	tool       string
	email      string
	httpClient *http.Client
	cache      Cache
	breaker    *circuit.Breaker
	logger     *slog.Logger
	tracer     trace.Tracer
	group      singleflight.Group
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithContact sets the tool and email parameters NCBI asks clients to send.
func WithContact(tool, email string) Option {
	return func(c *Client) {
		c.tool = tool
		c.email = email
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithBreaker fails fetches fast while NCBI keeps timing out or erroring.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		tool:       "seqreg",
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer("seqreg/internal/ingest/ncbi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Fetch returns the raw FASTA text for accession. Failures are either
// CodeInvalidInput domain errors (bad accession) or *FetchError values.
func (c *Client) Fetch(ctx context.Context, accession string) (string, error) {
	accession, err := ValidateAccession(accession)
	if err != nil {
		return "", err
	}

	ctx, span := c.tracer.Start(ctx, "ncbi.fetch", trace.WithAttributes(
		attribute.String("ncbi.accession", accession),
	))
	defer span.End()

	if record, ok := c.fromCache(ctx, accession); ok {
		span.SetAttributes(attribute.Bool("ncbi.cache_hit", true))
		return record, nil
	}
	span.SetAttributes(attribute.Bool("ncbi.cache_hit", false))

	if ctx.Err() != nil {
		return "", callerGone(ctx, accession)
	}
	if c.breaker != nil && !c.breaker.Allow() {
		err := NewFetchError(ErrorProviderOutage, accession, "circuit open after repeated NCBI failures", nil)
		span.SetStatus(codes.Error, string(ErrorProviderOutage))
		return "", err
	}

	results := c.group.DoChan(accession, func() (any, error) {
		// Detached from the caller that started it: others may be waiting on it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		record, err := c.fetchRemote(fctx, accession)
		c.recordOutcome(fctx, err)
		if err == nil {
			c.toCache(fctx, accession, record)
		}
		return record, err
	})

	var res singleflight.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		err := callerGone(ctx, accession)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CategoryOf(err)))
		return "", err
	}
	span.SetAttributes(attribute.Bool("ncbi.shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(CategoryOf(res.Err)))
		return "", res.Err
	}
	return res.Val.(string), nil
}

func (c *Client) fetchTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultTimeout
}

// callerGone reports a caller that stopped waiting. The shared request, if
// any, carries on for the other callers.
func callerGone(ctx context.Context, accession string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewFetchError(ErrorTimeout, accession, "request timed out", ctx.Err())
	}
	return NewFetchError(ErrorInternal, accession, "request cancelled", ctx.Err())
}

// recordOutcome feeds the breaker. Only failures that say NCBI itself is
// unhealthy count against it.
func (c *Client) recordOutcome(ctx context.Context, err error) {
	if c.breaker == nil || errors.Is(err, context.Canceled) {
		return
	}
	if err != nil && IsRetryable(err) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "ncbi circuit opened", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "ncbi circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) fromCache(ctx context.Context, accession string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	record, err := c.cache.Get(ctx, accession)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			c.logger.WarnContext(ctx, "ncbi cache read failed", "accession", accession, "error", err)
		}
		return "", false
	}
	return record, true
}

func (c *Client) toCache(ctx context.Context, accession, record string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, accession, record); err != nil {
		c.logger.WarnContext(ctx, "ncbi cache write failed", "accession", accession, "error", err)
	}
}

func (c *Client) fetchRemote(ctx context.Context, accession string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(accession), nil)
	if err != nil {
		return "", NewFetchError(ErrorInternal, accession, "failed to build request", err)
	}
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, accession, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransportError(ctx, accession, err)
	}

	c.logger.DebugContext(ctx, "ncbi efetch completed",
		"accession", accession,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return parseResponse(accession, resp.StatusCode, body)
}

func (c *Client) requestURL(accession string) string {
	q := url.Values{}
	q.Set("db", "nucleotide")
	q.Set("id", accession)
	q.Set("rettype", "fasta")
	q.Set("retmode", "text")
	if c.tool != "" {
		q.Set("tool", c.tool)
	}
	if c.email != "" {
		q.Set("email", c.email)
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	return c.baseURL + "?" + q.Encode()
}

// parseResponse maps an efetch response to a FASTA record or a FetchError.
// efetch reports unknown ids with 400 and a plain-text "Error" body, and
// sometimes with 200 and a non-FASTA body.
func parseResponse(accession string, status int, body []byte) (string, error) {
	text := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return "", NewFetchError(ErrorNotFound, accession, "accession not found", nil)
	case status == http.StatusTooManyRequests:
		return "", NewFetchError(ErrorRateLimited, accession, "rate limited by NCBI", nil)
	case status >= 500:
		return "", NewFetchError(ErrorProviderOutage, accession, fmt.Sprintf("NCBI returned status %d", status), nil)
	default:
		return "", NewFetchError(ErrorInternal, accession, fmt.Sprintf("unexpected status %d", status), nil)
	}

	if text == "" {
		return "", NewFetchError(ErrorBadData, accession, "empty response", nil)
	}
	if !strings.HasPrefix(text, ">") {
		if strings.Contains(strings.ToLower(text), "error") {
			return "", NewFetchError(ErrorNotFound, accession, "accession not found", nil)
		}
		return "", NewFetchError(ErrorBadData, accession, "response is not FASTA", nil)
	}
	return text, nil
}

func classifyTransportError(ctx context.Context, accession string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewFetchError(ErrorTimeout, accession, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewFetchError(ErrorTimeout, accession, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewFetchError(ErrorInternal, accession, "request cancelled", err)
	}
	return NewFetchError(ErrorProviderOutage, accession, "NCBI unreachable", err)
}
