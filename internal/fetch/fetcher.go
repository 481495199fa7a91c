package fetch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
)

const (
	defaultMaxRetries = 2
	defaultBackoff    = 300 * time.Millisecond
	maxBodyBytes      = 2 << 20 // 2 MiB
)

// Outcome is the result of one fetch attempt chain. It is consumed
// immediately by the calling adapter pass and folded into diagnostics.
type Outcome struct {
	Status     domain.FetchStatus
	HTTPStatus int
	Elapsed    time.Duration
	Retries    int
	Body       []byte
	Err        error
}

// OK reports whether the fetch produced a usable body.
func (o Outcome) OK() bool { return o.Status == domain.FetchOK }

// Options customizes a single fetch.
type Options struct {
	Headers  map[string]string
	Snapshot SnapshotKey
}

// Fetcher issues HTTP requests with timeout, bounded retry with exponential
// backoff plus jitter, and anti-bot classification.
type Fetcher struct {
	client     httpclient.Client
	signatures *SignatureSet
	maxRetries int
	backoff    time.Duration
	limiter    *HostLimiter
	snapshots  *SnapshotSink
	metrics    *Metrics
	log        logger.Logger
}

// FetcherOptions tunes a Fetcher. Zero values take sensible defaults;
// Limiter, Snapshots and Metrics are optional.
type FetcherOptions struct {
	MaxRetries int
	Backoff    time.Duration
	Signatures *SignatureSet
	Limiter    *HostLimiter
	Snapshots  *SnapshotSink
	Metrics    *Metrics
	Log        logger.Logger
}

// NewFetcher builds a Fetcher around the given HTTP client.
func NewFetcher(client httpclient.Client, opts FetcherOptions) *Fetcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Signatures == nil {
		opts.Signatures = DefaultSignatures()
	}
	return &Fetcher{
		client:     client,
		signatures: opts.Signatures,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		limiter:    opts.Limiter,
		snapshots:  opts.Snapshots,
		metrics:    opts.Metrics,
		log:        logger.Ensure(opts.Log),
	}
}

// Fetch retrieves url, retrying transient failures up to the configured
// bound. Blocked and permanent classifications stop immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) Outcome {
	start := time.Now()
	out := Outcome{Status: domain.FetchTransient}

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			out.Retries++
			f.metrics.IncRetries()
			if err := f.waitBackoff(ctx, attempt); err != nil {
				out.Err = err
				break
			}
		}

		if err := f.limiter.Wait(ctx, url); err != nil {
			out.Err = err
			break
		}

		f.metrics.IncRequest(opts.Snapshot.Source)
		resp, err := f.client.Get(ctx, url, opts.Headers)
		if err != nil {
			// Transport failures (connection reset, timeout) are transient.
			out.Err = fmt.Errorf("fetch %s: %w", url, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		body := resp.Body()
		if len(body) > maxBodyBytes {
			body = body[:maxBodyBytes]
		}
		f.snapshots.Write(opts.Snapshot, body)

		out.HTTPStatus = resp.StatusCode()
		out.Body = body
		out.Err = nil

		switch classified := f.classify(resp.StatusCode(), body); classified {
		case domain.FetchOK:
			out.Status = domain.FetchOK
			out.Elapsed = time.Since(start)
			f.metrics.ObserveDuration(out.Elapsed)
			return out
		case domain.FetchBlocked:
			out.Status = domain.FetchBlocked
			out.Body = nil
			out.Err = fmt.Errorf("anti-bot block at %s (status %d)", url, resp.StatusCode())
			out.Elapsed = time.Since(start)
			f.metrics.IncBlocked(opts.Snapshot.Source)
			f.metrics.ObserveDuration(out.Elapsed)
			return out
		case domain.FetchPermanent:
			out.Status = domain.FetchPermanent
			out.Body = nil
			out.Err = fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
			out.Elapsed = time.Since(start)
			f.metrics.IncError(string(domain.FetchPermanent))
			f.metrics.ObserveDuration(out.Elapsed)
			return out
		default:
			// Transient HTTP status; fall through to the next attempt.
			out.Err = fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
			out.Body = nil
		}
	}

	out.Status = domain.FetchTransient
	out.Elapsed = time.Since(start)
	f.metrics.IncError(string(domain.FetchTransient))
	f.metrics.ObserveDuration(out.Elapsed)
	return out
}

// classify maps a response to its fetch status. Block signatures win over
// everything else; 429 and 5xx are retryable; remaining non-2xx/3xx are
// permanent.
func (f *Fetcher) classify(statusCode int, body []byte) domain.FetchStatus {
	if f.signatures.Matches(statusCode, body) {
		return domain.FetchBlocked
	}
	switch {
	case statusCode >= 200 && statusCode < 400:
		return domain.FetchOK
	case statusCode == 429 || statusCode >= 500:
		return domain.FetchTransient
	default:
		return domain.FetchPermanent
	}
}

func (f *Fetcher) waitBackoff(ctx context.Context, attempt int) error {
	wait := f.backoff << (attempt - 1)
	if jitter := f.backoff / 2; jitter > 0 {
		wait += rand.N(jitter)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
