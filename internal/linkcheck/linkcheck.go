// Package linkcheck probes apply URLs of active listings and maps each
// response onto a check outcome. Outcomes feed the reconciler's
// debounce logic; this package never mutates the store itself.
package linkcheck

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const checkerUserAgent = "interntrack/1.0 (+https://github.com/ctsc/internship-tracker)"

// Checker probes URLs with bounded concurrency and a per-domain rate
// limit.
type Checker struct {
	client      *http.Client
	concurrency int
	perSec      float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a checker from config. Redirects are followed; only the
// final response counts.
func New(cfg config.LinkCheck) *Checker {
	return &Checker{
		client:      &http.Client{Timeout: cfg.Timeout.Std()},
		concurrency: cfg.Concurrency,
		perSec:      cfg.PerDomainPerSecond,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// CheckAll probes the apply URL of every open or unknown-status active
// listing and returns an outcome per listing id. Closed listings are
// skipped; their URLs are expected to be dead.
func (c *Checker) CheckAll(ctx context.Context, store *types.Store) (map[string]types.CheckOutcome, error) {
	ids := make([]string, 0, len(store.Active))
	for id, l := range store.Active {
		if l.Status == types.StatusClosed {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu       sync.Mutex
		outcomes = make(map[string]types.CheckOutcome, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, id := range ids {
		id := id
		target := store.Active[id].ApplyURL
		g.Go(func() error {
			outcome := c.Check(gctx, target)
			mu.Lock()
			outcomes[id] = outcome
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	log.Printf("[linkcheck] probed %d listings", len(outcomes))
	return outcomes, nil
}

// Check probes one URL. HEAD first; servers that reject HEAD get one
// GET retry. The mapping:
//
//	404, 410            -> not-found
//	2xx, 3xx            -> ok
//	5xx, 429, timeouts  -> transient-error
//	anything else       -> unknown-error
func (c *Checker) Check(ctx context.Context, target string) types.CheckOutcome {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return types.OutcomeUnknownError
	}
	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return types.OutcomeTransientError
	}

	status, err := c.probe(ctx, http.MethodHead, target)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusForbidden || status == http.StatusNotImplemented) {
		status, err = c.probe(ctx, http.MethodGet, target)
	}
	if err != nil {
		if isTransientErr(err) {
			return types.OutcomeTransientError
		}
		return types.OutcomeUnknownError
	}
	return classifyStatus(status)
}

func (c *Checker) probe(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", checkerUserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func classifyStatus(status int) types.CheckOutcome {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return types.OutcomeNotFound
	case status >= 200 && status < 400:
		return types.OutcomeOK
	case status == http.StatusTooManyRequests || status >= 500:
		return types.OutcomeTransientError
	default:
		return types.OutcomeUnknownError
	}
}

// isTransientErr reports whether a request error is worth treating as
// temporary. Timeouts and connection refusals recover on their own;
// malformed URLs and TLS failures do not.
func isTransientErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func (c *Checker) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.perSec), 1)
		c.limiters[host] = l
	}
	return l
}
