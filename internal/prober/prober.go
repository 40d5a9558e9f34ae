package prober

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/meshfront/meshfront/internal/deadcache"
	"github.com/meshfront/meshfront/internal/endpoint"
)

const (
	ProtocolTCP  = "tcp"
	ProtocolHTTP = "http"
)

// Options holds the probe tunables surfaced through configuration.
type Options struct {
	Protocol       string
	HTTPPath       string
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
	MaxParallel    int
}

// ProbeFunc performs one reachability check and reports whether the
// endpoint answered.
type ProbeFunc func(ctx context.Context, e endpoint.Endpoint) bool

// Prober turns a candidate list into the set of endpoints that are
// currently reachable. Healthy status is always freshly probed; only dead
// status is cached.
type Prober struct {
	cache   *deadcache.Cache
	logger  *slog.Logger
	opts    Options
	client  *http.Client
	probeFn ProbeFunc
}

// New creates a Prober using the protocol named in opts.
func New(cache *deadcache.Cache, logger *slog.Logger, opts Options) *Prober {
	p := &Prober{
		cache:  cache,
		logger: logger,
		opts:   opts,
		client: &http.Client{
			Timeout: opts.TotalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.ConnectTimeout,
				}).DialContext,
				DisableKeepAlives: true,
			},
		},
	}

	switch opts.Protocol {
	case ProtocolTCP:
		p.probeFn = p.probeTCP
	default:
		p.probeFn = p.probeHTTP
	}

	return p
}

// NewWithProbeFunc creates a Prober that uses fn instead of a network
// probe. Tests use this to fix probe outcomes.
func NewWithProbeFunc(cache *deadcache.Cache, logger *slog.Logger, opts Options, fn ProbeFunc) *Prober {
	p := New(cache, logger, opts)
	p.probeFn = fn
	return p
}

// Probe checks every candidate once and returns the healthy set. Probes run
// concurrently under the worker bound; if the concurrent path fails, the
// partial results are discarded and the whole list is re-probed
// sequentially so the caller always sees a complete, consistent snapshot.
func (p *Prober) Probe(ctx context.Context, candidates []endpoint.Endpoint) endpoint.Set {
	if len(candidates) == 0 {
		return endpoint.NewSet()
	}

	healthy, ok := p.probeParallel(ctx, candidates)
	if !ok {
		p.logger.Warn("Concurrent probing failed, falling back to sequential pass",
			slog.Int("candidates", len(candidates)))
		return p.probeSequential(ctx, candidates)
	}

	return healthy
}

// workerCount bounds probe fan-out: never more workers than candidates,
// never more than twice the core count, and never above the configured
// ceiling.
func (p *Prober) workerCount(candidates int) int {
	workers := candidates

	if cpuBound := 2 * runtime.NumCPU(); workers > cpuBound {
		workers = cpuBound
	}
	if p.opts.MaxParallel > 0 && workers > p.opts.MaxParallel {
		workers = p.opts.MaxParallel
	}
	if workers < 1 {
		workers = 1
	}

	return workers
}

type probeResult struct {
	endpoint endpoint.Endpoint
	healthy  bool
}

func (p *Prober) probeParallel(ctx context.Context, candidates []endpoint.Endpoint) (endpoint.Set, bool) {
	workers := p.workerCount(len(candidates))

	jobs := make(chan endpoint.Endpoint, len(candidates))
	results := make(chan probeResult, len(candidates))
	var panicked sync.Once
	failed := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.Do(func() { close(failed) })
					p.logger.Error("Probe worker panicked",
						slog.Any("panic", r))
				}
			}()

			for e := range jobs {
				results <- probeResult{endpoint: e, healthy: p.probeOne(ctx, e)}
			}
		}()
	}

	for _, e := range candidates {
		jobs <- e
	}
	close(jobs)

	wg.Wait()
	close(results)

	select {
	case <-failed:
		// A worker died mid-run; the results channel holds an incomplete
		// snapshot. Discard it rather than merge with a sequential retry.
		return endpoint.Set{}, false
	default:
	}

	healthy := endpoint.NewSet()
	for r := range results {
		if r.healthy {
			healthy.Add(r.endpoint)
		}
	}
	return healthy, true
}

func (p *Prober) probeSequential(ctx context.Context, candidates []endpoint.Endpoint) endpoint.Set {
	healthy := endpoint.NewSet()
	for _, e := range candidates {
		if p.probeOne(ctx, e) {
			healthy.Add(e)
		}
	}
	return healthy
}

// probeOne resolves one endpoint's health for this cycle: a live dead-cache
// hit short-circuits to unhealthy without a network call, otherwise exactly
// one probe runs, never retried within the cycle.
func (p *Prober) probeOne(ctx context.Context, e endpoint.Endpoint) bool {
	key := e.Key()

	if p.cache.IsDead(key) {
		p.logger.Debug("Skipping recently failed endpoint",
			slog.String("endpoint", key))
		return false
	}

	if p.probeFn(ctx, e) {
		p.cache.Clear(key)
		return true
	}

	p.logger.Warn("Endpoint failed probe", slog.String("endpoint", key))
	p.cache.MarkDead(key)
	return false
}

func (p *Prober) probeTCP(ctx context.Context, e endpoint.Endpoint) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.opts.TotalTimeout)
	defer cancel()

	dialer := net.Dialer{Timeout: p.opts.ConnectTimeout}
	conn, err := dialer.DialContext(probeCtx, "tcp", e.Key())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *Prober) probeHTTP(ctx context.Context, e endpoint.Endpoint) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.opts.TotalTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", e.Key(), p.opts.HTTPPath)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	res, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusBadRequest
}
