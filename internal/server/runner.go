package server

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/jroosing/hydradns/internal/cache"
	"github.com/jroosing/hydradns/internal/config"
	"github.com/jroosing/hydradns/internal/filtering"
)

// Runner orchestrates the DNS server startup, configuration, and shutdown.
type Runner struct {
	logger *slog.Logger
	stats  *DNSStats
	policy *filtering.PolicyEngine
}

// NewRunner creates a new server runner with the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger, stats: NewDNSStats()}
}

// SetPolicyEngine attaches a filtering policy engine that every subsequent
// Run call will consult before answering a question. Pass nil to disable
// filtering (the default).
func (r *Runner) SetPolicyEngine(p *filtering.PolicyEngine) {
	r.policy = p
}

// DNSStats returns the runner's query statistics collector, shared across
// every call to Run so external callers (the API server) can read a live
// snapshot.
func (r *Runner) DNSStats() *DNSStats {
	return r.stats
}

// SeedFunc loads the cache's initial static records (e.g. from the
// persisted custom-DNS table) before the listener starts accepting
// datagrams. Returning an error is fatal at startup, matching the spec's
// "initial static records cannot be inserted -> fatal at startup" policy.
type SeedFunc func(ctx context.Context, c *cache.Cache) error

// Run starts the DNS server with the given configuration.
//
// Server lifecycle:
//  1. Configure runtime (GOMAXPROCS based on workers setting)
//  2. Start the cache writer and seed it with initial static records
//  3. Start the single-socket UDP pipeline
//  4. Wait for shutdown signal (SIGINT/SIGTERM)
//  5. Gracefully stop the listener
func (r *Runner) Run(cfg *config.Config, seed SeedFunc) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	r.configureRuntime(cfg)

	c, writer := cache.New()
	go writer.Listen(ctx)

	if seed != nil {
		if err := seed(ctx, c); err != nil {
			return err
		}
	}

	upstream, err := net.ResolveUDPAddr("udp", cfg.Upstream.Servers[0])
	if err != nil {
		return err
	}

	limiter := NewRateLimiter(RateLimitSettings{
		CleanupSeconds:   cfg.RateLimit.CleanupSeconds,
		MaxIPEntries:     cfg.RateLimit.MaxIPEntries,
		MaxPrefixEntries: cfg.RateLimit.MaxPrefixEntries,
		GlobalQPS:        cfg.RateLimit.GlobalQPS,
		GlobalBurst:      cfg.RateLimit.GlobalBurst,
		PrefixQPS:        cfg.RateLimit.PrefixQPS,
		PrefixBurst:      cfg.RateLimit.PrefixBurst,
		IPQPS:            cfg.RateLimit.IPQPS,
		IPBurst:          cfg.RateLimit.IPBurst,
	})

	handler := &QueryHandler{
		Logger:   r.logger,
		Cache:    c,
		Upstream: upstream,
		Stats:    r.stats,
		Policy:   r.policy,
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if r.logger != nil {
		r.logger.Info("dns listening", "addr", addr, "upstream", upstream.String())
	}

	udp := &UDPServer{Logger: r.logger, Handler: handler, Limiter: limiter}

	errCh := make(chan error, 1)
	go func() { errCh <- udp.Run(ctx, addr) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			cancelRun()
			return err
		}
	}

	return udp.Stop(5 * time.Second)
}

// configureRuntime sets GOMAXPROCS based on worker configuration. Workers
// can reduce but never increase parallelism beyond the default.
func (r *Runner) configureRuntime(cfg *config.Config) int {
	baseProcs := runtime.GOMAXPROCS(0)
	if baseProcs <= 0 {
		baseProcs = 1
	}
	desiredProcs := baseProcs

	if cfg.Server.Workers.Mode == config.WorkersFixed {
		w := cfg.Server.Workers.Value
		if w <= 0 {
			w = 1
		}
		if w < desiredProcs {
			desiredProcs = w
		}
	}

	prev := runtime.GOMAXPROCS(desiredProcs)
	actual := runtime.GOMAXPROCS(0)
	if r.logger != nil {
		r.logger.Info("runtime", "gomaxprocs", actual, "prev", prev, "base", baseProcs)
	}
	return actual
}
